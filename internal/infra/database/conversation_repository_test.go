package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

func TestConversationRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	leads := NewLeadRepository(store)
	repo := NewConversationRepository(store)

	lead := seedLead(t, leads, "u1", nil)

	newConv := func(at time.Time) *entity.Conversation {
		c := entity.NewConversation("u1", lead.ID, entity.ChannelCall, entity.DirectionOutbound, at, base)
		c.Content = "talked about pricing"
		require.NoError(t, repo.Create(ctx, c))
		return c
	}
	early := newConv(base.Add(-48 * time.Hour))
	late := newConv(base.Add(-1 * time.Hour))

	got, total, err := repo.ListByLead(ctx, "u1", lead.ID, entity.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, late.ID, got[0].ID)
	assert.Equal(t, early.ID, got[1].ID)
	assert.Equal(t, entity.ChannelCall, got[0].Channel)

	_, total, err = repo.ListByLead(ctx, "u2", lead.ID, entity.Page{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	recent, err := repo.ListByUser(ctx, "u1", base.Add(-24*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, late.ID, recent[0].ID)

	first, err := repo.ListByUser(ctx, "u1", time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, early.ID, first[0].ID)

	found, err := repo.FindByID(ctx, "u1", early.ID)
	require.NoError(t, err)
	assert.Equal(t, "talked about pricing", found.Content)

	require.NoError(t, repo.Delete(ctx, early.ID))
	assert.ErrorIs(t, repo.Delete(ctx, early.ID), entity.ErrNotFound)
	_, err = repo.FindByID(ctx, "u1", early.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestConversationRepository_RequiresLead(t *testing.T) {
	repo := NewConversationRepository(newTestStore(t))
	c := entity.NewConversation("u1", "missing", entity.ChannelNote, entity.DirectionInbound, base, base)
	c.Content = "orphan"
	assert.Error(t, repo.Create(context.Background(), c))
}
