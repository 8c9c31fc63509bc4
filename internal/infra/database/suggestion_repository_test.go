package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

func TestSuggestionRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := NewSuggestionRepository(store)
	lead := seedLead(t, NewLeadRepository(store), "u1", nil)

	first, err := repo.Upsert(ctx, entity.NewSuggestion("u1", lead.ID, entity.SuggestFollowUp, "Follow up", "quiet for 8 days", 60, base))
	require.NoError(t, err)

	// same lead and type refreshes the pending row in place
	again, err := repo.Upsert(ctx, entity.NewSuggestion("u1", lead.ID, entity.SuggestFollowUp, "Follow up", "quiet for 9 days", 70, base.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 70, again.Confidence)

	global, err := repo.Upsert(ctx, entity.NewSuggestion("u1", "", entity.SuggestReEngage, "Re-engage", "3 stale leads", 90, base))
	require.NoError(t, err)
	globalAgain, err := repo.Upsert(ctx, entity.NewSuggestion("u1", "", entity.SuggestReEngage, "Re-engage", "4 stale leads", 90, base))
	require.NoError(t, err)
	assert.Equal(t, global.ID, globalAgain.ID)

	pending, err := repo.Pending(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, global.ID, pending[0].ID)
	assert.Equal(t, "quiet for 9 days", pending[1].Reason)

	require.NoError(t, repo.SetStatus(ctx, "u1", first.ID, entity.SuggestionDismissed, base.Add(2*time.Hour)))
	got, err := repo.FindByID(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SuggestionDismissed, got.Status)

	keys, err := repo.ResolvedKeys(ctx, "u1", base)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{lead.ID + "|FOLLOW_UP": true}, keys)

	keys, err = repo.ResolvedKeys(ctx, "u1", base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, keys)

	// a resolved suggestion no longer absorbs new ones
	fresh, err := repo.Upsert(ctx, entity.NewSuggestion("u1", lead.ID, entity.SuggestFollowUp, "Follow up", "", 50, base.Add(4*time.Hour)))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)

	assert.ErrorIs(t, repo.SetStatus(ctx, "u2", fresh.ID, entity.SuggestionAccepted, base), entity.ErrNotFound)
}

func TestSuggestionRepository_UpsertConcurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := NewSuggestionRepository(store)
	lead := seedLead(t, NewLeadRepository(store), "u1", nil)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		confidence := 50 + i
		g.Go(func() error {
			_, err := repo.Upsert(ctx, entity.NewSuggestion("u1", lead.ID, entity.SuggestCreateTask, "Schedule", "", confidence, base))
			return err
		})
	}
	require.NoError(t, g.Wait())

	pending, err := repo.Pending(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSuggestionRepository_ExpireExcept(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := NewSuggestionRepository(store)
	lead := seedLead(t, NewLeadRepository(store), "u1", nil)
	other := seedLead(t, NewLeadRepository(store), "u2", nil)

	keep, err := repo.Upsert(ctx, entity.NewSuggestion("u1", lead.ID, entity.SuggestFollowUp, "Follow up", "", 60, base))
	require.NoError(t, err)
	stale, err := repo.Upsert(ctx, entity.NewSuggestion("u1", lead.ID, entity.SuggestCreateTask, "Schedule", "", 70, base))
	require.NoError(t, err)
	foreign, err := repo.Upsert(ctx, entity.NewSuggestion("u2", other.ID, entity.SuggestCreateTask, "Schedule", "", 70, base))
	require.NoError(t, err)

	n, err := repo.ExpireExcept(ctx, "u1", map[string]bool{keep.Key(): true}, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.FindByID(ctx, "u1", stale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SuggestionExpired, got.Status)
	got, err = repo.FindByID(ctx, "u2", foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SuggestionPending, got.Status)

	// expiry is not a user decision
	keys, err := repo.ResolvedKeys(ctx, "u1", base)
	require.NoError(t, err)
	assert.Empty(t, keys)

	n, err = repo.ExpireExcept(ctx, "u1", map[string]bool{keep.Key(): true}, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}
