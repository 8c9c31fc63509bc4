package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(newTestStore(t))

	create := func(typ entity.NotificationType, title string, at time.Time) *entity.Notification {
		n := entity.NewNotification("u1", typ, title, "", "", at)
		require.NoError(t, repo.Create(ctx, n))
		return n
	}
	due := create(entity.NotificationTaskDue, "Task due", base)
	won := create(entity.NotificationLeadConverted, "Lead converted", base.Add(time.Minute))
	sys := create(entity.NotificationSystem, "Welcome", base.Add(2*time.Minute))

	got, total, err := repo.List(ctx, entity.NotificationFilter{UserID: "u1", Page: entity.Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 3)
	assert.Equal(t, sys.ID, got[0].ID)

	n, err := repo.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	updated, err := repo.SetRead(ctx, "u1", []string{due.ID, won.ID, "missing"}, true, base)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	read, err := repo.FindByID(ctx, "u1", due.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	got, _, err = repo.List(ctx, entity.NotificationFilter{UserID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sys.ID, got[0].ID)

	updated, err = repo.SetRead(ctx, "u1", []string{due.ID}, false, base)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	read, err = repo.FindByID(ctx, "u1", due.ID)
	require.NoError(t, err)
	assert.False(t, read.IsRead)
	assert.Nil(t, read.ReadAt)

	updated, err = repo.SetRead(ctx, "u1", nil, true, base)
	require.NoError(t, err)
	assert.Zero(t, updated)

	got, _, err = repo.List(ctx, entity.NotificationFilter{UserID: "u1", Types: []entity.NotificationType{entity.NotificationLeadConverted}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, won.ID, got[0].ID)

	updated, err = repo.MarkAllRead(ctx, "u1", base)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	n, err = repo.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.Archive(ctx, "u1", sys.ID))
	_, total, err = repo.List(ctx, entity.NotificationFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	got, _, err = repo.List(ctx, entity.NotificationFilter{UserID: "u1", Archived: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sys.ID, got[0].ID)

	require.NoError(t, repo.Delete(ctx, "u1", won.ID))
	assert.ErrorIs(t, repo.Delete(ctx, "u1", won.ID), entity.ErrNotFound)
	assert.ErrorIs(t, repo.Archive(ctx, "u2", due.ID), entity.ErrNotFound)
}
