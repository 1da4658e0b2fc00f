package notification_test

import (
	"context"
	"testing"
	"time"

	"edusync/internal/app/client/downsync"
	"edusync/internal/app/client/notification"
	"edusync/internal/app/client/writelock"
	"edusync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestMarkRead(t *testing.T) {
	lock := writelock.New(writelock.DB, time.Second)
	db := testutil.NewTestDB(t)
	_, err := downsync.NewService(lock, slog.Default()).ApplySnapshot(context.Background(), db, testutil.SampleSnapshot())
	require.NoError(t, err)

	fixed := time.Date(2024, 6, 3, 12, 0, 0, 5, time.UTC)
	svc := notification.NewService(lock, slog.Default()).WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	unread, err := svc.List(ctx, db, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.True(t, unread[0].IsSynced)
	require.NotNil(t, unread[0].ServerID)
	assert.Equal(t, int64(300), *unread[0].ServerID)

	require.NoError(t, svc.MarkRead(ctx, db, unread[0].LocalID))

	var readAt, updatedAt string
	var synced int
	require.NoError(t, db.QueryRow(`SELECT read_at, updated_at, is_synced FROM notifications WHERE notification_local_id = ?`,
		unread[0].LocalID).Scan(&readAt, &updatedAt, &synced))
	assert.Equal(t, "2024-06-03 12:00:00", readAt)
	assert.Equal(t, "2024-06-03 12:00:00.000000005", updatedAt)
	assert.Zero(t, synced)

	unread, err = svc.List(ctx, db, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := svc.List(ctx, db, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsRead)

	// повторная отметка ничего не меняет
	require.NoError(t, svc.MarkRead(ctx, db, all[0].LocalID))
}

func TestMarkRead_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := notification.NewService(writelock.New(writelock.DB, time.Second), slog.Default())

	err := svc.MarkRead(context.Background(), db, 77)
	assert.ErrorIs(t, err, notification.ErrNotFound)

	err = svc.MarkRead(context.Background(), nil, 1)
	assert.ErrorIs(t, err, notification.ErrNilHandle)
}
