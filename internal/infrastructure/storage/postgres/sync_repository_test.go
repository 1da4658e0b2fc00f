package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"edusync/internal/app/server/config"
	"edusync/internal/domain/sync"
	"edusync/internal/utils/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDatabaseEnv строка подключения к тестовой базе; без нее тесты пропускаются
const testDatabaseEnv = "EDUSYNC_TEST_DATABASE_URI"

func newTestRepository(t *testing.T) (*SyncRepository, int64) {
	t.Helper()

	uri := os.Getenv(testDatabaseEnv)
	if uri == "" {
		t.Skipf("%s is not set", testDatabaseEnv)
	}
	migrations, err := filepath.Abs("../../../../migrations/server")
	require.NoError(t, err)

	ctx := context.Background()
	storage, err := New(ctx, &config.Config{
		DB: config.DB{DatabaseURI: uri, Migrations: migrations},
	}, logger.Discard())
	require.NoError(t, err)

	var pupilID int64
	require.NoError(t, storage.Pool().QueryRow(ctx,
		`INSERT INTO pupils (full_name) VALUES ('Test Pupil') RETURNING id`).Scan(&pupilID))

	t.Cleanup(func() {
		_, _ = storage.Pool().Exec(context.Background(), `DELETE FROM pupils WHERE id = $1`, pupilID)
		storage.Close()
	})
	return NewSyncRepository(storage, logger.Discard()), pupilID
}

func TestUpsertScores_SameAttemptUpdatesRow(t *testing.T) {
	repo, pupilID := newTestRepository(t)
	ctx := context.Background()

	rec := sync.ScoreRecord{LocalID: 1, TestID: 7002, Score: 6, MaxScore: 10, AttemptNumber: 1, TakenAt: "2024-06-02 09:00:00"}
	first, err := repo.UpsertScores(ctx, pupilID, []sync.ScoreRecord{rec})
	require.NoError(t, err)
	require.Len(t, first, 1)

	rec.Score = 9
	second, err := repo.UpsertScores(ctx, pupilID, []sync.ScoreRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var (
		rows  int
		score float64
	)
	require.NoError(t, repo.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*), MAX(score) FROM test_scores WHERE pupil_id = $1`, pupilID).Scan(&rows, &score))
	assert.Equal(t, 1, rows)
	assert.Equal(t, 9.0, score)
}

func TestUpsertNotifications_UnknownIDIsInserted(t *testing.T) {
	repo, pupilID := newTestRepository(t)
	ctx := context.Background()

	gone := int64(1 << 40)
	ids, err := repo.UpsertNotifications(ctx, pupilID, []sync.NotificationRecord{
		{LocalID: 1, NotificationID: &gone, Title: "Badge earned", Type: "achievement", IsRead: true, CreatedAt: "2024-06-02 09:00:00"},
		{LocalID: 2, Title: "Welcome", Type: "system", CreatedAt: "2024-06-02 09:01:00"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, gone, ids[0])

	var isRead bool
	require.NoError(t, repo.db.Pool().QueryRow(ctx,
		`SELECT is_read FROM notifications WHERE id = $1 AND pupil_id = $2`, ids[0], pupilID).Scan(&isRead))
	assert.True(t, isRead)

	// повторная отправка с выданным id обновляет ту же строку
	again, err := repo.UpsertNotifications(ctx, pupilID, []sync.NotificationRecord{
		{LocalID: 1, NotificationID: &ids[0], Title: "Badge earned", IsRead: false, CreatedAt: "2024-06-02 09:00:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, ids[:1], again)
}
