package sync

import (
	"context"

	"edusync/internal/domain/snapshot"
)

// Repository серверное хранилище каталога и пользовательских данных.
// Все Upsert* выполняются в одной транзакции на вызов и возвращают
// серверные id в порядке входных записей.
type Repository interface {
	Snapshot(ctx context.Context, pupilID int64) (*snapshot.Snapshot, error)

	UpsertScores(ctx context.Context, pupilID int64, records []ScoreRecord) ([]int64, error)
	UpsertAnswers(ctx context.Context, pupilID int64, records []AnswerRecord) ([]int64, error)
	UpsertProgress(ctx context.Context, pupilID int64, records []ProgressRecord) ([]int64, error)
	UpsertAchievements(ctx context.Context, pupilID int64, records []AchievementRecord) ([]int64, error)
	UpsertNotifications(ctx context.Context, pupilID int64, records []NotificationRecord) ([]int64, error)
}
