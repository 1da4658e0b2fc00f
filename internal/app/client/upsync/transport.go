package upsync

import (
	"context"

	"edusync/internal/domain/sync"
)

// Transport отправка одной группы на сервер. Ответ содержит серверные id
// в порядке записей запроса.
type Transport interface {
	PushScores(ctx context.Context, req sync.PushScoresRequest) (*sync.PushResponse, error)
	PushAnswers(ctx context.Context, req sync.PushAnswersRequest) (*sync.PushResponse, error)
	PushProgress(ctx context.Context, req sync.PushProgressRequest) (*sync.PushResponse, error)
	PushAchievements(ctx context.Context, req sync.PushAchievementsRequest) (*sync.PushResponse, error)
	PushNotifications(ctx context.Context, req sync.PushNotificationsRequest) (*sync.PushResponse, error)
}
