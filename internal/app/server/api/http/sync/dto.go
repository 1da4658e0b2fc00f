package sync

import (
	"edusync/internal/domain/snapshot"
	"edusync/internal/domain/sync"
)

type snapshotInput struct{}

type snapshotOutput struct {
	Body *snapshot.Snapshot
}

type pushScoresInput struct {
	Body sync.PushScoresRequest
}

type pushAnswersInput struct {
	Body sync.PushAnswersRequest
}

type pushProgressInput struct {
	Body sync.PushProgressRequest
}

type pushAchievementsInput struct {
	Body sync.PushAchievementsRequest
}

type pushNotificationsInput struct {
	Body sync.PushNotificationsRequest
}

// pushOutput общий ответ для всех групп upsync
type pushOutput struct {
	Body sync.PushResponse
}
