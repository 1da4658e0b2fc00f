package sync

import (
	"context"
	"fmt"

	"edusync/internal/app/server/api/http/middleware/auth"
	"edusync/internal/domain/snapshot"

	"golang.org/x/exp/slog"
)

// Servicer интерфейс сервиса синхронизации
type Servicer interface {
	// Snapshot возвращает полный снимок каталога текущего ученика
	Snapshot(ctx context.Context) (*snapshot.Snapshot, error)

	PushScores(ctx context.Context, req PushScoresRequest) (*PushResponse, error)
	PushAnswers(ctx context.Context, req PushAnswersRequest) (*PushResponse, error)
	PushProgress(ctx context.Context, req PushProgressRequest) (*PushResponse, error)
	PushAchievements(ctx context.Context, req PushAchievementsRequest) (*PushResponse, error)
	PushNotifications(ctx context.Context, req PushNotificationsRequest) (*PushResponse, error)
}

// Service реализация сервиса синхронизации
type Service struct {
	repo   Repository
	log    *slog.Logger
	config *ServiceConfig
}

// NewService создает новый сервис синхронизации
func NewService(repo Repository, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}

	return &Service{
		repo:   repo,
		log:    log.With(slog.String("component", "sync_service")),
		config: config,
	}
}

func (s *Service) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	pupilID, ok := auth.GetPupilID(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	snap, err := s.repo.Snapshot(ctx, pupilID)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}

	s.log.Debug("snapshot built", slog.Int64("pupil_id", pupilID), slog.Any("counts", snap.Counts()))
	return snap, nil
}

func (s *Service) PushScores(ctx context.Context, req PushScoresRequest) (*PushResponse, error) {
	pupilID, err := s.checkRequest(ctx, req.PupilID, len(req.Scores))
	if err != nil {
		return nil, err
	}
	for i, rec := range req.Scores {
		if rec.AttemptNumber < 1 || rec.Score < 0 || rec.MaxScore < 0 || rec.Score > rec.MaxScore {
			return nil, fmt.Errorf("%w: scores[%d]", ErrInvalidRecord, i)
		}
	}

	ids, err := s.repo.UpsertScores(ctx, pupilID, req.Scores)
	return s.respond(GroupScores, pupilID, len(req.Scores), ids, err)
}

func (s *Service) PushAnswers(ctx context.Context, req PushAnswersRequest) (*PushResponse, error) {
	pupilID, err := s.checkRequest(ctx, req.PupilID, len(req.Answers))
	if err != nil {
		return nil, err
	}
	for i, rec := range req.Answers {
		if rec.AttemptNumber < 1 || rec.QuestionID == 0 {
			return nil, fmt.Errorf("%w: answers[%d]", ErrInvalidRecord, i)
		}
	}

	ids, err := s.repo.UpsertAnswers(ctx, pupilID, req.Answers)
	return s.respond(GroupAnswers, pupilID, len(req.Answers), ids, err)
}

func (s *Service) PushProgress(ctx context.Context, req PushProgressRequest) (*PushResponse, error) {
	pupilID, err := s.checkRequest(ctx, req.PupilID, len(req.Progress))
	if err != nil {
		return nil, err
	}
	for i, rec := range req.Progress {
		if rec.ContentID == 0 {
			return nil, fmt.Errorf("%w: progress[%d]", ErrInvalidRecord, i)
		}
	}

	ids, err := s.repo.UpsertProgress(ctx, pupilID, req.Progress)
	return s.respond(GroupProgress, pupilID, len(req.Progress), ids, err)
}

func (s *Service) PushAchievements(ctx context.Context, req PushAchievementsRequest) (*PushResponse, error) {
	pupilID, err := s.checkRequest(ctx, req.PupilID, len(req.Achievements))
	if err != nil {
		return nil, err
	}
	for i, rec := range req.Achievements {
		if rec.AchievementID == 0 {
			return nil, fmt.Errorf("%w: achievements[%d]", ErrInvalidRecord, i)
		}
	}

	ids, err := s.repo.UpsertAchievements(ctx, pupilID, req.Achievements)
	return s.respond(GroupAchievements, pupilID, len(req.Achievements), ids, err)
}

func (s *Service) PushNotifications(ctx context.Context, req PushNotificationsRequest) (*PushResponse, error) {
	pupilID, err := s.checkRequest(ctx, req.PupilID, len(req.Notifications))
	if err != nil {
		return nil, err
	}

	ids, err := s.repo.UpsertNotifications(ctx, pupilID, req.Notifications)
	return s.respond(GroupNotifications, pupilID, len(req.Notifications), ids, err)
}

// checkRequest проверяет, что запрос пришел от того же ученика, что и токен,
// и что пакет не превышает лимит.
func (s *Service) checkRequest(ctx context.Context, pupilID int64, size int) (int64, error) {
	authID, ok := auth.GetPupilID(ctx)
	if !ok {
		return 0, ErrUnauthenticated
	}
	if pupilID != 0 && pupilID != authID {
		return 0, ErrPupilMismatch
	}
	if size > s.config.MaxBatch {
		return 0, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, size, s.config.MaxBatch)
	}
	return authID, nil
}

func (s *Service) respond(group Group, pupilID int64, sent int, ids []int64, err error) (*PushResponse, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s: %w", group, err)
	}
	if len(ids) != sent {
		return nil, fmt.Errorf("%s: %w: sent %d, got %d", group, ErrIDCountMismatch, sent, len(ids))
	}

	s.log.Info("upsync group stored",
		slog.String("group", string(group)),
		slog.Int64("pupil_id", pupilID),
		slog.Int("records", sent),
	)

	return &PushResponse{Status: "Ok", IDs: ids}, nil
}
