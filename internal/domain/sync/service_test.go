package sync

import (
	"context"
	"errors"
	"testing"

	"edusync/internal/app/server/api/http/middleware/auth"
	"edusync/internal/domain/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRepository мок Repository для тестов
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Snapshot(ctx context.Context, pupilID int64) (*snapshot.Snapshot, error) {
	args := m.Called(ctx, pupilID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*snapshot.Snapshot), args.Error(1)
}

func (m *MockRepository) UpsertScores(ctx context.Context, pupilID int64, records []ScoreRecord) ([]int64, error) {
	args := m.Called(ctx, pupilID, records)
	return ids(args.Get(0)), args.Error(1)
}

func (m *MockRepository) UpsertAnswers(ctx context.Context, pupilID int64, records []AnswerRecord) ([]int64, error) {
	args := m.Called(ctx, pupilID, records)
	return ids(args.Get(0)), args.Error(1)
}

func (m *MockRepository) UpsertProgress(ctx context.Context, pupilID int64, records []ProgressRecord) ([]int64, error) {
	args := m.Called(ctx, pupilID, records)
	return ids(args.Get(0)), args.Error(1)
}

func (m *MockRepository) UpsertAchievements(ctx context.Context, pupilID int64, records []AchievementRecord) ([]int64, error) {
	args := m.Called(ctx, pupilID, records)
	return ids(args.Get(0)), args.Error(1)
}

func (m *MockRepository) UpsertNotifications(ctx context.Context, pupilID int64, records []NotificationRecord) ([]int64, error) {
	args := m.Called(ctx, pupilID, records)
	return ids(args.Get(0)), args.Error(1)
}

func ids(v any) []int64 {
	if v == nil {
		return nil
	}
	return v.([]int64)
}

func pupilCtx(pupilID int64) context.Context {
	return auth.WithPupilID(context.Background(), pupilID)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, slog.Default(), &ServiceConfig{MaxBatch: 3})
}

func TestService_Snapshot(t *testing.T) {
	t.Run("returns snapshot for authenticated pupil", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)
		ctx := pupilCtx(42)

		snap := &snapshot.Snapshot{Sections: []snapshot.Section{{SectionID: 7, SectionName: "7-A"}}}
		repo.On("Snapshot", ctx, int64(42)).Return(snap, nil)

		got, err := svc.Snapshot(ctx)

		require.NoError(t, err)
		assert.Equal(t, snap, got)
		repo.AssertExpectations(t)
	})

	t.Run("no pupil in context", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		_, err := svc.Snapshot(context.Background())

		assert.ErrorIs(t, err, ErrUnauthenticated)
		repo.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything)
	})

	t.Run("repository error is wrapped", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)
		ctx := pupilCtx(1)
		boom := errors.New("db down")
		repo.On("Snapshot", ctx, int64(1)).Return(nil, boom)

		_, err := svc.Snapshot(ctx)

		assert.ErrorIs(t, err, boom)
	})
}

func TestService_PushScores(t *testing.T) {
	valid := []ScoreRecord{
		{LocalID: 1, TestID: 10, Score: 8, MaxScore: 10, AttemptNumber: 1},
		{LocalID: 2, TestID: 10, Score: 9, MaxScore: 10, AttemptNumber: 2},
	}

	tests := []struct {
		name    string
		ctx     context.Context
		req     PushScoresRequest
		setup   func(repo *MockRepository)
		wantIDs []int64
		wantErr error
	}{
		{
			name: "stores records and echoes ids",
			ctx:  pupilCtx(5),
			req:  PushScoresRequest{PupilID: 5, Scores: valid},
			setup: func(repo *MockRepository) {
				repo.On("UpsertScores", mock.Anything, int64(5), valid).Return([]int64{100, 101}, nil)
			},
			wantIDs: []int64{100, 101},
		},
		{
			name:    "pupil mismatch",
			ctx:     pupilCtx(5),
			req:     PushScoresRequest{PupilID: 6, Scores: valid},
			wantErr: ErrPupilMismatch,
		},
		{
			name:    "unauthenticated",
			ctx:     context.Background(),
			req:     PushScoresRequest{PupilID: 5, Scores: valid},
			wantErr: ErrUnauthenticated,
		},
		{
			name: "batch too large",
			ctx:  pupilCtx(5),
			req: PushScoresRequest{PupilID: 5, Scores: []ScoreRecord{
				{AttemptNumber: 1}, {AttemptNumber: 1}, {AttemptNumber: 1}, {AttemptNumber: 1},
			}},
			wantErr: ErrBatchTooLarge,
		},
		{
			name:    "score above max",
			ctx:     pupilCtx(5),
			req:     PushScoresRequest{PupilID: 5, Scores: []ScoreRecord{{Score: 11, MaxScore: 10, AttemptNumber: 1}}},
			wantErr: ErrInvalidRecord,
		},
		{
			name: "repository returns fewer ids",
			ctx:  pupilCtx(5),
			req:  PushScoresRequest{PupilID: 5, Scores: valid},
			setup: func(repo *MockRepository) {
				repo.On("UpsertScores", mock.Anything, int64(5), valid).Return([]int64{100}, nil)
			},
			wantErr: ErrIDCountMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.setup != nil {
				tt.setup(repo)
			}
			svc := newTestService(repo)

			resp, err := svc.PushScores(tt.ctx, tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ok", resp.Status)
			assert.Equal(t, tt.wantIDs, resp.IDs)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_PushNotifications_ZeroPupilUsesToken(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	records := []NotificationRecord{{LocalID: 3, Title: "Badge", Type: "achievement"}}
	repo.On("UpsertNotifications", mock.Anything, int64(9), records).Return([]int64{55}, nil)

	resp, err := svc.PushNotifications(pupilCtx(9), PushNotificationsRequest{Notifications: records})

	require.NoError(t, err)
	assert.Equal(t, []int64{55}, resp.IDs)
}

func TestService_PushAnswers_Invalid(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	_, err := svc.PushAnswers(pupilCtx(1), PushAnswersRequest{Answers: []AnswerRecord{{AttemptNumber: 1}}})

	assert.ErrorIs(t, err, ErrInvalidRecord)
	repo.AssertNotCalled(t, "UpsertAnswers", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_PushProgressAndAchievements(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)
	ctx := pupilCtx(2)

	progress := []ProgressRecord{{LocalID: 1, ContentID: 700, CompletedAt: "2024-05-01 10:00:00"}}
	achievements := []AchievementRecord{{LocalID: 1, AchievementID: 3, EarnedAt: "2024-05-01 10:00:00"}}
	repo.On("UpsertProgress", mock.Anything, int64(2), progress).Return([]int64{11}, nil)
	repo.On("UpsertAchievements", mock.Anything, int64(2), achievements).Return(nil, errors.New("conflict"))

	resp, err := svc.PushProgress(ctx, PushProgressRequest{PupilID: 2, Progress: progress})
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, resp.IDs)

	_, err = svc.PushAchievements(ctx, PushAchievementsRequest{PupilID: 2, Achievements: achievements})
	assert.ErrorContains(t, err, "conflict")
}
