package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"edusync/internal/domain/snapshot"
	"edusync/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*snapshot.Snapshot), args.Error(1)
}

func (m *MockService) PushScores(ctx context.Context, req sync.PushScoresRequest) (*sync.PushResponse, error) {
	return m.push(m.Called(ctx, req))
}

func (m *MockService) PushAnswers(ctx context.Context, req sync.PushAnswersRequest) (*sync.PushResponse, error) {
	return m.push(m.Called(ctx, req))
}

func (m *MockService) PushProgress(ctx context.Context, req sync.PushProgressRequest) (*sync.PushResponse, error) {
	return m.push(m.Called(ctx, req))
}

func (m *MockService) PushAchievements(ctx context.Context, req sync.PushAchievementsRequest) (*sync.PushResponse, error) {
	return m.push(m.Called(ctx, req))
}

func (m *MockService) PushNotifications(ctx context.Context, req sync.PushNotificationsRequest) (*sync.PushResponse, error) {
	return m.push(m.Called(ctx, req))
}

func (m *MockService) push(args mock.Arguments) (*sync.PushResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.PushResponse), args.Error(1)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected huma status error, got %v", err)
	return se.GetStatus()
}

func TestHandler_snapshot(t *testing.T) {
	service := new(MockService)
	handler := NewHandler(service, slog.Default(), huma.Middlewares{})
	ctx := context.Background()

	snap := &snapshot.Snapshot{Subjects: []snapshot.Subject{{SubjectID: 501, SubjectName: "Math"}}}
	service.On("Snapshot", ctx).Return(snap, nil).Once()

	out, err := handler.snapshot(ctx, &snapshotInput{})

	require.NoError(t, err)
	assert.Equal(t, snap, out.Body)
}

func TestHandler_pushErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unauthenticated", sync.ErrUnauthenticated, http.StatusUnauthorized},
		{"pupil mismatch", sync.ErrPupilMismatch, http.StatusForbidden},
		{"batch too large", sync.ErrBatchTooLarge, http.StatusRequestEntityTooLarge},
		{"invalid record", sync.ErrInvalidRecord, http.StatusUnprocessableEntity},
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			handler := NewHandler(service, slog.Default(), huma.Middlewares{})
			input := &pushScoresInput{Body: sync.PushScoresRequest{PupilID: 1}}
			service.On("PushScores", mock.Anything, input.Body).Return(nil, tt.err)

			out, err := handler.pushScores(context.Background(), input)

			assert.Nil(t, out)
			assert.Equal(t, tt.wantStatus, statusOf(t, err))
		})
	}
}

func TestHandler_Routes(t *testing.T) {
	_, api := humatest.New(t)
	service := new(MockService)
	NewHandler(service, slog.Default(), huma.Middlewares{}).SetupRoutes(api)

	service.On("PushNotifications", mock.Anything, mock.Anything).
		Return(&sync.PushResponse{Status: "Ok", IDs: []int64{77}}, nil)

	resp := api.Post("/api/v1/sync/notifications", map[string]any{
		"pupil_id": 3,
		"notifications": []map[string]any{
			{"local_id": 1, "title": "Badge", "message": "Earned", "type": "achievement", "is_read": false, "created_at": "2024-05-01 10:00:00"},
		},
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	var body sync.PushResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Ok", body.Status)
	assert.Equal(t, []int64{77}, body.IDs)
}
