package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) Validate(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

type whoamiOutput struct {
	Body struct {
		PupilID int64 `json:"pupil_id"`
	}
}

func setupAPI(t *testing.T, session *MockSession) humatest.TestAPI {
	_, api := humatest.New(t)
	a := New(session, slog.Default())

	huma.Register(api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/whoami",
		Middlewares: huma.Middlewares{a.Middleware()},
	}, func(ctx context.Context, _ *struct{}) (*whoamiOutput, error) {
		id, ok := GetPupilID(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("Unauthorized")
		}
		out := &whoamiOutput{}
		out.Body.PupilID = id
		return out, nil
	})
	return api
}

func TestAuth_Middleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		setup      func(m *MockSession)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "valid token",
			header: "Authorization: Bearer good-token",
			setup: func(m *MockSession) {
				m.On("Validate", mock.Anything, "good-token").Return(int64(42), nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"pupil_id":42`,
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `"error":"Unauthorized"`,
		},
		{
			name:       "not a bearer scheme",
			header:     "Authorization: Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "rejected token",
			header: "Authorization: Bearer expired",
			setup: func(m *MockSession) {
				m.On("Validate", mock.Anything, "expired").Return(int64(0), errors.New("invalid session"))
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := new(MockSession)
			if tt.setup != nil {
				tt.setup(session)
			}
			api := setupAPI(t, session)

			var args []any
			if tt.header != "" {
				args = append(args, tt.header)
			}
			resp := api.Get("/whoami", args...)

			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantBody != "" {
				assert.Contains(t, resp.Body.String(), tt.wantBody)
			}
			session.AssertExpectations(t)
		})
	}
}

func TestPupilIDContext(t *testing.T) {
	_, ok := GetPupilID(context.Background())
	assert.False(t, ok)

	id, ok := GetPupilID(WithPupilID(context.Background(), 7))
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}
