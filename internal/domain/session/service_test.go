package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Validate(ctx context.Context, tokenHash string) (int64, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(int64), args.Error(1)
}

func TestService_Validate(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	token := "valid-token"
	mockRepo.On("Validate", mock.Anything, HashToken(token)).Return(int64(42), nil)

	pupilID, err := service.Validate(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), pupilID)

	mockRepo.AssertExpectations(t)
}

func TestService_Validate_RepositoryError(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	mockRepo.On("Validate", mock.Anything, mock.AnythingOfType("string")).Return(int64(0), errors.New("no rows"))

	pupilID, err := service.Validate(context.Background(), "expired-token")
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Zero(t, pupilID)
}

func TestService_Validate_EmptyToken(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	_, err := service.Validate(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidSession)
	mockRepo.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("abc")
	h2 := HashToken("abc")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, HashToken("abd"))
}
