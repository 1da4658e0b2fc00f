package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slog"
)

// ErrInvalidSession токен не найден, истек или отозван
var ErrInvalidSession = errors.New("invalid session")

// Servicer проверяет bearer-токены, выданные сервисом авторизации.
// Выдача токенов в этот сервис не входит.
type Servicer interface {
	Validate(ctx context.Context, token string) (int64, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "session")),
	}
}

// Validate возвращает id ученика, которому принадлежит токен
func (s *Service) Validate(ctx context.Context, token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrInvalidSession
	}

	pupilID, err := s.repo.Validate(ctx, HashToken(token))
	if err != nil {
		s.log.Debug("session validation failed", slog.Any("error", err))
		return 0, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return pupilID, nil
}

// HashToken в БД хранится только sha256 от токена
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
