package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"
)

type SessionRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewSessionRepository(db *Storage, log *slog.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: log,
	}
}

// Validate ищет действующую сессию по sha256 токена
func (r *SessionRepository) Validate(ctx context.Context, tokenHash string) (int64, error) {
	var pupilID int64
	err := r.db.Pool().QueryRow(ctx,
		`SELECT pupil_id FROM sessions
         WHERE token_hash = decode($1, 'hex') AND expires_at > NOW() AND NOT revoked`,
		tokenHash).Scan(&pupilID)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("session not found")
	}
	if err != nil {
		return 0, fmt.Errorf("query session: %w", err)
	}
	return pupilID, nil
}
