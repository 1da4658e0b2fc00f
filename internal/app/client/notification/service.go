// Package notification уведомления ученика на устройстве.
package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"edusync/internal/app/client/localdb"
	"edusync/internal/app/client/writelock"

	"golang.org/x/exp/slog"
)

var (
	ErrNilHandle = errors.New("nil database handle")
	ErrNotFound  = errors.New("notification not found")
)

type Notification struct {
	LocalID   int64  `json:"notification_local_id"`
	ServerID  *int64 `json:"notification_id,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
	ReadAt    string `json:"read_at,omitempty"`
	IsSynced  bool   `json:"is_synced"`
}

type Service struct {
	lock *writelock.Lock
	log  *slog.Logger
	now  localdb.Clock
}

func NewService(lock *writelock.Lock, log *slog.Logger) *Service {
	return &Service{
		lock: lock,
		log:  log.With(slog.String("component", "notification")),
		now:  time.Now,
	}
}

// WithClock подменяет часы, используется в тестах
func (s *Service) WithClock(now localdb.Clock) *Service {
	s.now = now
	return s
}

// List уведомления от новых к старым; unreadOnly оставляет непрочитанные
func (s *Service) List(ctx context.Context, q localdb.Querier, unreadOnly bool) ([]Notification, error) {
	if q == nil {
		return nil, ErrNilHandle
	}

	query := `
		SELECT notification_local_id, server_notification_id, title, message, type,
			is_read, created_at, COALESCE(read_at, ''), is_synced
		FROM notifications`
	if unreadOnly {
		query += ` WHERE is_read = 0`
	}
	query += ` ORDER BY created_at DESC, notification_local_id DESC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	list := []Notification{}
	for rows.Next() {
		var (
			n        Notification
			serverID sql.NullInt64
		)
		if err := rows.Scan(&n.LocalID, &serverID, &n.Title, &n.Message, &n.Type,
			&n.IsRead, &n.CreatedAt, &n.ReadAt, &n.IsSynced); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if serverID.Valid {
			n.ServerID = &serverID.Int64
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead помечает уведомление прочитанным и несинхронизированным.
// Новая ревизия updated_at не дает upsync, который уже отправил старое
// состояние, пометить строку синхронизированной. Уже прочитанное
// уведомление не трогается.
func (s *Service) MarkRead(ctx context.Context, db *sql.DB, localID int64) error {
	if db == nil {
		return ErrNilHandle
	}

	return s.lock.Do(ctx, func(ctx context.Context) error {
		now := s.now()
		res, err := db.ExecContext(ctx, `
			UPDATE notifications SET is_read = 1, read_at = ?, updated_at = ?, is_synced = 0
			WHERE notification_local_id = ? AND is_read = 0`,
			localdb.Timestamp(now), localdb.Revision(now), localID)
		if err != nil {
			return fmt.Errorf("mark read %d: %w", localID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			s.log.Debug("notification read", slog.Int64("notification_local_id", localID))
			return nil
		}

		var exists int
		err = db.QueryRowContext(ctx,
			`SELECT 1 FROM notifications WHERE notification_local_id = ?`, localID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrNotFound, localID)
		}
		return err
	})
}
