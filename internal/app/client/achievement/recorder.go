// Package achievement выдача значков за пройденный материал.
package achievement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"edusync/internal/app/client/connectivity"
	"edusync/internal/app/client/localdb"
	"edusync/internal/app/client/reconcile"
	"edusync/internal/app/client/upsync"
	"edusync/internal/app/client/writelock"

	"golang.org/x/exp/slog"
)

var (
	ErrNilHandle       = errors.New("nil database handle")
	ErrInvalidBadge    = errors.New("badge id is required")
	ErrContentNotFound = errors.New("content not found")
)

const notificationType = "achievement"

// Badge значок из каталога сервера
type Badge struct {
	ID    int64
	Title string
	Icon  string
	Color string
}

// Outcome NotificationLocalID равен 0, если значок уже был получен раньше
type Outcome struct {
	AchievementLocalID  int64
	NotificationLocalID int64
	Created             bool
	Pushed              bool
}

// Pusher отправка всех несинхронизированных данных
type Pusher interface {
	PushAll(ctx context.Context) (*upsync.Report, error)
}

type Recorder struct {
	lock    *writelock.Lock
	monitor connectivity.Monitor
	pusher  Pusher
	log     *slog.Logger
	now     localdb.Clock
}

// NewRecorder monitor и pusher могут быть nil, тогда значок только
// сохраняется локально
func NewRecorder(lock *writelock.Lock, monitor connectivity.Monitor, pusher Pusher, log *slog.Logger) *Recorder {
	return &Recorder{
		lock:    lock,
		monitor: monitor,
		pusher:  pusher,
		log:     log.With(slog.String("component", "achievement")),
		now:     time.Now,
	}
}

// WithClock подменяет часы, используется в тестах
func (r *Recorder) WithClock(now localdb.Clock) *Recorder {
	r.now = now
	return r
}

// Record сохраняет значок, уведомление о нем и отметку о прохождении
// материала одной транзакцией. contentLocalID 0 - значок не привязан к
// материалу. Повторная выдача того же значка ничего не дублирует.
func (r *Recorder) Record(ctx context.Context, db *sql.DB, badge Badge, contentLocalID int64) (*Outcome, error) {
	if db == nil {
		return nil, ErrNilHandle
	}
	if badge.ID == 0 {
		return nil, ErrInvalidBadge
	}

	out := &Outcome{}
	err := r.lock.Do(ctx, func(ctx context.Context) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record: %w", err)
		}
		defer tx.Rollback()

		if err := r.record(ctx, tx, badge, contentLocalID, out); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("achievement recorded",
		slog.Int64("badge_id", badge.ID),
		slog.Int64("content_local_id", contentLocalID),
		slog.Bool("created", out.Created),
	)

	out.Pushed = r.pushBestEffort(ctx)
	return out, nil
}

func (r *Recorder) record(ctx context.Context, tx *sql.Tx, badge Badge, contentLocalID int64, out *Outcome) error {
	user, err := reconcile.ResolveUser(ctx, tx)
	if err != nil {
		return err
	}

	now := r.now()
	at := localdb.Timestamp(now)

	var serverContentID sql.NullInt64
	if contentLocalID != 0 {
		err := tx.QueryRowContext(ctx,
			`SELECT server_content_id FROM subject_contents WHERE content_local_id = ?`, contentLocalID,
		).Scan(&serverContentID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrContentNotFound, contentLocalID)
		}
		if err != nil {
			return fmt.Errorf("read content %d: %w", contentLocalID, err)
		}
	}

	contentRef := sql.NullInt64{Int64: contentLocalID, Valid: contentLocalID != 0}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO achievements (user_local_id, badge_id, title, icon, color,
			content_local_id, server_content_id, earned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_local_id, badge_id) DO NOTHING`,
		user.LocalID, badge.ID, badge.Title, badge.Icon, badge.Color, contentRef, serverContentID, at)
	if err != nil {
		return fmt.Errorf("insert achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	out.Created = n == 1

	err = tx.QueryRowContext(ctx,
		`SELECT achievement_local_id FROM achievements WHERE user_local_id = ? AND badge_id = ?`,
		user.LocalID, badge.ID,
	).Scan(&out.AchievementLocalID)
	if err != nil {
		return fmt.Errorf("read achievement: %w", err)
	}

	if out.Created {
		title := "Achievement unlocked"
		if badge.Title != "" {
			title += ": " + badge.Title
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (user_local_id, title, message, type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			user.LocalID, title, "You earned a new badge.", notificationType, at, localdb.Revision(now))
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		if out.NotificationLocalID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	if contentLocalID == 0 {
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE subject_contents SET done = 1, done_at = COALESCE(done_at, ?)
		WHERE content_local_id = ?`, at, contentLocalID)
	if err != nil {
		return fmt.Errorf("mark content done: %w", err)
	}

	// без серверного id прогресс не отправить: материал еще не приходил с сервера
	if !serverContentID.Valid {
		return nil
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO content_progress (user_local_id, content_local_id, server_content_id, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_local_id, server_content_id) DO UPDATE SET
			content_local_id = excluded.content_local_id`,
		user.LocalID, contentLocalID, serverContentID.Int64, at)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// pushBestEffort ошибки только логируются, на результат Record не влияют
func (r *Recorder) pushBestEffort(ctx context.Context) bool {
	if r.pusher == nil || r.monitor == nil {
		return false
	}
	if !r.monitor.Status(ctx).CanSync() {
		r.log.Debug("offline, push postponed")
		return false
	}

	if _, err := r.pusher.PushAll(ctx); err != nil {
		r.log.Warn("push after achievement failed", slog.Any("error", err))
		return false
	}
	return true
}
