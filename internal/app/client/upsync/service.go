// Package upsync отправляет на сервер данные, созданные на устройстве.
// Каждая группа (результаты, ответы, прогресс, значки, уведомления)
// отправляется и помечается независимо от остальных.
package upsync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"edusync/internal/app/client/localdb"
	"edusync/internal/app/client/reconcile"
	"edusync/internal/app/client/writelock"
	"edusync/internal/domain/sync"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"
)

const statusOK = "Ok"

type Service struct {
	db        *sql.DB
	lock      *writelock.Lock
	transport Transport
	log       *slog.Logger
	now       localdb.Clock
	flight    singleflight.Group
}

func NewService(db *sql.DB, lock *writelock.Lock, transport Transport, log *slog.Logger) *Service {
	return &Service{
		db:        db,
		lock:      lock,
		transport: transport,
		log:       log.With(slog.String("component", "upsync")),
		now:       time.Now,
	}
}

// WithClock подменяет часы, используется в тестах
func (s *Service) WithClock(now localdb.Clock) *Service {
	s.now = now
	return s
}

// PushAll отправляет все группы по очереди. Ошибка одной группы не
// откатывает и не останавливает остальные. Одновременные вызовы
// склеиваются в один проход.
func (s *Service) PushAll(ctx context.Context) (*Report, error) {
	v, err, shared := s.flight.Do("push_all", func() (any, error) {
		return s.pushAll(ctx)
	})
	if shared {
		s.log.Debug("push_all coalesced")
	}
	if v == nil {
		return nil, err
	}
	return v.(*Report), err
}

func (s *Service) pushAll(ctx context.Context) (*Report, error) {
	if s.db == nil {
		return nil, ErrNilHandle
	}

	start := time.Now()
	report := newReport()

	groups := map[sync.Group]func(context.Context) (int, error){
		sync.GroupScores:        s.PushScores,
		sync.GroupAnswers:       s.PushAnswers,
		sync.GroupProgress:      s.PushProgress,
		sync.GroupAchievements:  s.PushAchievements,
		sync.GroupNotifications: s.PushNotifications,
	}
	for _, group := range sync.Groups {
		n, err := groups[group](ctx)
		if err != nil {
			report.Errors = append(report.Errors, &GroupError{Group: group, Err: err})
			continue
		}
		report.Pushed[group] = n
	}

	if len(report.Errors) == 0 {
		err := s.lock.Do(ctx, func(ctx context.Context) error {
			return localdb.SetLastUpsync(ctx, s.db, localdb.Timestamp(s.now()))
		})
		if err != nil {
			return report, err
		}
	}

	s.log.Info("upsync finished",
		slog.Int("pushed", report.Total()),
		slog.Int("failed_groups", len(report.Errors)),
		slog.Duration("duration", time.Since(start)),
	)
	return report, report.Err()
}

func (s *Service) PushScores(ctx context.Context) (int, error) {
	return push(ctx, s, groupOps[sync.ScoreRecord]{
		group: sync.GroupScores,
		read:  readScores,
		send: func(ctx context.Context, pupilID int64, records []sync.ScoreRecord) (*sync.PushResponse, error) {
			return s.transport.PushScores(ctx, sync.PushScoresRequest{PupilID: pupilID, Scores: records})
		},
		mark: markSynced("test_scores", "server_score_id", "score_local_id"),
	})
}

func (s *Service) PushAnswers(ctx context.Context) (int, error) {
	return push(ctx, s, groupOps[sync.AnswerRecord]{
		group: sync.GroupAnswers,
		read:  readAnswers,
		send: func(ctx context.Context, pupilID int64, records []sync.AnswerRecord) (*sync.PushResponse, error) {
			return s.transport.PushAnswers(ctx, sync.PushAnswersRequest{PupilID: pupilID, Answers: records})
		},
		mark: markSynced("answers", "server_answer_id", "answer_local_id"),
	})
}

func (s *Service) PushProgress(ctx context.Context) (int, error) {
	return push(ctx, s, groupOps[sync.ProgressRecord]{
		group: sync.GroupProgress,
		read:  readProgress,
		send: func(ctx context.Context, pupilID int64, records []sync.ProgressRecord) (*sync.PushResponse, error) {
			return s.transport.PushProgress(ctx, sync.PushProgressRequest{PupilID: pupilID, Progress: records})
		},
		mark: markSynced("content_progress", "server_progress_id", "progress_local_id"),
	})
}

func (s *Service) PushAchievements(ctx context.Context) (int, error) {
	return push(ctx, s, groupOps[sync.AchievementRecord]{
		group: sync.GroupAchievements,
		read:  readAchievements,
		send: func(ctx context.Context, pupilID int64, records []sync.AchievementRecord) (*sync.PushResponse, error) {
			return s.transport.PushAchievements(ctx, sync.PushAchievementsRequest{PupilID: pupilID, Achievements: records})
		},
		mark: markSynced("achievements", "server_achievement_id", "achievement_local_id"),
	})
}

// PushNotifications уведомление, прочитанное во время запроса, остается
// несинхронизированным и уйдет в следующий раз
func (s *Service) PushNotifications(ctx context.Context) (int, error) {
	return push(ctx, s, groupOps[sync.NotificationRecord]{
		group: sync.GroupNotifications,
		read:  readNotifications,
		send: func(ctx context.Context, pupilID int64, records []sync.NotificationRecord) (*sync.PushResponse, error) {
			return s.transport.PushNotifications(ctx, sync.PushNotificationsRequest{PupilID: pupilID, Notifications: records})
		},
		mark: markNotifications,
	})
}

// groupOps чтение, отправка и пометка одной группы
type groupOps[R any] struct {
	group sync.Group
	read  func(ctx context.Context, q localdb.Querier, userLocalID int64) (*batch[R], error)
	send  func(ctx context.Context, pupilID int64, records []R) (*sync.PushResponse, error)
	mark  func(ctx context.Context, tx *sql.Tx, localIDs []int64, revisions []string, ids []int64, at string) (int, error)
}

// push чтение и пометка идут под блокировкой, сетевой запрос без нее
func push[R any](ctx context.Context, s *Service, ops groupOps[R]) (int, error) {
	if s.db == nil {
		return 0, ErrNilHandle
	}
	log := s.log.With(slog.String("group", string(ops.group)))

	var (
		user reconcile.User
		b    *batch[R]
	)
	err := s.lock.Do(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin read: %w", err)
		}
		defer tx.Rollback()

		user, err = reconcile.ResolveUser(ctx, tx)
		if err != nil {
			return err
		}
		b, err = ops.read(ctx, tx, user.LocalID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if b.len() == 0 {
		return 0, nil
	}

	resp, err := ops.send(ctx, user.ServerID, b.records)
	if err != nil {
		log.Warn("push failed", slog.Int("rows", b.len()), slog.Any("error", err))
		return 0, err
	}
	if resp.Status != statusOK {
		return 0, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	if len(resp.IDs) != b.len() {
		return 0, fmt.Errorf("%w: sent %d, got %d", ErrIDCountMismatch, b.len(), len(resp.IDs))
	}

	var marked int
	err = s.lock.Do(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin mark: %w", err)
		}
		defer tx.Rollback()

		marked, err = ops.mark(ctx, tx, b.localIDs, b.revisions, resp.IDs, localdb.Timestamp(s.now()))
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}

	log.Info("group pushed", slog.Int("sent", b.len()), slog.Int("marked", marked))
	return marked, nil
}

// Pending число несинхронизированных строк по группам
func (s *Service) Pending(ctx context.Context) (map[sync.Group]int, error) {
	if s.db == nil {
		return nil, ErrNilHandle
	}

	pending := make(map[sync.Group]int, len(groupTables))
	for group, table := range groupTables {
		var n int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE is_synced = 0").Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		pending[group] = n
	}
	return pending, nil
}
