package upsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"edusync/internal/app/client/localdb"
	"edusync/internal/domain/sync"
)

var groupTables = map[sync.Group]string{
	sync.GroupScores:        "test_scores",
	sync.GroupAnswers:       "answers",
	sync.GroupProgress:      "content_progress",
	sync.GroupAchievements:  "achievements",
	sync.GroupNotifications: "notifications",
}

// batch несинхронизированные строки одной группы. revisions заполняется
// только для уведомлений.
type batch[R any] struct {
	localIDs  []int64
	records   []R
	revisions []string
}

func (b *batch[R]) len() int {
	return len(b.records)
}

func readDirty[R any](ctx context.Context, q localdb.Querier, query string, userLocalID int64,
	scan func(rows *sql.Rows, b *batch[R]) error) (*batch[R], error) {
	rows, err := q.QueryContext(ctx, query, userLocalID)
	if err != nil {
		return nil, fmt.Errorf("read dirty rows: %w", err)
	}
	defer rows.Close()

	b := &batch[R]{}
	for rows.Next() {
		if err := scan(rows, b); err != nil {
			return nil, fmt.Errorf("scan dirty row: %w", err)
		}
	}
	return b, rows.Err()
}

func readScores(ctx context.Context, q localdb.Querier, userLocalID int64) (*batch[sync.ScoreRecord], error) {
	return readDirty(ctx, q, `
		SELECT score_local_id, server_score_id, test_id, score, max_score, attempt_number, taken_at
		FROM test_scores WHERE user_local_id = ? AND is_synced = 0
		ORDER BY score_local_id`, userLocalID,
		func(rows *sql.Rows, b *batch[sync.ScoreRecord]) error {
			var (
				r        sync.ScoreRecord
				serverID sql.NullInt64
			)
			if err := rows.Scan(&r.LocalID, &serverID, &r.TestID, &r.Score, &r.MaxScore, &r.AttemptNumber, &r.TakenAt); err != nil {
				return err
			}
			r.ScoreID = nullablePtr(serverID)
			b.localIDs = append(b.localIDs, r.LocalID)
			b.records = append(b.records, r)
			return nil
		})
}

func readAnswers(ctx context.Context, q localdb.Querier, userLocalID int64) (*batch[sync.AnswerRecord], error) {
	return readDirty(ctx, q, `
		SELECT answer_local_id, test_id, question_id, choice_id, attempt_number, answered_at
		FROM answers WHERE user_local_id = ? AND is_synced = 0
		ORDER BY answer_local_id`, userLocalID,
		func(rows *sql.Rows, b *batch[sync.AnswerRecord]) error {
			var (
				r      sync.AnswerRecord
				choice sql.NullInt64
			)
			if err := rows.Scan(&r.LocalID, &r.TestID, &r.QuestionID, &choice, &r.AttemptNumber, &r.AnsweredAt); err != nil {
				return err
			}
			r.ChoiceID = nullablePtr(choice)
			b.localIDs = append(b.localIDs, r.LocalID)
			b.records = append(b.records, r)
			return nil
		})
}

func readProgress(ctx context.Context, q localdb.Querier, userLocalID int64) (*batch[sync.ProgressRecord], error) {
	return readDirty(ctx, q, `
		SELECT progress_local_id, server_content_id, completed_at
		FROM content_progress WHERE user_local_id = ? AND is_synced = 0
		ORDER BY progress_local_id`, userLocalID,
		func(rows *sql.Rows, b *batch[sync.ProgressRecord]) error {
			var r sync.ProgressRecord
			if err := rows.Scan(&r.LocalID, &r.ContentID, &r.CompletedAt); err != nil {
				return err
			}
			b.localIDs = append(b.localIDs, r.LocalID)
			b.records = append(b.records, r)
			return nil
		})
}

func readAchievements(ctx context.Context, q localdb.Querier, userLocalID int64) (*batch[sync.AchievementRecord], error) {
	return readDirty(ctx, q, `
		SELECT achievement_local_id, badge_id, earned_at, server_content_id
		FROM achievements WHERE user_local_id = ? AND is_synced = 0
		ORDER BY achievement_local_id`, userLocalID,
		func(rows *sql.Rows, b *batch[sync.AchievementRecord]) error {
			var (
				r       sync.AchievementRecord
				content sql.NullInt64
			)
			if err := rows.Scan(&r.LocalID, &r.AchievementID, &r.EarnedAt, &content); err != nil {
				return err
			}
			r.ContentID = nullablePtr(content)
			b.localIDs = append(b.localIDs, r.LocalID)
			b.records = append(b.records, r)
			return nil
		})
}

func readNotifications(ctx context.Context, q localdb.Querier, userLocalID int64) (*batch[sync.NotificationRecord], error) {
	return readDirty(ctx, q, `
		SELECT notification_local_id, server_notification_id, title, message, type,
			is_read, created_at, read_at, updated_at
		FROM notifications WHERE user_local_id = ? AND is_synced = 0
		ORDER BY notification_local_id`, userLocalID,
		func(rows *sql.Rows, b *batch[sync.NotificationRecord]) error {
			var (
				r        sync.NotificationRecord
				serverID sql.NullInt64
				readAt   sql.NullString
				revision string
			)
			if err := rows.Scan(&r.LocalID, &serverID, &r.Title, &r.Message, &r.Type,
				&r.IsRead, &r.CreatedAt, &readAt, &revision); err != nil {
				return err
			}
			r.NotificationID = nullablePtr(serverID)
			if readAt.Valid {
				r.ReadAt = &readAt.String
			}
			b.localIDs = append(b.localIDs, r.LocalID)
			b.records = append(b.records, r)
			b.revisions = append(b.revisions, revision)
			return nil
		})
}

// markSynced пометка для групп, где строка не меняется после создания
func markSynced(table, serverIDCol, localIDCol string) func(context.Context, *sql.Tx, []int64, []string, []int64, string) (int, error) {
	query := "UPDATE " + table + " SET " + serverIDCol + " = ?, is_synced = 1, synced_at = ? WHERE " +
		localIDCol + " = ? AND is_synced = 0"

	return func(ctx context.Context, tx *sql.Tx, localIDs []int64, _ []string, ids []int64, at string) (int, error) {
		marked := 0
		for i, localID := range localIDs {
			res, err := tx.ExecContext(ctx, query, ids[i], at, localID)
			if err != nil {
				return 0, fmt.Errorf("mark %s %d: %w", table, localID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, err
			}
			marked += int(n)
		}
		return marked, nil
	}
}

// markNotifications серверный id записывается всегда, иначе следующий
// push создаст дубликат. Синхронизированной строка становится только если
// updated_at не изменился с момента чтения.
func markNotifications(ctx context.Context, tx *sql.Tx, localIDs []int64, revisions []string, ids []int64, at string) (int, error) {
	marked := 0
	for i, localID := range localIDs {
		if err := mergeDownsynced(ctx, tx, localID, ids[i]); err != nil {
			return 0, err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE notifications SET server_notification_id = ? WHERE notification_local_id = ?`,
			ids[i], localID)
		if err != nil {
			return 0, fmt.Errorf("write back notification id %d: %w", localID, err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE notifications SET is_synced = 1, synced_at = ?
			WHERE notification_local_id = ? AND updated_at = ?`,
			at, localID, revisions[i])
		if err != nil {
			return 0, fmt.Errorf("mark notification %d: %w", localID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		marked += int(n)
	}
	return marked, nil
}

// mergeDownsynced пока шел запрос, downsync мог уже принести строку с этим
// серверным id. Копия удаляется, состояние прочтения переходит на локальную
// строку. Если копию успели изменить после downsync, строка остается
// несинхронизированной.
func mergeDownsynced(ctx context.Context, tx *sql.Tx, localID, serverID int64) error {
	var (
		copyID    int64
		isRead    int
		readAt    sql.NullString
		updatedAt string
		synced    int
	)
	err := tx.QueryRowContext(ctx, `
		SELECT notification_local_id, is_read, read_at, updated_at, is_synced
		FROM notifications
		WHERE server_notification_id = ? AND notification_local_id <> ?`,
		serverID, localID).Scan(&copyID, &isRead, &readAt, &updatedAt, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find downsynced notification %d: %w", serverID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE notification_local_id = ?`, copyID); err != nil {
		return fmt.Errorf("drop downsynced notification %d: %w", serverID, err)
	}

	query := `
		UPDATE notifications SET is_read = MAX(is_read, ?), read_at = COALESCE(read_at, ?)
		WHERE notification_local_id = ?`
	args := []any{isRead, readAt, localID}
	if synced == 0 {
		query = `
			UPDATE notifications SET is_read = MAX(is_read, ?), read_at = COALESCE(read_at, ?), updated_at = ?
			WHERE notification_local_id = ?`
		args = []any{isRead, readAt, updatedAt, localID}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("merge notification %d: %w", serverID, err)
	}
	return nil
}

func nullablePtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
