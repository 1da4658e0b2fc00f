package postgres

import (
	"context"
	"errors"
	"fmt"

	"edusync/internal/domain/snapshot"
	"edusync/internal/domain/sync"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"
)

const tsFormat = `'YYYY-MM-DD HH24:MI:SS'`

// SyncRepository реализация sync.Repository для PostgreSQL
type SyncRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewSyncRepository(db *Storage, log *slog.Logger) *SyncRepository {
	return &SyncRepository{
		db:  db,
		log: log.With(slog.String("component", "sync_repository")),
	}
}

var _ sync.Repository = (*SyncRepository)(nil)

// Snapshot собирает снимок в одной read-only транзакции, чтобы все части
// были согласованы между собой.
func (r *SyncRepository) Snapshot(ctx context.Context, pupilID int64) (*snapshot.Snapshot, error) {
	snap := &snapshot.Snapshot{}

	err := pgx.BeginTxFunc(ctx, r.db.Pool(), pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		steps := []struct {
			name string
			fn   func(context.Context, pgx.Tx, int64, *snapshot.Snapshot) error
		}{
			{"sections", querySections},
			{"subjects", querySubjects},
			{"subjects_in_section", querySubjectsInSection},
			{"lessons", queryLessons},
			{"subject_contents", queryContents},
			{"game_types", queryGameTypes},
			{"games", queryGames},
			{"notifications", queryNotifications},
			{"pupil_test_scores", queryScores},
			{"pupil_achievements", queryAchievements},
			{"classmates", queryClassmates},
		}
		for _, step := range steps {
			if err := step.fn(ctx, tx, pupilID, snap); err != nil {
				return fmt.Errorf("%s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// subjectsOfPupil предметы разделов ученика плюс публичные
const subjectsOfPupil = `
	SELECT s.id FROM subjects s
	WHERE s.is_public
	   OR s.id IN (SELECT sis.subject_id FROM subjects_in_section sis
	               JOIN section_pupils sp ON sp.section_id = sis.section_id
	               WHERE sp.pupil_id = $1)`

func querySections(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT sec.id, sec.teacher_id, COALESCE(t.full_name, ''), sec.section_name, sec.school_year
		FROM sections sec
		JOIN section_pupils sp ON sp.section_id = sec.id
		LEFT JOIN teachers t ON t.id = sec.teacher_id
		WHERE sp.pupil_id = $1
		ORDER BY sec.id`, pupilID)
	if err != nil {
		return err
	}
	snap.Sections, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Section, error) {
		var s snapshot.Section
		err := row.Scan(&s.SectionID, &s.TeacherID, &s.TeacherName, &s.SectionName, &s.SchoolYear)
		return s, err
	})
	return err
}

func querySubjects(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT id, subject_name, grade_level, description, is_public
		FROM subjects WHERE id IN (`+subjectsOfPupil+`)
		ORDER BY id`, pupilID)
	if err != nil {
		return err
	}
	snap.Subjects, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Subject, error) {
		var s snapshot.Subject
		var public bool
		err := row.Scan(&s.SubjectID, &s.SubjectName, &s.GradeLevel, &s.Description, &public)
		s.IsPublic = snapshot.Flag(public)
		return s, err
	})
	return err
}

func querySubjectsInSection(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT sis.section_id, sis.subject_id, to_char(sis.assigned_at, `+tsFormat+`)
		FROM subjects_in_section sis
		JOIN section_pupils sp ON sp.section_id = sis.section_id
		WHERE sp.pupil_id = $1
		ORDER BY sis.section_id, sis.subject_id`, pupilID)
	if err != nil {
		return err
	}
	snap.SubjectsInSection, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.SubjectInSection, error) {
		var s snapshot.SubjectInSection
		err := row.Scan(&s.SectionBelong, &s.SubjectID, &s.AssignedAt)
		return s, err
	})
	return err
}

func queryLessons(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT id, lesson_number, lesson_title, description, subject_id, quarter
		FROM lessons WHERE subject_id IN (`+subjectsOfPupil+`)
		ORDER BY id`, pupilID)
	if err != nil {
		return err
	}
	snap.Lessons, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Lesson, error) {
		var l snapshot.Lesson
		err := row.Scan(&l.LessonID, &l.LessonNumber, &l.LessonTitle, &l.Description, &l.SubjectBelong, &l.Quarter)
		return l, err
	})
	return err
}

func queryContents(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT c.id, c.lesson_id, c.content_type, c.url, c.title, c.description, c.file_name
		FROM subject_contents c
		JOIN lessons l ON l.id = c.lesson_id
		WHERE l.subject_id IN (`+subjectsOfPupil+`)
		ORDER BY c.id`, pupilID)
	if err != nil {
		return err
	}
	snap.SubjectContents, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.SubjectContent, error) {
		var c snapshot.SubjectContent
		err := row.Scan(&c.ContentID, &c.LessonBelong, &c.ContentType, &c.URL, &c.Title, &c.Description, &c.FileName)
		return c, err
	})
	return err
}

func queryGameTypes(ctx context.Context, tx pgx.Tx, _ int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `SELECT id, name, description FROM game_types ORDER BY id`)
	if err != nil {
		return err
	}
	snap.GameTypes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.GameType, error) {
		var g snapshot.GameType
		err := row.Scan(&g.GameTypeID, &g.Name, &g.Description)
		return g, err
	})
	return err
}

func queryGames(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT id, subject_id, content_id, game_type_id, title, description
		FROM games
		WHERE subject_id IS NULL OR subject_id IN (`+subjectsOfPupil+`)
		ORDER BY id`, pupilID)
	if err != nil {
		return err
	}
	snap.Games, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Game, error) {
		var g snapshot.Game
		err := row.Scan(&g.GameID, &g.SubjectID, &g.ContentID, &g.GameTypeID, &g.Title, &g.Description)
		return g, err
	})
	return err
}

func queryNotifications(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT id, title, message, type, is_read, created_at, read_at
		FROM notifications WHERE pupil_id = $1
		ORDER BY id`, pupilID)
	if err != nil {
		return err
	}
	snap.Notifications, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Notification, error) {
		var n snapshot.Notification
		var read bool
		err := row.Scan(&n.NotificationID, &n.Title, &n.Message, &n.Type, &read, &n.CreatedAt, &n.ReadAt)
		n.IsRead = snapshot.Flag(read)
		return n, err
	})
	return err
}

func queryScores(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT id, test_id, score, max_score, attempt_number, taken_at
		FROM test_scores WHERE pupil_id = $1
		ORDER BY id`, pupilID)
	if err != nil {
		return err
	}
	snap.TestScores, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.TestScore, error) {
		var s snapshot.TestScore
		err := row.Scan(&s.ScoreID, &s.TestID, &s.Score, &s.MaxScore, &s.AttemptNumber, &s.TakenAt)
		return s, err
	})
	return err
}

func queryAchievements(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT achievement_id, earned_at, content_id
		FROM pupil_achievements WHERE pupil_id = $1
		ORDER BY id`, pupilID)
	if err != nil {
		return err
	}
	snap.Achievements, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Achievement, error) {
		var a snapshot.Achievement
		err := row.Scan(&a.AchievementID, &a.EarnedAt, &a.ContentID)
		return a, err
	})
	return err
}

func queryClassmates(ctx context.Context, tx pgx.Tx, pupilID int64, snap *snapshot.Snapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT p.id, p.full_name, other.section_id
		FROM section_pupils mine
		JOIN section_pupils other ON other.section_id = mine.section_id AND other.pupil_id <> mine.pupil_id
		JOIN pupils p ON p.id = other.pupil_id
		WHERE mine.pupil_id = $1
		ORDER BY other.section_id, p.id`, pupilID)
	if err != nil {
		return err
	}
	snap.Classmates, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (snapshot.Classmate, error) {
		var c snapshot.Classmate
		var sectionID int64
		err := row.Scan(&c.UserID, &c.FullName, &sectionID)
		c.SectionID = &sectionID
		return c, err
	})
	return err
}

// upsertAll пишет все записи одной транзакцией и возвращает id в порядке записей
func upsertAll[T any](ctx context.Context, s *Storage, records []T, one func(context.Context, pgx.Tx, T) (int64, error)) ([]int64, error) {
	ids := make([]int64, 0, len(records))
	if len(records) == 0 {
		return ids, nil
	}

	err := pgx.BeginFunc(ctx, s.Pool(), func(tx pgx.Tx) error {
		for i, rec := range records {
			id, err := one(ctx, tx, rec)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SyncRepository) UpsertScores(ctx context.Context, pupilID int64, records []sync.ScoreRecord) ([]int64, error) {
	return upsertAll(ctx, r.db, records, func(ctx context.Context, tx pgx.Tx, rec sync.ScoreRecord) (int64, error) {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO test_scores (pupil_id, test_id, score, max_score, attempt_number, taken_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (pupil_id, test_id, attempt_number) DO UPDATE SET
				score = EXCLUDED.score,
				max_score = EXCLUDED.max_score,
				taken_at = EXCLUDED.taken_at
			RETURNING id`,
			pupilID, rec.TestID, rec.Score, rec.MaxScore, rec.AttemptNumber, rec.TakenAt).Scan(&id)
		return id, err
	})
}

func (r *SyncRepository) UpsertAnswers(ctx context.Context, pupilID int64, records []sync.AnswerRecord) ([]int64, error) {
	return upsertAll(ctx, r.db, records, func(ctx context.Context, tx pgx.Tx, rec sync.AnswerRecord) (int64, error) {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO answers (pupil_id, test_id, question_id, choice_id, attempt_number, answered_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (pupil_id, question_id, attempt_number) DO UPDATE SET
				test_id = EXCLUDED.test_id,
				choice_id = EXCLUDED.choice_id,
				answered_at = EXCLUDED.answered_at
			RETURNING id`,
			pupilID, rec.TestID, rec.QuestionID, rec.ChoiceID, rec.AttemptNumber, rec.AnsweredAt).Scan(&id)
		return id, err
	})
}

func (r *SyncRepository) UpsertProgress(ctx context.Context, pupilID int64, records []sync.ProgressRecord) ([]int64, error) {
	return upsertAll(ctx, r.db, records, func(ctx context.Context, tx pgx.Tx, rec sync.ProgressRecord) (int64, error) {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO content_progress (pupil_id, content_id, completed_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (pupil_id, content_id) DO UPDATE SET
				completed_at = EXCLUDED.completed_at
			RETURNING id`,
			pupilID, rec.ContentID, rec.CompletedAt).Scan(&id)
		return id, err
	})
}

func (r *SyncRepository) UpsertAchievements(ctx context.Context, pupilID int64, records []sync.AchievementRecord) ([]int64, error) {
	return upsertAll(ctx, r.db, records, func(ctx context.Context, tx pgx.Tx, rec sync.AchievementRecord) (int64, error) {
		var id int64
		// earned_at не перезаписывается: значок получен в первый раз
		err := tx.QueryRow(ctx, `
			INSERT INTO pupil_achievements (pupil_id, achievement_id, content_id, earned_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (pupil_id, achievement_id) DO UPDATE SET
				content_id = COALESCE(pupil_achievements.content_id, EXCLUDED.content_id)
			RETURNING id`,
			pupilID, rec.AchievementID, rec.ContentID, rec.EarnedAt).Scan(&id)
		return id, err
	})
}

// UpsertNotifications без id вставляет запись. Обновление уведомления,
// которого на сервере уже нет, тоже превращается во вставку: клиент получит
// новый id и перестанет присылать устаревший.
func (r *SyncRepository) UpsertNotifications(ctx context.Context, pupilID int64, records []sync.NotificationRecord) ([]int64, error) {
	return upsertAll(ctx, r.db, records, func(ctx context.Context, tx pgx.Tx, rec sync.NotificationRecord) (int64, error) {
		var id int64
		if rec.NotificationID != nil {
			err := tx.QueryRow(ctx, `
				UPDATE notifications SET is_read = $3, read_at = $4
				WHERE id = $1 AND pupil_id = $2
				RETURNING id`,
				*rec.NotificationID, pupilID, rec.IsRead, rec.ReadAt).Scan(&id)
			if err == nil {
				return id, nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return 0, err
			}
			r.log.Warn("notification not found, inserting",
				slog.Int64("pupil_id", pupilID), slog.Int64("notification_id", *rec.NotificationID))
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO notifications (pupil_id, title, message, type, is_read, created_at, read_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			pupilID, rec.Title, rec.Message, rec.Type, rec.IsRead, rec.CreatedAt, rec.ReadAt).Scan(&id)
		return id, err
	})
}
