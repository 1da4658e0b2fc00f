// Package downsync полная замена каталога на устройстве снимком с сервера.
package downsync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"edusync/internal/app/client/localdb"
	"edusync/internal/app/client/reconcile"
	"edusync/internal/app/client/writelock"
	"edusync/internal/domain/snapshot"

	"golang.org/x/exp/slog"
)

type Service struct {
	lock *writelock.Lock
	log  *slog.Logger
	now  localdb.Clock
}

func NewService(lock *writelock.Lock, log *slog.Logger) *Service {
	return &Service{
		lock: lock,
		log:  log.With(slog.String("component", "downsync")),
		now:  time.Now,
	}
}

// WithClock подменяет часы, используется в тестах
func (s *Service) WithClock(now localdb.Clock) *Service {
	s.now = now
	return s
}

// ApplySnapshot очищает таблицы каталога и заполняет их из снимка.
// Все делается одной транзакцией под блокировкой записи: при любой ошибке
// локальные данные остаются такими, какими были до вызова.
func (s *Service) ApplySnapshot(ctx context.Context, db *sql.DB, snap *snapshot.Snapshot) (*Result, error) {
	if db == nil {
		return nil, ErrNilHandle
	}
	if snap == nil {
		return nil, ErrNilSnapshot
	}

	start := time.Now()
	res := newResult()

	err := s.lock.Do(ctx, func(ctx context.Context) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin downsync: %w", err)
		}
		defer tx.Rollback()

		a := &applier{
			tx:  tx,
			log: s.log,
			res: res,
			now: localdb.Timestamp(s.now()),
		}

		steps := []struct {
			name string
			fn   func(context.Context, *snapshot.Snapshot) error
		}{
			{"clear", a.clear},
			{"sections", a.sections},
			{"subjects", a.subjects},
			{"lessons", a.lessons},
			{"subject_contents", a.contents},
			{"game_types", a.gameTypes},
			{"games", a.games},
			{"user_data", a.userData},
			{"classmates", a.classmates},
			{"subjects_in_section", a.subjectsInSection},
			{"relink", a.relink},
		}
		for _, step := range steps {
			if err := step.fn(ctx, snap); err != nil {
				return fmt.Errorf("downsync %s: %w", step.name, err)
			}
		}

		if err := localdb.SetLastDownsync(ctx, tx, a.now); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		s.log.Error("downsync rolled back", slog.Any("error", err))
		return nil, err
	}

	s.log.Info("downsync applied",
		slog.Any("inserted", res.Inserted),
		slog.Int("skipped", res.TotalSkipped()),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// applier состояние одного применения снимка
type applier struct {
	tx  *sql.Tx
	log *slog.Logger
	res *Result
	now string
}

func (a *applier) exec(ctx context.Context, query string, args ...any) error {
	_, err := a.tx.ExecContext(ctx, query, args...)
	return err
}

func (a *applier) skip(entity, reason string, attrs ...any) {
	a.res.skipped(entity)
	a.log.Warn("skipping "+entity+": "+reason, attrs...)
}

func (a *applier) clear(ctx context.Context, _ *snapshot.Snapshot) error {
	for _, table := range localdb.OwnedTables {
		if err := a.exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (a *applier) sections(ctx context.Context, snap *snapshot.Snapshot) error {
	for _, sec := range snap.Sections {
		err := a.exec(ctx, `
			INSERT INTO sections (server_section_id, teacher_id, teacher_name, section_name, school_year)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (server_section_id) DO UPDATE SET
				teacher_id = excluded.teacher_id,
				teacher_name = excluded.teacher_name,
				section_name = excluded.section_name,
				school_year = excluded.school_year`,
			sec.SectionID, sec.TeacherID, sec.TeacherName, sec.SectionName, sec.SchoolYear)
		if err != nil {
			return fmt.Errorf("section %d: %w", sec.SectionID, err)
		}
		a.res.inserted("sections")
	}
	return nil
}

func (a *applier) subjects(ctx context.Context, snap *snapshot.Snapshot) error {
	for _, sub := range snap.Subjects {
		err := a.exec(ctx, `
			INSERT INTO subjects (server_subject_id, subject_name, grade_level, description, is_public)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (server_subject_id) DO UPDATE SET
				subject_name = excluded.subject_name,
				grade_level = excluded.grade_level,
				description = excluded.description,
				is_public = excluded.is_public`,
			sub.SubjectID, sub.SubjectName, sub.GradeLevel, sub.Description, sub.IsPublic.Int())
		if err != nil {
			return fmt.Errorf("subject %d: %w", sub.SubjectID, err)
		}
		a.res.inserted("subjects")
	}
	return nil
}

func (a *applier) lessons(ctx context.Context, snap *snapshot.Snapshot) error {
	for _, l := range snap.Lessons {
		subjectID, ok, err := reconcile.ResolveLocalID(ctx, a.tx, reconcile.Subjects, l.SubjectBelong)
		if err != nil {
			return err
		}
		if !ok {
			a.skip("lessons", "parent subject not found",
				slog.Int64("lesson_id", l.LessonID), slog.Int64("subject_belong", l.SubjectBelong))
			continue
		}

		err = a.exec(ctx, `
			INSERT INTO lessons (server_lesson_id, subject_local_id, lesson_number, lesson_title, description, quarter)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (server_lesson_id) DO UPDATE SET
				subject_local_id = excluded.subject_local_id,
				lesson_number = excluded.lesson_number,
				lesson_title = excluded.lesson_title,
				description = excluded.description,
				quarter = excluded.quarter`,
			l.LessonID, subjectID, l.LessonNumber, l.LessonTitle, l.Description, l.Quarter)
		if err != nil {
			return fmt.Errorf("lesson %d: %w", l.LessonID, err)
		}
		a.res.inserted("lessons")
	}
	return nil
}

func (a *applier) contents(ctx context.Context, snap *snapshot.Snapshot) error {
	for _, c := range snap.SubjectContents {
		lessonID, ok, err := reconcile.ResolveLocalID(ctx, a.tx, reconcile.Lessons, c.LessonBelong)
		if err != nil {
			return err
		}
		if !ok {
			a.skip("subject_contents", "parent lesson not found",
				slog.Int64("content_id", c.ContentID), slog.Int64("lesson_belong", c.LessonBelong))
			continue
		}

		err = a.exec(ctx, `
			INSERT INTO subject_contents (server_content_id, lesson_local_id, content_type, url, title, description, file_name)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (server_content_id) DO UPDATE SET
				lesson_local_id = excluded.lesson_local_id,
				content_type = excluded.content_type,
				url = excluded.url,
				title = excluded.title,
				description = excluded.description,
				file_name = excluded.file_name`,
			c.ContentID, lessonID, c.ContentType, c.URL, c.Title, c.Description, c.FileName)
		if err != nil {
			return fmt.Errorf("content %d: %w", c.ContentID, err)
		}
		a.res.inserted("subject_contents")
	}
	return nil
}

func (a *applier) gameTypes(ctx context.Context, snap *snapshot.Snapshot) error {
	for _, gt := range snap.GameTypes {
		err := a.exec(ctx, `
			INSERT INTO game_types (server_game_type_id, name, description)
			VALUES (?, ?, ?)
			ON CONFLICT (server_game_type_id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description`,
			gt.GameTypeID, gt.Name, gt.Description)
		if err != nil {
			return fmt.Errorf("game type %d: %w", gt.GameTypeID, err)
		}
		a.res.inserted("game_types")
	}
	return nil
}

// games все три ссылки необязательные и разрешаются независимо
func (a *applier) games(ctx context.Context, snap *snapshot.Snapshot) error {
	for _, g := range snap.Games {
		subjectID, err := reconcile.ResolveOptional(ctx, a.tx, reconcile.Subjects, g.SubjectID)
		if err != nil {
			return err
		}
		contentID, err := reconcile.ResolveOptional(ctx, a.tx, reconcile.Contents, g.ContentID)
		if err != nil {
			return err
		}
		typeID, err := reconcile.ResolveOptional(ctx, a.tx, reconcile.GameTypes, g.GameTypeID)
		if err != nil {
			return err
		}

		err = a.exec(ctx, `
			INSERT INTO games (server_game_id, subject_local_id, content_local_id, game_type_local_id, title, description)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (server_game_id) DO UPDATE SET
				subject_local_id = excluded.subject_local_id,
				content_local_id = excluded.content_local_id,
				game_type_local_id = excluded.game_type_local_id,
				title = excluded.title,
				description = excluded.description`,
			g.GameID, subjectID, contentID, typeID, g.Title, g.Description)
		if err != nil {
			return fmt.Errorf("game %d: %w", g.GameID, err)
		}
		a.res.inserted("games")
	}
	return nil
}

// userData уведомления, результаты и значки ученика. Строки снимка
// считаются синхронизированными; локальные несинхронизированные правки
// не перезаписываются. synced_at выставляется только при первой вставке,
// чтобы повторный снимок давал те же байты.
func (a *applier) userData(ctx context.Context, snap *snapshot.Snapshot) error {
	if len(snap.Notifications)+len(snap.TestScores)+len(snap.Achievements) == 0 {
		return nil
	}

	user, err := reconcile.ResolveUser(ctx, a.tx)
	if err != nil {
		return err
	}

	for _, n := range snap.Notifications {
		updatedAt := n.CreatedAt
		if n.ReadAt != nil {
			updatedAt = *n.ReadAt
		}
		err := a.exec(ctx, `
			INSERT INTO notifications (server_notification_id, user_local_id, title, message, type,
				is_read, created_at, read_at, updated_at, is_synced, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
			ON CONFLICT (server_notification_id) DO UPDATE SET
				title = excluded.title,
				message = excluded.message,
				type = excluded.type,
				is_read = excluded.is_read,
				created_at = excluded.created_at,
				read_at = excluded.read_at,
				updated_at = excluded.updated_at,
				synced_at = COALESCE(notifications.synced_at, excluded.synced_at)
			WHERE notifications.is_synced = 1`,
			n.NotificationID, user.LocalID, n.Title, n.Message, n.Type,
			n.IsRead.Int(), n.CreatedAt, n.ReadAt, updatedAt, a.now)
		if err != nil {
			return fmt.Errorf("notification %d: %w", n.NotificationID, err)
		}
		a.res.inserted("notifications")
	}

	for _, sc := range snap.TestScores {
		err := a.exec(ctx, `
			INSERT INTO test_scores (server_score_id, user_local_id, test_id, score, max_score,
				attempt_number, taken_at, is_synced, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
			ON CONFLICT (user_local_id, test_id, attempt_number) DO UPDATE SET
				server_score_id = excluded.server_score_id,
				score = excluded.score,
				max_score = excluded.max_score,
				taken_at = excluded.taken_at,
				synced_at = COALESCE(test_scores.synced_at, excluded.synced_at)
			WHERE test_scores.is_synced = 1`,
			sc.ScoreID, user.LocalID, sc.TestID, sc.Score, sc.MaxScore,
			sc.AttemptNumber, sc.TakenAt, a.now)
		if err != nil {
			return fmt.Errorf("test score %d: %w", sc.ScoreID, err)
		}
		a.res.inserted("pupil_test_scores")
	}

	for _, ach := range snap.Achievements {
		contentID, err := reconcile.ResolveOptional(ctx, a.tx, reconcile.Contents, ach.ContentID)
		if err != nil {
			return err
		}
		err = a.exec(ctx, `
			INSERT INTO achievements (user_local_id, badge_id, content_local_id, server_content_id,
				earned_at, is_synced, synced_at)
			VALUES (?, ?, ?, ?, ?, 1, ?)
			ON CONFLICT (user_local_id, badge_id) DO UPDATE SET
				content_local_id = excluded.content_local_id,
				server_content_id = COALESCE(excluded.server_content_id, achievements.server_content_id),
				earned_at = excluded.earned_at,
				synced_at = COALESCE(achievements.synced_at, excluded.synced_at)
			WHERE achievements.is_synced = 1`,
			user.LocalID, ach.AchievementID, contentID, ach.ContentID, ach.EarnedAt, a.now)
		if err != nil {
			return fmt.Errorf("achievement %d: %w", ach.AchievementID, err)
		}
		a.res.inserted("pupil_achievements")
	}
	return nil
}

// classmates без section_id относятся к собственной секции ученика,
// то есть к первой секции снимка
func (a *applier) classmates(ctx context.Context, snap *snapshot.Snapshot) error {
	var ownSection *int64
	if len(snap.Sections) > 0 {
		ownSection = &snap.Sections[0].SectionID
	}

	for _, c := range snap.Classmates {
		serverSection := c.SectionID
		if serverSection == nil {
			serverSection = ownSection
		}
		if serverSection == nil {
			a.skip("classmates", "pupil has no section", slog.Int64("user_id", c.UserID))
			continue
		}

		sectionID, ok, err := reconcile.ResolveLocalID(ctx, a.tx, reconcile.Sections, *serverSection)
		if err != nil {
			return err
		}
		if !ok {
			a.skip("classmates", "section not found",
				slog.Int64("user_id", c.UserID), slog.Int64("section_id", *serverSection))
			continue
		}

		err = a.exec(ctx, `
			INSERT INTO classmates (pupil_id, full_name, section_local_id)
			VALUES (?, ?, ?)
			ON CONFLICT (pupil_id, section_local_id) DO UPDATE SET
				full_name = excluded.full_name`,
			c.UserID, c.FullName, sectionID)
		if err != nil {
			return fmt.Errorf("classmate %d: %w", c.UserID, err)
		}
		a.res.inserted("classmates")
	}
	return nil
}

// subjectsInSection последними: обе стороны уже должны быть на месте
func (a *applier) subjectsInSection(ctx context.Context, snap *snapshot.Snapshot) error {
	for _, sis := range snap.SubjectsInSection {
		sectionID, okSection, err := reconcile.ResolveLocalID(ctx, a.tx, reconcile.Sections, sis.SectionBelong)
		if err != nil {
			return err
		}
		subjectID, okSubject, err := reconcile.ResolveLocalID(ctx, a.tx, reconcile.Subjects, sis.SubjectID)
		if err != nil {
			return err
		}
		if !okSection || !okSubject {
			a.skip("subjects_in_section", "section or subject not found",
				slog.Int64("section_belong", sis.SectionBelong), slog.Int64("subject_id", sis.SubjectID))
			continue
		}

		err = a.exec(ctx, `
			INSERT INTO subjects_in_section (section_local_id, subject_local_id, assigned_at)
			VALUES (?, ?, ?)
			ON CONFLICT (section_local_id, subject_local_id) DO UPDATE SET
				assigned_at = excluded.assigned_at`,
			sectionID, subjectID, sis.AssignedAt)
		if err != nil {
			return fmt.Errorf("subject %d in section %d: %w", sis.SubjectID, sis.SectionBelong, err)
		}
		a.res.inserted("subjects_in_section")
	}
	return nil
}

// relink восстанавливает ссылки пользовательских таблиц на пересозданные
// материалы (при очистке они стали NULL) и переносит отметки о прохождении.
func (a *applier) relink(ctx context.Context, _ *snapshot.Snapshot) error {
	stmts := []string{
		`UPDATE achievements SET content_local_id = (
			SELECT c.content_local_id FROM subject_contents c
			WHERE c.server_content_id = achievements.server_content_id)
		 WHERE server_content_id IS NOT NULL`,
		`UPDATE content_progress SET content_local_id = (
			SELECT c.content_local_id FROM subject_contents c
			WHERE c.server_content_id = content_progress.server_content_id)`,
		`UPDATE subject_contents SET
			done = 1,
			done_at = (SELECT MIN(p.completed_at) FROM content_progress p
			           WHERE p.content_local_id = subject_contents.content_local_id)
		 WHERE content_local_id IN (SELECT content_local_id FROM content_progress
		                            WHERE content_local_id IS NOT NULL)`,
	}
	for _, stmt := range stmts {
		if err := a.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
