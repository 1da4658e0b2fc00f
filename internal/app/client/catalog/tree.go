// Package catalog чтение каталога из локальной БД в виде дерева
// предмет → урок → материал.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"edusync/internal/app/client/localdb"
)

type Content struct {
	LocalID  int64  `json:"content_local_id"`
	ServerID int64  `json:"content_id"`
	Type     string `json:"content_type"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Done     bool   `json:"done"`
	DoneAt   string `json:"done_at,omitempty"`
}

type Lesson struct {
	LocalID  int64     `json:"lesson_local_id"`
	ServerID int64     `json:"lesson_id"`
	Number   *int64    `json:"lesson_number,omitempty"`
	Title    string    `json:"lesson_title"`
	Quarter  int       `json:"quarter"`
	Contents []Content `json:"contents"`
}

type Subject struct {
	LocalID    int64    `json:"subject_local_id"`
	ServerID   int64    `json:"subject_id"`
	Name       string   `json:"subject_name"`
	GradeLevel string   `json:"grade_level"`
	IsPublic   bool     `json:"is_public"`
	Sections   []string `json:"sections"`
	Lessons    []Lesson `json:"lessons"`
}

// Attached предмет назначен хотя бы одной секции
func (s Subject) Attached() bool {
	return len(s.Sections) > 0
}

// ErrNilHandle SubjectTree вызван без хэндла БД
var ErrNilHandle = errors.New("local database handle is nil")

// SubjectTree все предметы с уроками и материалами. Порядок: предметы по
// имени, уроки по четверти и номеру, материалы по локальному id.
// Все чтения идут в одной транзакции: downsync переиспользует локальные id,
// и коммит между запросами прицепил бы материалы к чужому уроку.
func SubjectTree(ctx context.Context, db *sql.DB) ([]Subject, error) {
	if db == nil {
		return nil, ErrNilHandle
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	subjects, index, err := readSubjects(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := readSections(ctx, tx, subjects, index); err != nil {
		return nil, err
	}

	lessons, lessonIndex, err := readLessons(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := readContents(ctx, tx, lessons, lessonIndex); err != nil {
		return nil, err
	}

	for _, l := range lessons {
		i, ok := index[l.subject]
		if !ok {
			continue
		}
		subjects[i].Lessons = append(subjects[i].Lessons, l.Lesson)
	}
	return subjects, nil
}

func readSubjects(ctx context.Context, q localdb.Querier) ([]Subject, map[int64]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT subject_local_id, COALESCE(server_subject_id, 0), subject_name, grade_level, is_public
		FROM subjects ORDER BY subject_name, subject_local_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("read subjects: %w", err)
	}
	defer rows.Close()

	var subjects []Subject
	index := make(map[int64]int)
	for rows.Next() {
		s := Subject{Sections: []string{}, Lessons: []Lesson{}}
		if err := rows.Scan(&s.LocalID, &s.ServerID, &s.Name, &s.GradeLevel, &s.IsPublic); err != nil {
			return nil, nil, fmt.Errorf("scan subject: %w", err)
		}
		index[s.LocalID] = len(subjects)
		subjects = append(subjects, s)
	}
	return subjects, index, rows.Err()
}

func readSections(ctx context.Context, q localdb.Querier, subjects []Subject, index map[int64]int) error {
	rows, err := q.QueryContext(ctx, `
		SELECT sis.subject_local_id, s.section_name
		FROM subjects_in_section sis JOIN sections s ON s.section_local_id = sis.section_local_id
		ORDER BY s.section_name`)
	if err != nil {
		return fmt.Errorf("read sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			subjectID int64
			name      string
		)
		if err := rows.Scan(&subjectID, &name); err != nil {
			return fmt.Errorf("scan section: %w", err)
		}
		if i, ok := index[subjectID]; ok {
			subjects[i].Sections = append(subjects[i].Sections, name)
		}
	}
	return rows.Err()
}

type lessonRow struct {
	Lesson
	subject int64
}

func readLessons(ctx context.Context, q localdb.Querier) ([]lessonRow, map[int64]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT lesson_local_id, COALESCE(server_lesson_id, 0), subject_local_id, lesson_number, lesson_title, quarter
		FROM lessons ORDER BY quarter, lesson_number, lesson_local_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("read lessons: %w", err)
	}
	defer rows.Close()

	var lessons []lessonRow
	index := make(map[int64]int)
	for rows.Next() {
		var (
			l      = lessonRow{Lesson: Lesson{Contents: []Content{}}}
			number sql.NullInt64
		)
		if err := rows.Scan(&l.LocalID, &l.ServerID, &l.subject, &number, &l.Title, &l.Quarter); err != nil {
			return nil, nil, fmt.Errorf("scan lesson: %w", err)
		}
		if number.Valid {
			l.Number = &number.Int64
		}
		index[l.LocalID] = len(lessons)
		lessons = append(lessons, l)
	}
	return lessons, index, rows.Err()
}

func readContents(ctx context.Context, q localdb.Querier, lessons []lessonRow, index map[int64]int) error {
	rows, err := q.QueryContext(ctx, `
		SELECT content_local_id, COALESCE(server_content_id, 0), lesson_local_id, content_type, title, url,
			done, COALESCE(done_at, '')
		FROM subject_contents ORDER BY content_local_id`)
	if err != nil {
		return fmt.Errorf("read contents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c      Content
			lesson int64
		)
		if err := rows.Scan(&c.LocalID, &c.ServerID, &lesson, &c.Type, &c.Title, &c.URL, &c.Done, &c.DoneAt); err != nil {
			return fmt.Errorf("scan content: %w", err)
		}
		if i, ok := index[lesson]; ok {
			lessons[i].Contents = append(lessons[i].Contents, c)
		}
	}
	return rows.Err()
}
