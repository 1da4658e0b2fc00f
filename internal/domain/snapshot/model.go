// Package snapshot описывает полный снимок каталога ученика, который сервер
// отдает клиенту для downsync. Имена полей совпадают с JSON сервера.
package snapshot

// Snapshot полный снимок каталога пользователя
type Snapshot struct {
	Sections          []Section          `json:"sections"`
	Subjects          []Subject          `json:"subjects"`
	SubjectsInSection []SubjectInSection `json:"subjects_in_section"`
	Lessons           []Lesson           `json:"lessons"`
	SubjectContents   []SubjectContent   `json:"subject_contents"`
	Games             []Game             `json:"games"`
	GameTypes         []GameType         `json:"game_types"`
	Notifications     []Notification     `json:"notifications"`
	TestScores        []TestScore        `json:"pupil_test_scores"`
	Achievements      []Achievement      `json:"pupil_achievements"`
	Classmates        []Classmate        `json:"classmates"`
}

type Section struct {
	SectionID   int64  `json:"section_id"`
	TeacherID   *int64 `json:"teacher_id,omitempty"`
	TeacherName string `json:"teacher_name"`
	SectionName string `json:"section_name"`
	SchoolYear  string `json:"school_year"`
}

type Subject struct {
	SubjectID   int64  `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	GradeLevel  string `json:"grade_level"`
	Description string `json:"description"`
	IsPublic    Flag   `json:"is_public"`
}

type SubjectInSection struct {
	SectionBelong int64  `json:"section_belong"`
	SubjectID     int64  `json:"subject_id"`
	AssignedAt    string `json:"assigned_at"`
}

type Lesson struct {
	LessonID      int64  `json:"lesson_id"`
	LessonNumber  *int64 `json:"lesson_number,omitempty"`
	LessonTitle   string `json:"lesson_title"`
	Description   string `json:"description"`
	SubjectBelong int64  `json:"subject_belong"`
	Quarter       int    `json:"quarter"`
}

type SubjectContent struct {
	ContentID    int64  `json:"content_id"`
	LessonBelong int64  `json:"lesson_belong"`
	ContentType  string `json:"content_type"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	FileName     string `json:"file_name"`
}

type Game struct {
	GameID      int64  `json:"game_id"`
	SubjectID   *int64 `json:"subject_id,omitempty"`
	ContentID   *int64 `json:"content_id,omitempty"`
	GameTypeID  *int64 `json:"game_type_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type GameType struct {
	GameTypeID  int64  `json:"game_type_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Notification struct {
	NotificationID int64   `json:"notification_id"`
	Title          string  `json:"title"`
	Message        string  `json:"message"`
	Type           string  `json:"type"`
	IsRead         Flag    `json:"is_read"`
	CreatedAt      string  `json:"created_at"`
	ReadAt         *string `json:"read_at,omitempty"`
}

type TestScore struct {
	ScoreID       int64   `json:"score_id"`
	TestID        int64   `json:"test_id"`
	Score         float64 `json:"score"`
	MaxScore      float64 `json:"max_score"`
	AttemptNumber int     `json:"attempt_number"`
	TakenAt       string  `json:"taken_at"`
}

// Achievement полученный учеником значок; AchievementID - id значка в каталоге сервера
type Achievement struct {
	AchievementID int64  `json:"achievement_id"`
	EarnedAt      string `json:"earned_at"`
	ContentID     *int64 `json:"content_id,omitempty"`
}

// Classmate одноклассник. SectionID сервер может не присылать - тогда
// одноклассник относится к собственной секции ученика.
type Classmate struct {
	UserID    int64  `json:"user_id"`
	FullName  string `json:"full_name"`
	SectionID *int64 `json:"section_id,omitempty"`
}

// Counts количество строк по сущностям, удобно для логов
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		"sections":            len(s.Sections),
		"subjects":            len(s.Subjects),
		"subjects_in_section": len(s.SubjectsInSection),
		"lessons":             len(s.Lessons),
		"subject_contents":    len(s.SubjectContents),
		"games":               len(s.Games),
		"game_types":          len(s.GameTypes),
		"notifications":       len(s.Notifications),
		"pupil_test_scores":   len(s.TestScores),
		"pupil_achievements":  len(s.Achievements),
		"classmates":          len(s.Classmates),
	}
}
