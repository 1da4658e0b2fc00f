package sync

// DTO для upsync. Каждая группа отправляется отдельным запросом, сервер
// возвращает id в том же порядке, в каком пришли записи.

// ScoreRecord попытка теста. Бизнес-ключ: (pupil, test_id, attempt_number)
type ScoreRecord struct {
	LocalID       int64   `json:"local_id"`
	ScoreID       *int64  `json:"score_id,omitempty"`
	TestID        int64   `json:"test_id"`
	Score         float64 `json:"score" minimum:"0"`
	MaxScore      float64 `json:"max_score" minimum:"0"`
	AttemptNumber int     `json:"attempt_number" minimum:"1"`
	TakenAt       string  `json:"taken_at"`
}

// AnswerRecord ответ на вопрос. Бизнес-ключ: (pupil, question_id, attempt_number)
type AnswerRecord struct {
	LocalID       int64  `json:"local_id"`
	TestID        int64  `json:"test_id"`
	QuestionID    int64  `json:"question_id"`
	ChoiceID      *int64 `json:"choice_id,omitempty"`
	AttemptNumber int    `json:"attempt_number" minimum:"1"`
	AnsweredAt    string `json:"answered_at"`
}

// ProgressRecord отметка о прохождении материала. Бизнес-ключ: (pupil, content_id)
type ProgressRecord struct {
	LocalID     int64  `json:"local_id"`
	ContentID   int64  `json:"content_id"`
	CompletedAt string `json:"completed_at"`
}

// AchievementRecord полученный значок. Бизнес-ключ: (pupil, achievement_id)
type AchievementRecord struct {
	LocalID       int64  `json:"local_id"`
	AchievementID int64  `json:"achievement_id"`
	EarnedAt      string `json:"earned_at"`
	ContentID     *int64 `json:"content_id,omitempty"`
}

// NotificationRecord уведомление. Без NotificationID - новая запись,
// с NotificationID - обновление существующей.
type NotificationRecord struct {
	LocalID        int64   `json:"local_id"`
	NotificationID *int64  `json:"notification_id,omitempty"`
	Title          string  `json:"title"`
	Message        string  `json:"message"`
	Type           string  `json:"type"`
	IsRead         bool    `json:"is_read"`
	CreatedAt      string  `json:"created_at"`
	ReadAt         *string `json:"read_at,omitempty"`
}

type PushScoresRequest struct {
	PupilID int64         `json:"pupil_id"`
	Scores  []ScoreRecord `json:"scores"`
}

type PushAnswersRequest struct {
	PupilID int64          `json:"pupil_id"`
	Answers []AnswerRecord `json:"answers"`
}

type PushProgressRequest struct {
	PupilID  int64            `json:"pupil_id"`
	Progress []ProgressRecord `json:"progress"`
}

type PushAchievementsRequest struct {
	PupilID      int64               `json:"pupil_id"`
	Achievements []AchievementRecord `json:"achievements"`
}

type PushNotificationsRequest struct {
	PupilID       int64                `json:"pupil_id"`
	Notifications []NotificationRecord `json:"notifications"`
}

// PushResponse ответ на любой upsync-запрос
type PushResponse struct {
	Status string  `json:"status"`
	Error  string  `json:"error,omitempty"`
	IDs    []int64 `json:"ids,omitempty"`
}

// Group имя группы upsync, оно же последний сегмент URL
type Group string

const (
	GroupScores        Group = "scores"
	GroupAnswers       Group = "answers"
	GroupProgress      Group = "progress"
	GroupAchievements  Group = "achievements"
	GroupNotifications Group = "notifications"
)

// Groups порядок, в котором клиент отправляет группы
var Groups = []Group{
	GroupScores,
	GroupAnswers,
	GroupProgress,
	GroupAchievements,
	GroupNotifications,
}
