package testutil

import "edusync/internal/domain/snapshot"

func ptr[T any](v T) *T {
	return &v
}

// SampleSnapshot снимок из двух секций, трех предметов (один ни к какой
// секции не привязан), двух уроков одного предмета и по материалу на урок.
// Плюс игры, данные ученика и одноклассники.
func SampleSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Sections: []snapshot.Section{
			{SectionID: 11, TeacherID: ptr(int64(900)), TeacherName: "Ms. Reyes", SectionName: "7-A", SchoolYear: "2024-2025"},
			{SectionID: 12, TeacherName: "Mr. Cruz", SectionName: "7-B", SchoolYear: "2024-2025"},
		},
		Subjects: []snapshot.Subject{
			{SubjectID: 501, SubjectName: "Mathematics", GradeLevel: "7", IsPublic: true},
			{SubjectID: 502, SubjectName: "Science", GradeLevel: "7"},
			{SubjectID: 503, SubjectName: "Arts", GradeLevel: "7", IsPublic: true},
		},
		SubjectsInSection: []snapshot.SubjectInSection{
			{SectionBelong: 11, SubjectID: 501, AssignedAt: "2024-06-01 08:00:00"},
			{SectionBelong: 12, SubjectID: 502, AssignedAt: "2024-06-01 08:00:00"},
		},
		Lessons: []snapshot.Lesson{
			{LessonID: 9001, LessonNumber: ptr(int64(1)), LessonTitle: "Integers", SubjectBelong: 501, Quarter: 1},
			{LessonID: 9002, LessonNumber: ptr(int64(2)), LessonTitle: "Fractions", SubjectBelong: 501, Quarter: 2},
		},
		SubjectContents: []snapshot.SubjectContent{
			{ContentID: 7001, LessonBelong: 9001, ContentType: "pdf", URL: "https://cdn.example/int.pdf", Title: "Integers handout", FileName: "int.pdf"},
			{ContentID: 7002, LessonBelong: 9002, ContentType: "quiz", Title: "Fractions quiz"},
		},
		GameTypes: []snapshot.GameType{
			{GameTypeID: 60, Name: "Flashcards"},
		},
		Games: []snapshot.Game{
			{GameID: 80, SubjectID: ptr(int64(501)), ContentID: ptr(int64(7001)), GameTypeID: ptr(int64(60)), Title: "Integer cards"},
			{GameID: 81, Title: "Free play"},
		},
		Notifications: []snapshot.Notification{
			{NotificationID: 300, Title: "Welcome", Message: "Hello", Type: "system", CreatedAt: "2024-06-01 08:00:00"},
		},
		TestScores: []snapshot.TestScore{
			{ScoreID: 400, TestID: 7002, Score: 8, MaxScore: 10, AttemptNumber: 1, TakenAt: "2024-06-02 09:00:00"},
		},
		Achievements: []snapshot.Achievement{
			{AchievementID: 5, EarnedAt: "2024-06-02 09:00:00", ContentID: ptr(int64(7001))},
		},
		Classmates: []snapshot.Classmate{
			{UserID: 43, FullName: "Ben"},
			{UserID: 44, FullName: "Cara", SectionID: ptr(int64(12))},
		},
	}
}
