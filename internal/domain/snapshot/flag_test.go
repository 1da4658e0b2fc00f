package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Flag
	}{
		{`true`, true},
		{`false`, false},
		{`1`, true},
		{`0`, false},
		{`"1"`, true},
		{`"0"`, false},
		{`null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f Flag
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			assert.Equal(t, tt.want, f)
		})
	}

	var f Flag
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &f))
}

func TestSnapshot_Decode(t *testing.T) {
	payload := `{
		"sections": [{"section_id": 10, "teacher_name": "Ms. Cruz", "section_name": "Rizal", "school_year": "2024-2025"}],
		"subjects": [{"subject_id": 501, "subject_name": "Science", "grade_level": "4", "is_public": 1}],
		"lessons": [{"lesson_id": 9001, "lesson_title": "Plants", "subject_belong": 501, "quarter": 2}],
		"pupil_test_scores": [{"score_id": 7, "test_id": 3, "score": 8, "max_score": 10, "attempt_number": 1, "taken_at": "2024-08-01 10:00:00"}],
		"classmates": [{"user_id": 44, "full_name": "Ana"}]
	}`

	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(payload), &s))

	assert.Len(t, s.Sections, 1)
	assert.Equal(t, Flag(true), s.Subjects[0].IsPublic)
	assert.Equal(t, int64(501), s.Lessons[0].SubjectBelong)
	assert.Equal(t, 1, s.TestScores[0].AttemptNumber)
	assert.Nil(t, s.Classmates[0].SectionID)
	assert.Equal(t, 1, s.Counts()["lessons"])
	assert.Equal(t, 0, s.Counts()["games"])
}
