package localdb

import "time"

// TimeFormat формат всех временных меток в локальной БД (как CURRENT_TIMESTAMP)
const TimeFormat = "2006-01-02 15:04:05"

// Timestamp время в UTC в формате TimeFormat
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Clock источник времени, в тестах подменяется
type Clock func() time.Time

// RevisionFormat для updated_at: по нему upsync понимает, менялась ли строка,
// секундной точности для этого мало
const RevisionFormat = "2006-01-02 15:04:05.000000000"

func Revision(t time.Time) string {
	return t.UTC().Format(RevisionFormat)
}
