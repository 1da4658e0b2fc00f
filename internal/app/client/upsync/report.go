package upsync

import (
	"errors"

	"edusync/internal/domain/sync"
)

// Report итог PushAll: сколько строк каждой группы помечено
// синхронизированными и какие группы упали
type Report struct {
	Pushed map[sync.Group]int `json:"pushed"`
	Errors []*GroupError      `json:"errors,omitempty"`
}

func newReport() *Report {
	return &Report{Pushed: make(map[sync.Group]int, len(sync.Groups))}
}

// Total сколько строк помечено по всем группам
func (r *Report) Total() int {
	n := 0
	for _, v := range r.Pushed {
		n += v
	}
	return n
}

// Err все ошибки групп одной ошибкой, nil если упавших групп нет
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}
