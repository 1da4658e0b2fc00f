package downsync

// Result сколько строк каждой сущности вставлено и сколько пропущено
// из-за отсутствующего родителя
type Result struct {
	Inserted map[string]int `json:"inserted"`
	Skipped  map[string]int `json:"skipped"`
}

func newResult() *Result {
	return &Result{
		Inserted: make(map[string]int),
		Skipped:  make(map[string]int),
	}
}

func (r *Result) inserted(entity string) {
	r.Inserted[entity]++
}

func (r *Result) skipped(entity string) {
	r.Skipped[entity]++
}

// TotalSkipped сумма пропусков по всем сущностям
func (r *Result) TotalSkipped() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}
