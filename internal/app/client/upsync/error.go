package upsync

import (
	"encoding/json"
	"errors"
	"fmt"

	"edusync/internal/domain/sync"
)

var (
	ErrNilHandle = errors.New("nil database handle")
	// ErrIDCountMismatch сервер вернул не столько id, сколько записей
	// было отправлено; ничего не помечается
	ErrIDCountMismatch = errors.New("server returned a different number of ids")
	ErrRejected        = errors.New("server rejected batch")
)

// GroupError ошибка одной группы в PushAll
type GroupError struct {
	Group sync.Group
	Err   error
}

func (e *GroupError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"group": string(e.Group), "error": e.Err.Error()})
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("upsync %s: %v", e.Group, e.Err)
}

func (e *GroupError) Unwrap() error {
	return e.Err
}
