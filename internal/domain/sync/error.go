package sync

import "errors"

var (
	ErrUnauthenticated = errors.New("pupil not authenticated")
	ErrPupilMismatch   = errors.New("pupil_id does not match authenticated pupil")
	ErrBatchTooLarge   = errors.New("batch too large")
	ErrInvalidRecord   = errors.New("invalid record")
	ErrIDCountMismatch = errors.New("server returned a different number of ids")
)
