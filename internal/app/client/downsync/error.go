package downsync

import "errors"

var (
	ErrNilHandle   = errors.New("downsync: database handle is nil")
	ErrNilSnapshot = errors.New("downsync: snapshot is nil")
)
