package client

import "errors"

var (
	// ErrOffline сеть или сервер недоступны, синхронизация не начиналась
	ErrOffline      = errors.New("offline: sync skipped")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoToken      = errors.New("token not found")
)
