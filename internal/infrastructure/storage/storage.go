package storage

import "context"

// Storage то, что нужно от хранилища вне репозиториев: проверка
// соединения для health-check и закрытие при остановке.
type Storage interface {
	Ping(ctx context.Context) error
	Close() error
}
