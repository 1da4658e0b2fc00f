package localdb

import "errors"

var (
	// ErrNilHandle Initialize вызван без хэндла БД
	ErrNilHandle = errors.New("local database handle is nil")
	// ErrBootstrap схему создать не удалось, работать дальше нельзя
	ErrBootstrap = errors.New("local schema bootstrap failed")
	// ErrSchemaOutdated версия схемы не совпадает с версией бинарника
	ErrSchemaOutdated = errors.New("local schema is not at the latest version")
	ErrUnknownTable   = errors.New("unknown table")
	// ErrForeignKeysOff драйвер открыл БД без проверки внешних ключей
	ErrForeignKeysOff = errors.New("foreign keys are not enabled")
)
