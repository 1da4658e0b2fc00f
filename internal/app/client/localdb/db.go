// Package localdb локальное SQLite-хранилище клиента: открытие хэндла,
// создание схемы, служебные данные устройства и контрольные суммы таблиц.
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Memory путь для БД в памяти, используется в тестах
const Memory = ":memory:"

// Open открывает хэндл с включенными внешними ключами. Пул ограничен одним
// соединением: вся запись идет через один хэндл, а для ":memory:" второе
// соединение увидело бы пустую БД.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := checkForeignKeys(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func checkForeignKeys(q Querier) error {
	var fk int
	if err := q.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&fk); err != nil {
		return fmt.Errorf("read foreign_keys pragma: %w", err)
	}
	if fk != 1 {
		return ErrForeignKeysOff
	}
	return nil
}

func dsn(path string) string {
	params := "_foreign_keys=1&_busy_timeout=5000"
	if path == Memory || path == "" {
		return "file::memory:?" + params
	}
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return "file:" + path + "?" + params + "&_journal_mode=WAL&_synchronous=NORMAL"
}
