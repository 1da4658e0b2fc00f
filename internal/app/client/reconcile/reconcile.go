// Package reconcile переводит серверные id в локальные. Все внешние ключи
// в локальной БД ссылаются на локальные id, серверные id для join не
// используются.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoUser на устройстве нет профиля ученика
var ErrNoUser = errors.New("no local user")

// Querier *sql.Tx или *sql.DB. Передавать нужно ту транзакцию, в которой
// идет запись, иначе можно прочитать таблицу в середине пересборки.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Table пара колонок локальный id / серверный id одной таблицы.
// Набор закрыт: имена таблиц и колонок не приходят извне.
type Table struct {
	name     string
	localID  string
	serverID string
}

func (t Table) Name() string {
	return t.name
}

var (
	Sections      = Table{"sections", "section_local_id", "server_section_id"}
	Subjects      = Table{"subjects", "subject_local_id", "server_subject_id"}
	Lessons       = Table{"lessons", "lesson_local_id", "server_lesson_id"}
	Contents      = Table{"subject_contents", "content_local_id", "server_content_id"}
	GameTypes     = Table{"game_types", "game_type_local_id", "server_game_type_id"}
	Games         = Table{"games", "game_local_id", "server_game_id"}
	Users         = Table{"users", "user_local_id", "server_user_id"}
	Notifications = Table{"notifications", "notification_local_id", "server_notification_id"}
)

// ResolveLocalID ищет локальный id по серверному. ok=false, если строки нет.
func ResolveLocalID(ctx context.Context, q Querier, table Table, serverID int64) (int64, bool, error) {
	if table.name == "" {
		return 0, false, fmt.Errorf("reconcile: empty table descriptor")
	}

	var localID int64
	err := q.QueryRowContext(ctx,
		"SELECT "+table.localID+" FROM "+table.name+" WHERE "+table.serverID+" = ?", serverID,
	).Scan(&localID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve %s %d: %w", table.name, serverID, err)
	}
	return localID, true, nil
}

// ResolveOptional то же для необязательной ссылки: nil или ненайденный
// родитель дают NULL.
func ResolveOptional(ctx context.Context, q Querier, table Table, serverID *int64) (sql.NullInt64, error) {
	if serverID == nil {
		return sql.NullInt64{}, nil
	}

	localID, ok, err := ResolveLocalID(ctx, q, table, *serverID)
	if err != nil || !ok {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: localID, Valid: true}, nil
}

// User локальный и серверный id единственного пользователя устройства
type User struct {
	LocalID  int64
	ServerID int64
}

// ResolveUser находит единственного пользователя устройства
func ResolveUser(ctx context.Context, q Querier) (User, error) {
	var (
		u        User
		serverID sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT user_local_id, server_user_id FROM users ORDER BY user_local_id LIMIT 1`,
	).Scan(&u.LocalID, &serverID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNoUser
	}
	if err != nil {
		return User{}, fmt.Errorf("resolve user: %w", err)
	}
	u.ServerID = serverID.Int64
	return u, nil
}
