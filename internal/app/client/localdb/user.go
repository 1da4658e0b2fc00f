package localdb

import (
	"context"
	"fmt"
)

// User профиль ученика на этом устройстве (ровно одна строка)
type User struct {
	LocalID   int64
	ServerID  int64
	FullName  string
	Role      string
	AvatarURL string
}

// SaveUser создает или обновляет единственную строку users. Токен в БД
// не хранится, его выдает и хранит внешний сервис авторизации.
func SaveUser(ctx context.Context, q Querier, u User) error {
	role := u.Role
	if role == "" {
		role = "pupil"
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO users (user_local_id, server_user_id, full_name, role_id, avatar_url)
		VALUES (1, ?, ?, (SELECT role_id FROM roles WHERE role_name = ?), ?)
		ON CONFLICT (user_local_id) DO UPDATE SET
			server_user_id = excluded.server_user_id,
			full_name = excluded.full_name,
			role_id = excluded.role_id,
			avatar_url = excluded.avatar_url`,
		u.ServerID, u.FullName, role, u.AvatarURL)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}
