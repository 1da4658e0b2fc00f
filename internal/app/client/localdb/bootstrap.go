package localdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Roles справочник ролей, засевается при каждом bootstrap
var Roles = []string{"pupil", "teacher", "admin"}

// ReadySignaler получает хэндл после успешного bootstrap
type ReadySignaler interface {
	MarkReady(db *sql.DB)
}

// Initialize создает схему и справочники и отмечает готовность.
// Безопасно вызывать повторно. Любая ошибка фатальна для сессии.
func Initialize(ctx context.Context, db *sql.DB, gate ReadySignaler) error {
	if db == nil {
		return ErrNilHandle
	}

	if err := migrateUp(db); err != nil {
		return fmt.Errorf("%w: %w", ErrBootstrap, err)
	}

	if err := seed(ctx, db); err != nil {
		return fmt.Errorf("%w: %w", ErrBootstrap, err)
	}

	if gate != nil {
		gate.MarkReady(db)
	}
	return nil
}

func seed(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for i, role := range Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO roles (role_id, role_name) VALUES (?, ?)`, i+1, role); err != nil {
			return fmt.Errorf("seed role %s: %w", role, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO device_meta (meta_key, meta_value) VALUES (?, ?)`,
		metaDeviceID, uuid.NewString()); err != nil {
		return fmt.Errorf("seed device id: %w", err)
	}

	return tx.Commit()
}
