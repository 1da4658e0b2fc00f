package localdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	metaDeviceID     = "device_id"
	metaLastDownsync = "last_downsync_at"
	metaLastUpsync   = "last_upsync_at"
)

// Querier то общее, что есть у *sql.DB и *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DeviceID id устройства, созданный при первом bootstrap
func DeviceID(ctx context.Context, q Querier) (string, error) {
	return getMeta(ctx, q, metaDeviceID)
}

// LastDownsync время последнего успешного downsync, "" если его не было
func LastDownsync(ctx context.Context, q Querier) (string, error) {
	return getMeta(ctx, q, metaLastDownsync)
}

func LastUpsync(ctx context.Context, q Querier) (string, error) {
	return getMeta(ctx, q, metaLastUpsync)
}

func SetLastDownsync(ctx context.Context, q Querier, at string) error {
	return setMeta(ctx, q, metaLastDownsync, at)
}

func SetLastUpsync(ctx context.Context, q Querier, at string) error {
	return setMeta(ctx, q, metaLastUpsync, at)
}

func getMeta(ctx context.Context, q Querier, key string) (string, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT meta_value FROM device_meta WHERE meta_key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func setMeta(ctx context.Context, q Querier, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO device_meta (meta_key, meta_value) VALUES (?, ?)
		ON CONFLICT (meta_key) DO UPDATE SET meta_value = excluded.meta_value`, key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
