// Package readiness ожидание готовности локальной БД после bootstrap.
package readiness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotReady bootstrap не завершился за отведенное время
var ErrNotReady = errors.New("local database is not ready")

// Gate одноразовый сигнал готовности. Ожидающие блокируются на канале,
// а не опрашивают флаг.
type Gate struct {
	once    sync.Once
	ready   chan struct{}
	db      *sql.DB
	timeout time.Duration
}

// New создает gate; defaultTimeout используется, когда Wait получает 0
func New(defaultTimeout time.Duration) *Gate {
	return &Gate{
		ready:   make(chan struct{}),
		timeout: defaultTimeout,
	}
}

// MarkReady публикует хэндл и будит всех ожидающих. Повторные вызовы
// игнорируются, хэндл остается первым.
func (g *Gate) MarkReady(db *sql.DB) {
	g.once.Do(func() {
		g.db = db
		close(g.ready)
	})
}

// Ready неблокирующая проверка
func (g *Gate) Ready() bool {
	select {
	case <-g.ready:
		return true
	default:
		return false
	}
}

// Wait возвращает хэндл, как только bootstrap отметил готовность
func (g *Gate) Wait(ctx context.Context, timeout time.Duration) (*sql.DB, error) {
	if timeout <= 0 {
		timeout = g.timeout
	}

	select {
	case <-g.ready:
		return g.db, nil
	default:
	}

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-g.ready:
		return g.db, nil
	case <-timer:
		return nil, fmt.Errorf("%w after %s: %w", ErrNotReady, timeout, context.DeadlineExceeded)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}
