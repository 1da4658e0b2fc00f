// Package writelock сериализует составные записи в единственный локальный хэндл БД.
package writelock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// DB ключ, под которым работают все записи в локальную БД
const DB = "db"

// ErrLockTimeout запись не начата: блокировку не удалось взять вовремя.
// Повторять можно, в отличие от ошибки посреди записи.
var ErrLockTimeout = errors.New("could not start write: lock timeout")

// Lock блокировка одного ресурса
type Lock struct {
	key     string
	sem     *semaphore.Weighted
	timeout time.Duration
}

func New(key string, timeout time.Duration) *Lock {
	return &Lock{
		key:     key,
		sem:     semaphore.NewWeighted(1),
		timeout: timeout,
	}
}

// Key имя ресурса
func (l *Lock) Key() string {
	return l.key
}

// Guard взятая блокировка; Release можно вызывать сколько угодно раз
type Guard struct {
	lock     *Lock
	released atomic.Bool
}

func (g *Guard) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.lock.sem.Release(1)
	}
}

// Acquire ждет блокировку не дольше таймаута блокировки
func (l *Lock) Acquire(ctx context.Context) (*Guard, error) {
	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire %q: %w", l.key, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %q after %s", ErrLockTimeout, l.key, l.timeout)
	}
	return &Guard{lock: l}, nil
}

// Do выполняет fn под блокировкой. Блокировка отпускается при любом выходе,
// в том числе при панике.
func (l *Lock) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	g, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer g.Release()

	return fn(ctx)
}

// Registry выдает одну и ту же блокировку на ключ
type Registry struct {
	mu      sync.Mutex
	locks   map[string]*Lock
	timeout time.Duration
}

func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		locks:   make(map[string]*Lock),
		timeout: timeout,
	}
}

func (r *Registry) For(key string) *Lock {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[key]
	if !ok {
		l = New(key, r.timeout)
		r.locks[key] = l
	}
	return l
}
