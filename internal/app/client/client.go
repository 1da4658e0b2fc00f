// Package client офлайн-клиент: локальная БД, синхронизация с сервером
// и операции ученика поверх них.
package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"

	"edusync/internal/app/client/achievement"
	"edusync/internal/app/client/catalog"
	"edusync/internal/app/client/config"
	"edusync/internal/app/client/connectivity"
	"edusync/internal/app/client/downsync"
	"edusync/internal/app/client/localdb"
	"edusync/internal/app/client/notification"
	"edusync/internal/app/client/readiness"
	"edusync/internal/app/client/upsync"
	"edusync/internal/app/client/writelock"
	"edusync/internal/domain/sync"

	"golang.org/x/exp/slog"
)

const tokenFile = "token"

type App struct {
	config *config.Config
	log    *slog.Logger

	db    *sql.DB
	gate  *readiness.Gate
	locks *writelock.Registry

	httpClient *httpClient
	monitor    connectivity.Monitor

	downsync      *downsync.Service
	upsync        *upsync.Service
	achievements  *achievement.Recorder
	notifications *notification.Service

	// session упорядочивает целые сеансы синхронизации: push всегда
	// завершается до pull
	session gosync.Mutex
}

type Option func(*App)

// WithDB уже открытый хэндл вместо cfg.DataPath
func WithDB(db *sql.DB) Option {
	return func(a *App) {
		a.db = db
	}
}

func WithMonitor(m connectivity.Monitor) Option {
	return func(a *App) {
		a.monitor = m
	}
}

func New(cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	app := &App{
		config:     cfg,
		log:        log.With(slog.String("component", "app")),
		gate:       readiness.New(cfg.ReadyTimeout),
		locks:      writelock.NewRegistry(cfg.LockTimeout),
		httpClient: NewHTTPClient(cfg, log),
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.db == nil {
		db, err := localdb.Open(cfg.DataPath)
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия локальной БД: %w", err)
		}
		app.db = db
	}
	if app.monitor == nil {
		app.monitor = connectivity.NewHTTPProbe(cfg.BaseURL(), 0, log)
	}

	if cfg.Token == "" {
		if token, err := app.GetToken(); err == nil {
			app.httpClient.SetToken(token)
			app.log.Debug("Токен загружен из файла")
		}
	}

	lock := app.locks.For(writelock.DB)
	app.downsync = downsync.NewService(lock, log)
	app.upsync = upsync.NewService(app.db, lock, app.httpClient, log)
	app.notifications = notification.NewService(lock, log)
	app.achievements = achievement.NewRecorder(lock, app.monitor, app.upsync, log)

	return app, nil
}

// Init bootstrap локальной БД. Ошибка фатальна, повторять не нужно.
func (a *App) Init(ctx context.Context) error {
	return localdb.Initialize(ctx, a.db, a.gate)
}

// DB хэндл после bootstrap; ждет не дольше ready_timeout
func (a *App) DB(ctx context.Context) (*sql.DB, error) {
	return a.gate.Wait(ctx, 0)
}

func (a *App) Close() error {
	return a.db.Close()
}

// SaveUser сохраняет профиль ученика на устройстве
func (a *App) SaveUser(ctx context.Context, u localdb.User) error {
	db, err := a.DB(ctx)
	if err != nil {
		return err
	}
	return a.locks.For(writelock.DB).Do(ctx, func(ctx context.Context) error {
		return localdb.SaveUser(ctx, db, u)
	})
}

// RefreshResult PushErr не прерывает refresh: несинхронизированные строки
// downsync не трогает, они уйдут в следующий раз
type RefreshResult struct {
	Push     *upsync.Report
	PushErr  error
	Downsync *downsync.Result
}

// Refresh полный сеанс: проверка связи, push, загрузка снимка, применение
func (a *App) Refresh(ctx context.Context) (*RefreshResult, error) {
	a.session.Lock()
	defer a.session.Unlock()

	db, err := a.DB(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.checkOnline(ctx); err != nil {
		return nil, err
	}

	res := &RefreshResult{}
	res.Push, res.PushErr = a.upsync.PushAll(ctx)
	if res.PushErr != nil {
		a.log.Warn("Upsync завершился с ошибками", slog.Any("error", res.PushErr))
	}

	res.Downsync, err = a.pull(ctx, db)
	if err != nil {
		return res, err
	}
	return res, nil
}

// Push только отправка локальных данных
func (a *App) Push(ctx context.Context) (*upsync.Report, error) {
	a.session.Lock()
	defer a.session.Unlock()

	if _, err := a.DB(ctx); err != nil {
		return nil, err
	}
	if err := a.checkOnline(ctx); err != nil {
		return nil, err
	}
	return a.upsync.PushAll(ctx)
}

// Pull только загрузка снимка
func (a *App) Pull(ctx context.Context) (*downsync.Result, error) {
	a.session.Lock()
	defer a.session.Unlock()

	db, err := a.DB(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.checkOnline(ctx); err != nil {
		return nil, err
	}
	return a.pull(ctx, db)
}

func (a *App) pull(ctx context.Context, db *sql.DB) (*downsync.Result, error) {
	snap, err := a.httpClient.FetchSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки снимка: %w", err)
	}
	return a.downsync.ApplySnapshot(ctx, db, snap)
}

// checkOnline без связи синхронизация пропускается без сетевых запросов
func (a *App) checkOnline(ctx context.Context) error {
	status := a.monitor.Status(ctx)
	if !status.CanSync() {
		a.log.Info("Синхронизация пропущена",
			slog.Bool("online", status.Online),
			slog.Bool("reachable", status.Reachable),
		)
		return ErrOffline
	}
	return nil
}

// RecordAchievement выдает значок за материал
func (a *App) RecordAchievement(ctx context.Context, badge achievement.Badge, contentLocalID int64) (*achievement.Outcome, error) {
	db, err := a.DB(ctx)
	if err != nil {
		return nil, err
	}
	return a.achievements.Record(ctx, db, badge, contentLocalID)
}

func (a *App) SubjectTree(ctx context.Context) ([]catalog.Subject, error) {
	db, err := a.DB(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.SubjectTree(ctx, db)
}

func (a *App) Notifications(ctx context.Context, unreadOnly bool) ([]notification.Notification, error) {
	db, err := a.DB(ctx)
	if err != nil {
		return nil, err
	}
	return a.notifications.List(ctx, db, unreadOnly)
}

func (a *App) MarkNotificationRead(ctx context.Context, localID int64) error {
	db, err := a.DB(ctx)
	if err != nil {
		return err
	}
	return a.notifications.MarkRead(ctx, db, localID)
}

// Status состояние локальной БД для sync --status
type Status struct {
	DeviceID      string              `json:"device_id"`
	SchemaVersion uint                `json:"schema_version"`
	LastDownsync  string              `json:"last_downsync_at"`
	LastUpsync    string              `json:"last_upsync_at"`
	Checksum      string              `json:"checksum"`
	Counts        map[string]int      `json:"counts"`
	Pending       map[sync.Group]int  `json:"pending"`
	Connectivity  connectivity.Status `json:"connectivity"`
}

func (a *App) Status(ctx context.Context) (*Status, error) {
	db, err := a.DB(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{}
	if st.SchemaVersion, err = localdb.CheckSchema(db); err != nil {
		return nil, err
	}
	if st.DeviceID, err = localdb.DeviceID(ctx, db); err != nil {
		return nil, err
	}
	if st.LastDownsync, err = localdb.LastDownsync(ctx, db); err != nil {
		return nil, err
	}
	if st.LastUpsync, err = localdb.LastUpsync(ctx, db); err != nil {
		return nil, err
	}

	// под блокировкой, чтобы не посчитать сумму посреди записи
	err = a.locks.For(writelock.DB).Do(ctx, func(ctx context.Context) error {
		var err error
		if st.Checksum, err = localdb.Checksum(ctx, db); err != nil {
			return err
		}
		st.Counts, err = localdb.Counts(ctx, db)
		return err
	})
	if err != nil {
		return nil, err
	}

	if st.Pending, err = a.upsync.Pending(ctx); err != nil {
		return nil, err
	}
	st.Connectivity = a.monitor.Status(ctx)
	return st, nil
}

func (a *App) tokenPath() string {
	return filepath.Join(a.config.ConfigDir, tokenFile)
}

// GetToken возвращает сохраненный токен
func (a *App) GetToken() (string, error) {
	tokenBytes, err := os.ReadFile(a.tokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("ошибка чтения токена: %w", err)
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SaveToken сохраняет токен, выданный внешним сервисом авторизации
func (a *App) SaveToken(token string) error {
	if err := os.WriteFile(a.tokenPath(), []byte(token), 0600); err != nil {
		return fmt.Errorf("ошибка сохранения токена: %w", err)
	}
	a.httpClient.SetToken(token)
	return nil
}
