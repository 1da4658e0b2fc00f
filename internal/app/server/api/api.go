// GET  /api/v1/health                 # Проверка доступности (публичный)
// GET  /api/v1/snapshot               # Полный снимок каталога (auth)
// POST /api/v1/sync/scores            # Upsync результатов тестов (auth)
// POST /api/v1/sync/answers           # Upsync ответов (auth)
// POST /api/v1/sync/progress          # Upsync прохождения материалов (auth)
// POST /api/v1/sync/achievements      # Upsync значков (auth)
// POST /api/v1/sync/notifications     # Upsync уведомлений (auth)

package api

import (
	"edusync/internal/app/server/api/http/health"
	"edusync/internal/app/server/api/http/middleware"
	"edusync/internal/app/server/api/http/middleware/auth"
	"edusync/internal/app/server/api/http/middleware/logger"
	syncAPI "edusync/internal/app/server/api/http/sync"
	"edusync/internal/app/server/config"
	"edusync/internal/domain/session"
	"edusync/internal/domain/sync"
	"edusync/internal/infrastructure/storage/postgres"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health *health.Handler
	Sync   *syncAPI.Handler
}

// New создает *chi.Mux со всеми операциями, зарегистрированными через huma
func New(cfg *config.Config, storage *postgres.Storage, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.Recoverer)

	hc := huma.DefaultConfig("Edusync Sync API", "1.0.0")
	hc.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, hc)

	h := handlers(cfg, storage, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(cfg *config.Config, storage *postgres.Storage, log *slog.Logger) *Handlers {
	sessionRepo := postgres.NewSessionRepository(storage, log)
	sessionService := session.NewService(sessionRepo, log)
	authMW := auth.New(sessionService, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := health.NewHandler(storage, log, middlewares.GetAllAndClear())

	syncRepo := postgres.NewSyncRepository(storage, log)
	syncService := sync.NewService(syncRepo, log, &sync.ServiceConfig{MaxBatch: cfg.Sync.MaxBatch})
	middlewares.Add(loggerMW.Middleware(), authMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}
