package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edusync/internal/app/server/api"
	"edusync/internal/app/server/config"
	"edusync/internal/infrastructure/migration"
	"edusync/internal/infrastructure/storage/postgres"
	"edusync/internal/utils/logger"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

func main() {
	root := &cobra.Command{
		Use:          "edusync-server",
		Short:        "Сервер синхронизации edusync",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции и выйти",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.MustLoad()
			log := logger.New(cfg.Env)
			return migration.NewMigration(cfg.DB, migration.DefaultEngine, log).Up()
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	storage, err := postgres.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer storage.Close()

	httpServer := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           api.New(cfg, storage, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.Server.RunAddress), slog.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	log.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
