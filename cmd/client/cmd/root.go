package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"edusync/cmd/client/cmd/achievement"
	"edusync/cmd/client/cmd/content"
	"edusync/cmd/client/cmd/notification"
	"edusync/cmd/client/cmd/sync"
	"edusync/cmd/client/cmd/types"
	"edusync/internal/app/client"
	"edusync/internal/app/client/config"
	"edusync/internal/app/client/connectivity"
	"edusync/internal/utils/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

var (
	cfgFile   string
	serverURL string
	dataPath  string
	offline   bool
	app       *client.App
)

var rootCmd = &cobra.Command{
	Use:   "edusync",
	Short: "edusync - офлайн-клиент учебного приложения",
	Long: `edusync хранит каталог предметов, уроков и материалов на устройстве
и синхронизирует его с сервером, когда есть связь.

Результаты тестов, значки и уведомления сохраняются локально и
отправляются на сервер при следующей синхронизации.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Переопределяем настройки из флагов командной строки
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if dataPath != "" {
		cfg.DataPath = dataPath
	}

	log := newLogger(cfg)

	var opts []client.Option
	if offline {
		opts = append(opts, client.WithMonitor(connectivity.Static{}))
	}

	app, err = client.New(cfg, log, opts...)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := app.Init(ctx); err != nil {
		return fmt.Errorf("ошибка инициализации локальной БД: %w", err)
	}

	cmd.SetContext(context.WithValue(ctx, types.ClientAppKey, app))
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

// newLogger на устройстве stdout занят выводом команд, поэтому при
// заданном log_file логи уходят в ротируемый файл
func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.LogFile != "" {
		return logger.NewWithFile(cfg.Env, cfg.LogFile)
	}
	return logger.New(cfg.Env)
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Ищем конфиг в стандартных местах
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(filepath.Join(home, ".edusync"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// Конфиг не найден, используем значения по умолчанию
	}

	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&types.JSONOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера синхронизации (host:port)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "путь к файлу локальной БД")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "не обращаться к серверу")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(sync.SyncCmd)

	rootCmd.AddCommand(achievement.AchievementCmd)
	achievement.AchievementCmd.AddCommand(achievement.RecordCmd)

	rootCmd.AddCommand(content.ContentCmd)
	content.ContentCmd.AddCommand(content.TreeCmd)

	rootCmd.AddCommand(notification.NotificationsCmd)
	notification.NotificationsCmd.AddCommand(notification.ListCmd)
	notification.NotificationsCmd.AddCommand(notification.ReadCmd)
}
