package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = "../../.env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultRunAddress     = ":8080"
	defaultMigrationsPath = "migrations/server"
)

type Config struct {
	Env    string
	DB     DB
	Server Server
	Logger Logger
	Sync   Sync
}

type DB struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type Server struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

type Logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Sync ограничения на размер одного upsync-запроса
type Sync struct {
	MaxBatch int `env:"SYNC_MAX_BATCH"`
}

func MustLoad() *Config {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("run_address", defaultRunAddress)
	viper.SetDefault("migrations_path", defaultMigrationsPath)
	viper.SetDefault("app_env", EnvLocal)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("shutdown_timeout", 10*time.Second)
	viper.SetDefault("sync_max_batch", 500)

	config := Config{
		Env: viper.GetString("app_env"),
		DB: DB{
			DatabaseURI: viper.GetString("database_uri"),
			Migrations:  viper.GetString("migrations_path"),
		},
		Server: Server{
			RunAddress:      viper.GetString("run_address"),
			ShutdownTimeout: viper.GetDuration("shutdown_timeout"),
		},
		Logger: Logger{LogLevel: viper.GetString("log_level")},
		Sync:   Sync{MaxBatch: viper.GetInt("sync_max_batch")},
	}

	if config.DB.DatabaseURI == "" {
		log.Fatalln("DATABASE_URI is required")
	}

	return &config
}
