package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".edusync"
	defaultDataFile      = "edusync.db"
	defaultReadyTimeout  = 10 * time.Second
	defaultLockTimeout   = 10 * time.Second
	defaultHTTPTimeout   = 30 * time.Second
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	ConfigDir     string `mapstructure:"config_dir"`
	DataPath      string `mapstructure:"data_path"`
	Token         string `mapstructure:"token"`
	EnableTLS     bool   `mapstructure:"enable_tls"`

	// ReadyTimeout - сколько ждать готовности локальной БД. Единое значение
	// для всех мест, которые ждут bootstrap.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
	// LockTimeout - сколько ждать write-lock перед составной записью.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает .env (если есть), переменные окружения и уже прочитанный viper-конфиг.
func Load() (*Config, error) {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("ENABLE_TLS", false)
	viper.SetDefault("READY_TIMEOUT", defaultReadyTimeout)
	viper.SetDefault("LOCK_TIMEOUT", defaultLockTimeout)
	viper.SetDefault("HTTP_TIMEOUT", defaultHTTPTimeout)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	dataPath := viper.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, defaultDataFile)
	}

	config := &Config{
		Env:           viper.GetString("APP_ENV"),
		ServerAddress: viper.GetString("SERVER_ADDRESS"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		LogFile:       viper.GetString("LOG_FILE"),
		ConfigDir:     configDir,
		DataPath:      dataPath,
		Token:         viper.GetString("TOKEN"),
		EnableTLS:     viper.GetBool("ENABLE_TLS"),
		ReadyTimeout:  viper.GetDuration("READY_TIMEOUT"),
		LockTimeout:   viper.GetDuration("LOCK_TIMEOUT"),
		HTTPTimeout:   viper.GetDuration("HTTP_TIMEOUT"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.DataPath == "" {
		return fmt.Errorf("data_path не может быть пустым")
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("ready_timeout должен быть положительным")
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout должен быть положительным")
	}
	return nil
}

// BaseURL адрес сервера синхронизации со схемой
func (c *Config) BaseURL() string {
	if c.EnableTLS {
		return "https://" + c.ServerAddress
	}
	return "http://" + c.ServerAddress
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
