package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит все настройки процесса. Торговая конфигурация живет
// отдельно, в снапшоте (см. SnapshotStore), и перечитывается каждый цикл.
type Config struct {
	Bridge   BridgeConfig
	Telegram TelegramConfig
	Database DatabaseConfig
	Engine   EngineConfig
	LogLevel string
}

type BridgeConfig struct {
	BaseURL  string
	Account  int64
	Password string
	Server   string
}

type TelegramConfig struct {
	BotToken       string
	AllowedUserIDs string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type EngineConfig struct {
	SnapshotPath     string
	ReconcilePoll    time.Duration
	BarFetchRetries  int
	BarFetchDelay    time.Duration
	ReconnectBackoff time.Duration
	ErrorBackoff     time.Duration
	ConfigRetryDelay time.Duration
}

// Load загружает конфигурацию из .env файла
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	account, err := strconv.ParseInt(getEnv("MT5_ACCOUNT", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MT5_ACCOUNT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpenConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	maxIdleConns, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	reconcilePoll, err := time.ParseDuration(getEnv("RECONCILE_POLL_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_POLL_INTERVAL: %w", err)
	}

	barFetchRetries, err := strconv.Atoi(getEnv("BAR_FETCH_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid BAR_FETCH_RETRIES: %w", err)
	}

	barFetchDelay, err := time.ParseDuration(getEnv("BAR_FETCH_DELAY", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BAR_FETCH_DELAY: %w", err)
	}

	reconnectBackoff, err := time.ParseDuration(getEnv("RECONNECT_BACKOFF", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONNECT_BACKOFF: %w", err)
	}

	errorBackoff, err := time.ParseDuration(getEnv("CYCLE_ERROR_BACKOFF", "20s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CYCLE_ERROR_BACKOFF: %w", err)
	}

	configRetryDelay, err := time.ParseDuration(getEnv("CONFIG_RETRY_DELAY", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONFIG_RETRY_DELAY: %w", err)
	}

	config := &Config{
		Bridge: BridgeConfig{
			BaseURL:  getEnv("MT5_BRIDGE_URL", "http://localhost:6542"),
			Account:  account,
			Password: getEnv("MT5_PASSWORD", ""),
			Server:   getEnv("MT5_SERVER", ""),
		},
		Telegram: TelegramConfig{
			BotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
			AllowedUserIDs: getEnv("TELEGRAM_ALLOWED_USER_IDS", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            dbPort,
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "candle_bot"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    maxOpenConns,
			MaxIdleConns:    maxIdleConns,
			ConnMaxLifetime: connMaxLifetime,
		},
		Engine: EngineConfig{
			SnapshotPath:     getEnv("TRADING_CONFIG_PATH", "config.yaml"),
			ReconcilePoll:    reconcilePoll,
			BarFetchRetries:  barFetchRetries,
			BarFetchDelay:    barFetchDelay,
			ReconnectBackoff: reconnectBackoff,
			ErrorBackoff:     errorBackoff,
			ConfigRetryDelay: configRetryDelay,
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate проверяет обязательные поля конфигурации. Telegram токен
// необязателен: без него бот работает, но без редактора настроек.
func (c *Config) Validate() error {
	if c.Bridge.Account == 0 {
		return fmt.Errorf("MT5_ACCOUNT is required")
	}
	if c.Bridge.Password == "" {
		return fmt.Errorf("MT5_PASSWORD is required")
	}
	if c.Bridge.Server == "" {
		return fmt.Errorf("MT5_SERVER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Engine.BarFetchRetries < 1 {
		return fmt.Errorf("BAR_FETCH_RETRIES must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
