// Package config содержит логику чтения конфигурации сервера печати этикеток и консоли.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultTokenTTL   = 7 * 24 * time.Hour
	defaultCatalogTTL = 5 * time.Minute
)

// Config содержит параметры конфигурации сервера.
type Config struct {
	RunAddress    string        `env:"RUN_ADDRESS"`
	DatabaseURI   string        `env:"DATABASE_URI"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL"`
	CacheDriver   string        `env:"CACHE_DRIVER" envDefault:"noop"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	CatalogTTL    time.Duration `env:"CATALOG_TTL"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	AdminName     string        `env:"ADMIN_NAME"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
}

// Parse считывает конфигурацию из .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret
	envTokenTTL := cfg.TokenTTL

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for signing bearer tokens")
	flag.DurationVar(&cfg.TokenTTL, "t", defaultTokenTTL, "bearer token lifetime")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}
	if envTokenTTL > 0 {
		cfg.TokenTTL = envTokenTTL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.CatalogTTL <= 0 {
		cfg.CatalogTTL = defaultCatalogTTL
	}

	return cfg, nil
}

// Режимы хранилища заказов консоли.
const (
	StoreRemote = "remote"
	StoreMirror = "mirror"
)

// Console содержит параметры консоли оператора. Значения из окружения служат
// умолчаниями для флагов командной строки.
type Console struct {
	APIURL       string        `env:"PRINTER_API_URL" envDefault:"http://localhost:8080"`
	SessionFile  string        `env:"PRINTER_SESSION_FILE"`
	Store        string        `env:"PRINTER_STORE" envDefault:"remote"`
	OrdersFile   string        `env:"PRINTER_ORDERS_FILE"`
	PollInterval time.Duration `env:"PRINTER_POLL_INTERVAL" envDefault:"5s"`
}

// ParseConsole считывает конфигурацию консоли из .env и переменных окружения.
func ParseConsole() (*Console, error) {
	_ = godotenv.Load()

	cfg := &Console{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	dir := stateDir()
	if cfg.SessionFile == "" {
		cfg.SessionFile = filepath.Join(dir, "session.json")
	}
	if cfg.OrdersFile == "" {
		cfg.OrdersFile = filepath.Join(dir, "orders.json")
	}

	return cfg, nil
}

// Validate проверяет согласованность параметров консоли.
func (c *Console) Validate() error {
	switch c.Store {
	case StoreRemote, StoreMirror:
	default:
		return fmt.Errorf("unsupported order store %q", c.Store)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}

func stateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "labelprint")
	}
	return ".labelprint"
}
