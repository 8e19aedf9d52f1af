package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Logging  LoggingConfig
	Library  LibraryConfig
}

type ServerConfig struct {
	Addr            string        `env:"SERVER_ADDR" env-default:":8080"`
	FrontendURL     string        `env:"FRONTEND_URL" env-default:"*"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" env-required:"true"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" env-default:"false"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"30m"`
	RememberMeTTL  time.Duration `env:"REMEMBER_ME_TTL" env-default:"168h"`
}

type LoggingConfig struct {
	Level       string `env:"LOG_LEVEL" env-default:"info"`
	Environment string `env:"APP_ENV" env-default:"development"`
}

type LibraryConfig struct {
	LoanPeriodDays int `env:"LOAN_PERIOD_DAYS" env-default:"14"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if cfg.Library.LoanPeriodDays <= 0 {
		return nil, fmt.Errorf("LOAN_PERIOD_DAYS must be positive, got %d", cfg.Library.LoanPeriodDays)
	}
	return &cfg, nil
}
