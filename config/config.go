package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Postgres struct {
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Server   string `env:"SERVER"`
	Port     int    `env:"PORT" envDefault:"5432"`
	DB       string `env:"DB"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// Config is built once at startup and never mutated afterwards.
type Config struct {
	Host          string        `env:"HOST" envDefault:"0.0.0.0"`
	Port          int           `env:"PORT" envDefault:"8000"`
	Env           string        `env:"GO_ENV" envDefault:"PROD"`
	Storage       string        `env:"STORAGE" envDefault:"postgres"`
	SecretKey     string        `env:"SECRET_KEY,required,notEmpty,unset"`
	TokenLifetime time.Duration `env:"ACCESS_TOKEN_LIFETIME" envDefault:"30m"`
	CorsOrigins   []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost,http://localhost:8080"`
	Postgres      Postgres      `envPrefix:"POSTGRES_"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal("Config loading failed with error - " + err.Error())
	}
	return cfg
}

func (cfg *Config) validate() error {
	if cfg.TokenLifetime <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_LIFETIME must be positive, got %s", cfg.TokenLifetime)
	}
	switch cfg.Storage {
	case StorageMemory:
		return nil
	case StoragePostgres:
	default:
		return fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}

	var missing []error
	for key, value := range map[string]string{
		"POSTGRES_USER":     cfg.Postgres.User,
		"POSTGRES_PASSWORD": cfg.Postgres.Password,
		"POSTGRES_SERVER":   cfg.Postgres.Server,
		"POSTGRES_DB":       cfg.Postgres.DB,
	} {
		if value == "" {
			missing = append(missing, fmt.Errorf("%s is required", key))
		}
	}
	return errors.Join(missing...)
}

func (cfg *Config) Secret() []byte {
	return []byte(cfg.SecretKey)
}

func (cfg *Config) IsDev() bool {
	return cfg.Env == "DEV"
}

func (cfg *Config) Address() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// DatabaseDsn builds a lib/pq connection URL.
func (cfg *Config) DatabaseDsn() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Postgres.User, cfg.Postgres.Password),
		Host:     net.JoinHostPort(cfg.Postgres.Server, strconv.Itoa(cfg.Postgres.Port)),
		Path:     "/" + cfg.Postgres.DB,
		RawQuery: url.Values{"sslmode": {cfg.Postgres.SSLMode}}.Encode(),
	}
	return u.String()
}
