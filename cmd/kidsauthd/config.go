package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/federated"
	"github.com/MrEthical07/kidsAuth/notify"
	"github.com/MrEthical07/kidsAuth/storage/sqlstore"
	"github.com/caarlos0/env/v11"
)

// serverConfig holds process settings. Engine settings are read separately
// by kidsAuth.LoadConfigFromEnv from the same KIDSAUTH_ namespace.
type serverConfig struct {
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8080"`
	DBDriver        string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN           string        `env:"DB_DSN" envDefault:"kidsauth.db"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns  int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnLifetime  time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"false"`
	RedisURL        string        `env:"REDIS_URL"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES"`
	MetricsEnabled  bool          `env:"METRICS_ENDPOINT" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	SMTP   notify.SMTPConfig   `envPrefix:"SMTP_"`
	Twilio notify.TwilioConfig `envPrefix:"TWILIO_"`
	Google federated.GoogleConfig
}

func loadServerConfig(opts env.Options) (serverConfig, error) {
	var cfg serverConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return serverConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := sqlstore.ParseDialect(cfg.DBDriver); err != nil {
		return serverConfig{}, err
	}
	if strings.TrimSpace(cfg.DBDSN) == "" {
		return serverConfig{}, fmt.Errorf("%sDB_DSN must be set", kidsAuth.EnvPrefix)
	}
	return cfg, nil
}

func (c serverConfig) pool() sqlstore.PoolConfig {
	return sqlstore.PoolConfig{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnLifetime,
	}
}

// newLogger builds the process logger: text for local development, JSON in
// production unless LOG_FORMAT says otherwise.
func newLogger(w io.Writer, level, format string, production bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "":
		if production {
			return slog.New(slog.NewJSONHandler(w, opts)), nil
		}
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
}
