package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/federated"
	"github.com/MrEthical07/kidsAuth/httpapi"
	"github.com/MrEthical07/kidsAuth/metrics/export/prometheus"
	"github.com/MrEthical07/kidsAuth/notify"
	"github.com/MrEthical07/kidsAuth/storage/sqlstore"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadServerConfig(envOptions())
	if err != nil {
		return err
	}
	authCfg, err := kidsAuth.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	production := authCfg.Security.ProductionMode

	logger, err := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat, production)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	rdb, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	engine, err := buildEngine(cfg, authCfg, store, rdb, logger)
	if err != nil {
		return err
	}
	defer engine.Close()
	logPosture(ctx, logger, authCfg, engine)

	opts := httpapi.Options{
		Logger:            logger,
		Health:            healthCheck(store, rdb),
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		TrustedProxies:    cfg.TrustedProxies,
	}
	if cfg.MetricsEnabled {
		opts.Metrics = prometheus.NewExporter(engine)
	}
	handler, err := httpapi.NewRouter(engine, opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			slog.String("addr", cfg.ListenAddr),
			slog.String("db", string(store.Dialect())),
			slog.Bool("redis", rdb != nil),
			slog.Bool("production", production),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// logPosture logs the configuration lint findings and the engine's
// security report once at startup.
func logPosture(ctx context.Context, logger *slog.Logger, cfg kidsAuth.Config, engine *kidsAuth.Engine) {
	for _, w := range cfg.Lint() {
		level := slog.LevelInfo
		if w.Severity >= kidsAuth.LintWarn {
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, "config lint",
			slog.String("code", w.Code),
			slog.String("severity", w.Severity.String()),
			slog.String("message", w.Message),
		)
	}

	r := engine.SecurityReport()
	logger.LogAttrs(ctx, slog.LevelInfo, "security posture",
		slog.Bool("production", r.ProductionMode),
		slog.String("signing", r.SigningAlgorithm),
		slog.Bool("key_rotation", r.KeyRotation),
		slog.Duration("session_ttl", r.SessionTTL),
		slog.Int("bcrypt_cost", r.BcryptCost),
		slog.String("challenge_backend", string(r.ChallengeBackend)),
		slog.Bool("login_throttle", r.LoginThrottleActive),
		slog.Bool("ip_throttle", r.IPThrottleActive),
		slog.Bool("federated", r.FederatedLoginEnabled),
		slog.Bool("audit", r.AuditEnabled),
	)
}

// buildEngine wires the engine collaborators chosen by configuration. A nil
// rdb keeps two-factor codes on the account row and disables throttling.
func buildEngine(cfg serverConfig, authCfg kidsAuth.Config, store *sqlstore.Store, rdb *redis.Client, logger *slog.Logger) (*kidsAuth.Engine, error) {
	email, sms, err := senders(cfg, authCfg.Security.ProductionMode, logger)
	if err != nil {
		return nil, err
	}

	b := kidsAuth.New().
		WithConfig(authCfg).
		WithAccountStore(store).
		WithProfileStore(store).
		WithEmailSender(email).
		WithSMSSender(sms).
		WithLogger(logger)
	if rdb != nil {
		b.WithRedis(rdb)
	}
	if cfg.Google.ClientID != "" {
		verifier, err := federated.NewGoogleVerifier(cfg.Google)
		if err != nil {
			return nil, err
		}
		b.WithIdentityVerifier(verifier)
	}
	if authCfg.Audit.Enabled {
		b.WithAuditSink(kidsAuth.NewSlogSink(logger))
	}
	return b.Build()
}

// senders picks SMTP and Twilio when configured and otherwise falls back to
// logging the messages. Production refuses the fallback.
func senders(cfg serverConfig, production bool, logger *slog.Logger) (kidsAuth.EmailSender, kidsAuth.SMSSender, error) {
	var email kidsAuth.EmailSender
	switch {
	case cfg.SMTP.Configured():
		m, err := notify.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}
		email = m
	case production:
		return nil, nil, errors.New("production mode requires SMTP settings (KIDSAUTH_SMTP_*)")
	default:
		logger.Warn("SMTP not configured, verification email will only be logged")
		email = notify.LogMailer{Logger: logger}
	}

	var sms kidsAuth.SMSSender
	switch {
	case cfg.Twilio.Configured():
		s, err := notify.NewTwilioSender(cfg.Twilio, nil)
		if err != nil {
			return nil, nil, err
		}
		sms = s
	case production:
		return nil, nil, errors.New("production mode requires Twilio settings (KIDSAUTH_TWILIO_*)")
	default:
		logger.Warn("Twilio not configured, two-factor codes will only be logged")
		sms = notify.LogSMS{Logger: logger}
	}
	return email, sms, nil
}

func healthCheck(store *sqlstore.Store, rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
