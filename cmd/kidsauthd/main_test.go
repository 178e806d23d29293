package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/notify"
	"github.com/MrEthical07/kidsAuth/storage/sqlstore"
	"github.com/caarlos0/env/v11"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := loadServerConfig(env.Options{Prefix: kidsAuth.EnvPrefix, Environment: map[string]string{}})
	if err != nil {
		t.Fatalf("loadServerConfig: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.DBDriver != "sqlite" || cfg.AutoMigrate {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SMTP.Port != 587 || cfg.SMTP.Configured() || cfg.Twilio.Configured() {
		t.Fatalf("unexpected sender defaults %+v %+v", cfg.SMTP, cfg.Twilio)
	}
	if cfg.Google.CacheTTL != time.Hour {
		t.Fatalf("expected 1h certs ttl, got %s", cfg.Google.CacheTTL)
	}
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	cfg, err := loadServerConfig(env.Options{
		Prefix: kidsAuth.EnvPrefix,
		Environment: map[string]string{
			"KIDSAUTH_DB_DRIVER":           "mysql",
			"KIDSAUTH_DB_DSN":              "kids:pw@tcp(db:3306)/kids",
			"KIDSAUTH_TRUSTED_PROXIES":     "10.0.0.0/8,172.16.0.0/12",
			"KIDSAUTH_SMTP_HOST":           "smtp.example.com",
			"KIDSAUTH_SMTP_FROM_ADDRESS":   "no-reply@example.com",
			"KIDSAUTH_TWILIO_ACCOUNT_SID":  "AC123",
			"KIDSAUTH_TWILIO_AUTH_TOKEN":   "tok",
			"KIDSAUTH_TWILIO_PHONE_NUMBER": "+15550000000",
			"KIDSAUTH_GOOGLE_CLIENT_ID":    "client.apps.googleusercontent.com",
		},
	})
	if err != nil {
		t.Fatalf("loadServerConfig: %v", err)
	}
	if cfg.DBDriver != "mysql" || len(cfg.TrustedProxies) != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.SMTP.Configured() || !cfg.Twilio.Configured() || cfg.Google.ClientID == "" {
		t.Fatal("expected senders and google configured from env")
	}
}

func TestLoadServerConfigRejectsUnknownDriver(t *testing.T) {
	_, err := loadServerConfig(env.Options{
		Prefix:      kidsAuth.EnvPrefix,
		Environment: map[string]string{"KIDSAUTH_DB_DRIVER": "oracle"},
	})
	if err == nil {
		t.Fatal("expected unknown driver rejected")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		format     string
		production bool
		wantJSON   bool
		wantErr    bool
	}{
		{name: "dev default", level: "info", wantJSON: false},
		{name: "prod default", level: "info", production: true, wantJSON: true},
		{name: "explicit json", level: "debug", format: "json", wantJSON: true},
		{name: "explicit text in prod", level: "warn", format: "TEXT", production: true},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(&buf, tt.level, tt.format, tt.production)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newLogger: %v", err)
			}
			logger.Error("hello")
			if got := strings.HasPrefix(buf.String(), "{"); got != tt.wantJSON {
				t.Fatalf("json output = %v, want %v: %s", got, tt.wantJSON, buf.String())
			}
		})
	}
}

func TestSendersFallbackOnlyOutsideProduction(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	email, sms, err := senders(serverConfig{}, false, logger)
	if err != nil {
		t.Fatalf("senders: %v", err)
	}
	if _, ok := email.(notify.LogMailer); !ok {
		t.Fatalf("expected log mailer, got %T", email)
	}
	if _, ok := sms.(notify.LogSMS); !ok {
		t.Fatalf("expected log sms, got %T", sms)
	}

	if _, _, err := senders(serverConfig{}, true, logger); err == nil {
		t.Fatal("production must refuse log senders")
	}

	cfg := serverConfig{
		SMTP:   notify.SMTPConfig{Host: "smtp.example.com", Port: 587, FromAddress: "no-reply@example.com", Encryption: notify.EncryptionStartTLS, Timeout: time.Second},
		Twilio: notify.TwilioConfig{AccountSID: "AC1", AuthToken: "tok", From: "+15550000000"},
	}
	email, sms, err = senders(cfg, true, logger)
	if err != nil {
		t.Fatalf("senders with providers: %v", err)
	}
	if _, ok := email.(*notify.SMTPMailer); !ok {
		t.Fatalf("expected smtp mailer, got %T", email)
	}
	if _, ok := sms.(*notify.TwilioSender); !ok {
		t.Fatalf("expected twilio sender, got %T", sms)
	}
}

func TestMigrateAndListAccounts(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("KIDSAUTH_DB_DRIVER", "sqlite")
	t.Setenv("KIDSAUTH_DB_DSN", dsn)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"migrate"})
	if err := root.Execute(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out.String(), "migrations applied") {
		t.Fatalf("unexpected migrate output %q", out.String())
	}

	store, err := sqlstore.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	authCfg := kidsAuth.DefaultConfig()
	authCfg.JWT.SessionSecret = []byte("session-secret-0123456789abcdef")
	authCfg.JWT.VerificationSecret = []byte("verify-secret-0123456789abcdef!")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine, err := buildEngine(serverConfig{}, authCfg, store, nil, logger)
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}
	summary, err := engine.Register(context.Background(), kidsAuth.RegisterRequest{
		Email:           "parent@example.com",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
		Phone:           "+15551234567",
		PIN:             "123456",
		FirstName:       "Ana",
		LastName:        "López",
		Country:         "Spain",
		DateOfBirth:     "1990-05-01",
	})
	engine.Close()
	_ = store.Close()
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"accounts", "list", "-n", "5"})
	if err := root.Execute(); err != nil {
		t.Fatalf("accounts list: %v", err)
	}
	table := out.String()
	if !strings.Contains(table, "parent@example.com") || !strings.Contains(table, "pending") {
		t.Fatalf("unexpected table:\n%s", table)
	}
	if strings.Contains(table, "$2a$") {
		t.Fatal("table leaked a hash")
	}

	t.Setenv("KIDSAUTH_SESSION_SECRET", "session-secret-0123456789abcdef")
	t.Setenv("KIDSAUTH_VERIFICATION_SECRET", "verify-secret-0123456789abcdef!")

	for _, step := range []struct {
		args []string
		want string
	}{
		{args: []string{"accounts", "enable", summary.ID}, want: summary.ID + " enabled"},
		{args: []string{"accounts", "list"}, want: "active"},
		{args: []string{"accounts", "disable", summary.ID}, want: summary.ID + " disabled"},
		{args: []string{"accounts", "list"}, want: "inactive"},
		{args: []string{"accounts", "delete", summary.ID}, want: summary.ID + " deleted"},
	} {
		out.Reset()
		root = newRootCmd()
		root.SetOut(&out)
		root.SetArgs(step.args)
		if err := root.Execute(); err != nil {
			t.Fatalf("%v: %v", step.args, err)
		}
		if !strings.Contains(out.String(), step.want) {
			t.Fatalf("%v: expected %q in output:\n%s", step.args, step.want, out.String())
		}
	}

	root = newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"accounts", "delete", summary.ID})
	if err := root.Execute(); !errors.Is(err, kidsAuth.ErrAccountNotFound) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}
}

func TestRenderAccountsEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderAccounts(&buf, nil)
	if !strings.Contains(buf.String(), "EMAIL") || !strings.Contains(buf.String(), "0") {
		t.Fatalf("unexpected empty table:\n%s", buf.String())
	}
}

func TestLogPosture(t *testing.T) {
	authCfg := kidsAuth.DefaultConfig()
	authCfg.JWT.SessionSecret = []byte("session-secret-0123456789abcdef")
	authCfg.JWT.VerificationSecret = []byte("verify-secret-0123456789abcdef!")
	authCfg.JWT.SessionTTL = 2 * time.Hour

	store, err := sqlstore.OpenSQLite(filepath.Join(t.TempDir(), "posture.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	engine, err := buildEngine(serverConfig{}, authCfg, store, nil, logger)
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}
	t.Cleanup(engine.Close)

	buf.Reset()
	logPosture(context.Background(), logger, authCfg, engine)
	out := buf.String()
	for _, want := range []string{`"code":"session_ttl_long"`, `"level":"WARN"`, `"msg":"security posture"`, `"bcrypt_cost":10`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log:\n%s", want, out)
		}
	}
	if strings.Contains(out, "session-secret") {
		t.Fatal("posture log leaked a secret")
	}
}
