package kidsAuth

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestLintDefaultConfig(t *testing.T) {
	cfg := testConfig()
	ws := cfg.Lint()
	codes := ws.Codes()

	for _, want := range []string{"not_production", "ip_throttle_disabled", "audit_disabled", "verification_link_insecure"} {
		if !slices.Contains(codes, want) {
			t.Errorf("expected %q in %v", want, codes)
		}
	}
	if got := ws.AtLeast(LintWarn); len(got) != 0 {
		t.Fatalf("default config should have no warnings, got %v", got.Codes())
	}
}

func TestLintHardenedConfigIsQuiet(t *testing.T) {
	cfg := testConfig()
	cfg.Security.ProductionMode = true
	cfg.Security.EnableIPThrottle = true
	cfg.Verification.LinkBaseURL = "https://kids.example.com/api/user/verify"
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false

	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no findings, got %v", ws.Codes())
	}
}

func TestLintFindings(t *testing.T) {
	tests := []struct {
		code     string
		severity LintSeverity
		mutate   func(*Config)
	}{
		{"leeway_large", LintWarn, func(c *Config) { c.JWT.Leeway = 90 * time.Second }},
		{"session_ttl_long", LintWarn, func(c *Config) { c.JWT.SessionTTL = 24 * time.Hour }},
		{"verification_ttl_long", LintInfo, func(c *Config) { c.JWT.VerificationTTL = 72 * time.Hour }},
		{"bcrypt_cost_high", LintInfo, func(c *Config) { c.Password.Cost = 15 }},
		{"two_factor_digits_short", LintWarn, func(c *Config) { c.TwoFactor.Digits = 4 }},
		{"two_factor_ttl_long", LintWarn, func(c *Config) { c.TwoFactor.CodeTTL = time.Hour }},
		{"login_throttle_disabled", LintHigh, func(c *Config) { c.Security.EnableLoginThrottle = false }},
		{"code_attempts_high", LintWarn, func(c *Config) { c.Security.MaxCodeAttempts = 50 }},
		{"audit_drops_when_full", LintInfo, func(c *Config) { c.Audit.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("lint cases must be valid configs: %v", err)
			}
			for _, w := range cfg.Lint() {
				if w.Code == tt.code {
					if w.Severity != tt.severity {
						t.Fatalf("severity = %s, want %s", w.Severity, tt.severity)
					}
					return
				}
			}
			t.Fatalf("expected finding %q", tt.code)
		})
	}
}

func TestLintNeverEchoesSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = false
	for _, w := range cfg.Lint() {
		if strings.Contains(w.Message, string(cfg.JWT.SessionSecret)) ||
			strings.Contains(w.Message, string(cfg.JWT.VerificationSecret)) {
			t.Fatalf("lint message leaked a secret: %q", w.Message)
		}
	}
}

func TestSecurityReport(t *testing.T) {
	env := newTestEnv(t, testConfig())
	r := env.engine.SecurityReport()
	if r.SigningAlgorithm != "hs256" || r.SessionTTL != time.Hour || r.BcryptCost != 10 {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.TwoFactorDigits != 6 || r.TwoFactorCodeTTL != 5*time.Minute || r.ChallengeBackend != ChallengeOnRecord {
		t.Fatalf("unexpected two-factor report %+v", r)
	}
	if r.LoginThrottleActive {
		t.Fatal("throttle cannot be active without redis")
	}
	if !r.FederatedLoginEnabled || r.AuditEnabled {
		t.Fatalf("unexpected collaborators in report %+v", r)
	}

	_, rdb := newTestRedis(t)
	throttled := newTestEnv(t, testConfig(), func(b *Builder) { b.WithRedis(rdb) })
	if !throttled.engine.SecurityReport().LoginThrottleActive {
		t.Fatal("expected throttle active with redis")
	}

	var nilEngine *Engine
	if nilEngine.SecurityReport() != (SecurityReport{}) {
		t.Fatal("nil engine should report zero value")
	}
}
