package kidsAuth

import (
	"strings"
	"time"
)

// LintSeverity ranks a lint finding.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintHigh:
		return "high"
	case LintWarn:
		return "warn"
	default:
		return "info"
	}
}

// LintWarning is one advisory finding. Codes are stable; messages are not.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list returned by Config.Lint.
type LintResult []LintWarning

// Codes returns the finding codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// AtLeast keeps the findings at or above min.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports settings that pass Validate but are unusual for a deployed
// service. It never fails and never mentions secret values.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if !c.Security.ProductionMode {
		add("not_production", LintInfo, "production mode is off; secret length and https checks are skipped")
	}
	if c.JWT.Leeway > 30*time.Second {
		add("leeway_large", LintWarn, "JWT leeway above 30s extends every token's life")
	}
	if c.JWT.SessionTTL > time.Hour {
		add("session_ttl_long", LintWarn, "session tokens live longer than one hour and cannot be revoked")
	}
	if c.JWT.VerificationTTL > 24*time.Hour {
		add("verification_ttl_long", LintInfo, "verification links stay valid for more than a day")
	}
	if c.Password.Cost > 14 {
		add("bcrypt_cost_high", LintInfo, "bcrypt cost above 14 makes every login noticeably slow")
	}
	if c.TwoFactor.Digits < 6 {
		add("two_factor_digits_short", LintWarn, "two-factor codes shorter than 6 digits are easier to guess")
	}
	if c.TwoFactor.CodeTTL > 10*time.Minute {
		add("two_factor_ttl_long", LintWarn, "two-factor codes stay valid for more than 10 minutes")
	}
	if !c.Security.EnableLoginThrottle {
		add("login_throttle_disabled", LintHigh, "password and two-factor attempts are not rate limited")
	} else if !c.Security.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "login attempts are limited per email only")
	}
	if c.Security.EnableLoginThrottle && c.Security.MaxCodeAttempts > 10 {
		add("code_attempts_high", LintWarn, "more than 10 two-factor guesses are allowed per cooldown")
	}
	if strings.HasPrefix(c.Verification.LinkBaseURL, "http://") && !c.Security.ProductionMode {
		add("verification_link_insecure", LintInfo, "verification links use plain http")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "security events are not audited")
	} else if c.Audit.DropIfFull {
		add("audit_drops_when_full", LintInfo, "audit events are dropped when the buffer is full")
	}

	return ws
}
