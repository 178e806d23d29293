package kidsAuth

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/kidsAuth/password"
)

// Config defines a public type used by kidsAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT          JWTConfig
	Password     PasswordConfig
	TwoFactor    TwoFactorConfig
	Account      AccountConfig
	Verification VerificationConfig
	Security     SecurityConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the signing material for both token namespaces. Session and
// verification tokens must use distinct secrets and audiences.
type JWTConfig struct {
	SessionTTL      time.Duration
	VerificationTTL time.Duration
	SigningMethod   string // "hs256" (default) or "ed25519"

	// For hs256 these are shared secrets. For ed25519 they are private keys.
	SessionSecret      []byte
	VerificationSecret []byte
	// Ed25519 public keys. Ignored for hs256.
	SessionPublicKey      []byte
	VerificationPublicKey []byte

	Issuer               string
	SessionAudience      string
	VerificationAudience string
	Leeway               time.Duration

	// KeyID is stamped on issued tokens. The VerifyKeys maps, when set, are the
	// keysets consulted by kid during verification.
	KeyID                  string
	SessionVerifyKeys      map[string][]byte
	VerificationVerifyKeys map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by kidsAuth APIs.
type PasswordConfig struct {
	Cost           int
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
TWO-FACTOR CONFIG
====================================
*/

// ChallengeBackend selects where pending two-factor codes live.
type ChallengeBackend string

const (
	// ChallengeOnRecord keeps the code on the account record.
	ChallengeOnRecord ChallengeBackend = "record"
	// ChallengeOnRedis keeps the code in a Redis keyed store.
	ChallengeOnRedis ChallengeBackend = "redis"
)

// TwoFactorConfig defines a public type used by kidsAuth APIs.
type TwoFactorConfig struct {
	Digits      int
	CodeTTL     time.Duration
	Backend     ChallengeBackend
	RedisPrefix string
	// MessageFormat is passed to fmt.Sprintf with the code.
	MessageFormat string
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig defines a public type used by kidsAuth APIs.
type AccountConfig struct {
	MinAge              int
	PINDigits           int
	ProfilePINMinDigits int
	ProfilePINMaxDigits int
}

// VerificationConfig controls the activation email.
type VerificationConfig struct {
	// LinkBaseURL is joined with the token: <LinkBaseURL>/<token>.
	LinkBaseURL string
	Subject     string
}

/*
====================================
SECURITY / AUDIT / METRICS
====================================
*/

// SecurityConfig defines a public type used by kidsAuth APIs.
//
// Login throttling takes effect only when a Redis client is supplied.
type SecurityConfig struct {
	ProductionMode        bool
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	MaxCodeAttempts       int
	CodeCooldownDuration  time.Duration
}

// AuditConfig defines a public type used by kidsAuth APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by kidsAuth APIs.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration with every non-secret field set.
// Callers must supply the two signing secrets.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SessionTTL:           time.Hour,
			VerificationTTL:      time.Hour,
			SigningMethod:        "hs256",
			Issuer:               "kidsauth",
			SessionAudience:      "kidsauth:session",
			VerificationAudience: "kidsauth:verify",
		},
		Password: PasswordConfig{
			Cost:           password.DefaultCost,
			MinLength:      6,
			UpgradeOnLogin: true,
		},
		TwoFactor: TwoFactorConfig{
			Digits:        6,
			CodeTTL:       5 * time.Minute,
			Backend:       ChallengeOnRecord,
			RedisPrefix:   "tfa",
			MessageFormat: "Your verification code is: %s",
		},
		Account: AccountConfig{
			MinAge:              18,
			PINDigits:           6,
			ProfilePINMinDigits: 4,
			ProfilePINMaxDigits: 6,
		},
		Verification: VerificationConfig{
			LinkBaseURL: "http://localhost:3000/api/user/verify",
			Subject:     "Verify your account",
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			MaxCodeAttempts:       5,
			CodeCooldownDuration:  5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SessionSecret = cloneBytes(cfg.JWT.SessionSecret)
	out.JWT.VerificationSecret = cloneBytes(cfg.JWT.VerificationSecret)
	out.JWT.SessionPublicKey = cloneBytes(cfg.JWT.SessionPublicKey)
	out.JWT.VerificationPublicKey = cloneBytes(cfg.JWT.VerificationPublicKey)
	out.JWT.SessionVerifyKeys = cloneKeyset(cfg.JWT.SessionVerifyKeys)
	out.JWT.VerificationVerifyKeys = cloneKeyset(cfg.JWT.VerificationVerifyKeys)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneKeyset(in map[string][]byte) map[string][]byte {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(in))
	for k, v := range in {
		out[k] = cloneBytes(v)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks internal consistency. Secrets are never echoed in errors.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.SessionTTL <= 0 {
		return errors.New("JWT SessionTTL must be > 0")
	}
	if c.JWT.VerificationTTL <= 0 {
		return errors.New("JWT VerificationTTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.SessionSecret) == 0 || len(c.JWT.VerificationSecret) == 0 {
			return errors.New("hs256 requires SessionSecret and VerificationSecret")
		}
	case "ed25519":
		if len(c.JWT.SessionSecret) == 0 || len(c.JWT.VerificationSecret) == 0 {
			return errors.New("ed25519 requires session and verification private keys")
		}
		if len(c.JWT.SessionPublicKey) == 0 && len(c.JWT.SessionVerifyKeys) == 0 {
			return errors.New("ed25519 requires SessionPublicKey or SessionVerifyKeys")
		}
		if len(c.JWT.VerificationPublicKey) == 0 && len(c.JWT.VerificationVerifyKeys) == 0 {
			return errors.New("ed25519 requires VerificationPublicKey or VerificationVerifyKeys")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if bytes.Equal(c.JWT.SessionSecret, c.JWT.VerificationSecret) {
		return errors.New("session and verification tokens must use different secrets")
	}
	if strings.TrimSpace(c.JWT.SessionAudience) == "" || strings.TrimSpace(c.JWT.VerificationAudience) == "" {
		return errors.New("JWT audiences must be set")
	}
	if c.JWT.SessionAudience == c.JWT.VerificationAudience {
		return errors.New("session and verification tokens must use different audiences")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Password
	if c.Password.Cost < password.MinCost {
		return fmt.Errorf("Password Cost must be >= %d", password.MinCost)
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Two-factor
	if c.TwoFactor.Digits < 4 || c.TwoFactor.Digits > 10 {
		return errors.New("TwoFactor Digits must be within [4, 10]")
	}
	if c.TwoFactor.CodeTTL <= 0 {
		return errors.New("TwoFactor CodeTTL must be > 0")
	}
	switch c.TwoFactor.Backend {
	case ChallengeOnRecord, ChallengeOnRedis:
	default:
		return errors.New("TwoFactor Backend must be record or redis")
	}
	if !strings.Contains(c.TwoFactor.MessageFormat, "%s") {
		return errors.New("TwoFactor MessageFormat must contain %s")
	}

	// Account
	if c.Account.MinAge < 0 {
		return errors.New("Account MinAge must be >= 0")
	}
	if c.Account.PINDigits < 4 {
		return errors.New("Account PINDigits must be >= 4")
	}
	if c.Account.ProfilePINMinDigits < 1 || c.Account.ProfilePINMaxDigits < c.Account.ProfilePINMinDigits {
		return errors.New("Account profile PIN bounds are inconsistent")
	}

	if strings.TrimSpace(c.Verification.LinkBaseURL) == "" {
		return errors.New("Verification LinkBaseURL must be set")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 || c.Security.LoginCooldownDuration <= 0 {
			return errors.New("login throttle requires MaxLoginAttempts and LoginCooldownDuration > 0")
		}
		if c.Security.MaxCodeAttempts <= 0 || c.Security.CodeCooldownDuration <= 0 {
			return errors.New("login throttle requires MaxCodeAttempts and CodeCooldownDuration > 0")
		}
	}
	if c.Security.ProductionMode {
		if c.JWT.SigningMethod == "hs256" && (len(c.JWT.SessionSecret) < 32 || len(c.JWT.VerificationSecret) < 32) {
			return errors.New("production mode requires hs256 secrets of at least 32 bytes")
		}
		if strings.HasPrefix(c.Verification.LinkBaseURL, "http://") {
			return errors.New("production mode requires an https verification link")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
