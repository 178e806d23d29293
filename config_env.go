package kidsAuth

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig is the environment surface of Config. Unset variables fall back
// to DefaultConfig.
type envConfig struct {
	SessionSecret          string            `env:"SESSION_SECRET"`
	VerificationSecret     string            `env:"VERIFICATION_SECRET"`
	SigningMethod          string            `env:"SIGNING_METHOD" envDefault:"hs256"`
	SessionTTL             time.Duration     `env:"SESSION_TTL" envDefault:"1h"`
	VerificationTTL        time.Duration     `env:"VERIFICATION_TTL" envDefault:"1h"`
	Issuer                 string            `env:"ISSUER" envDefault:"kidsauth"`
	KeyID                  string            `env:"KEY_ID"`
	SessionVerifyKeys      map[string]string `env:"SESSION_VERIFY_KEYS"`
	VerificationVerifyKeys map[string]string `env:"VERIFICATION_VERIFY_KEYS"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	TwoFactorBackend string        `env:"TWO_FACTOR_BACKEND" envDefault:"record"`
	TwoFactorTTL     time.Duration `env:"TWO_FACTOR_TTL" envDefault:"5m"`

	VerificationLinkBaseURL string `env:"VERIFICATION_LINK_BASE_URL" envDefault:"http://localhost:3000/api/user/verify"`

	ProductionMode      bool `env:"PRODUCTION_MODE" envDefault:"false"`
	EnableLoginThrottle bool `env:"LOGIN_THROTTLE" envDefault:"true"`
	EnableIPThrottle    bool `env:"IP_THROTTLE" envDefault:"false"`
	MaxLoginAttempts    int  `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	MaxCodeAttempts     int  `env:"MAX_CODE_ATTEMPTS" envDefault:"5"`

	AuditEnabled bool `env:"AUDIT_ENABLED" envDefault:"false"`
}

// EnvPrefix is prepended to every variable read by LoadConfigFromEnv.
const EnvPrefix = "KIDSAUTH_"

// LoadConfigFromEnv builds a validated Config from KIDSAUTH_* variables.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Options{Prefix: EnvPrefix})
}

func loadConfig(opts env.Options) (Config, error) {
	var raw envConfig
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := defaultConfig()
	cfg.JWT.SessionSecret = []byte(raw.SessionSecret)
	cfg.JWT.VerificationSecret = []byte(raw.VerificationSecret)
	cfg.JWT.SigningMethod = raw.SigningMethod
	cfg.JWT.SessionTTL = raw.SessionTTL
	cfg.JWT.VerificationTTL = raw.VerificationTTL
	cfg.JWT.Issuer = raw.Issuer
	cfg.JWT.KeyID = raw.KeyID
	cfg.JWT.SessionVerifyKeys = keysetFromEnv(raw.SessionVerifyKeys)
	cfg.JWT.VerificationVerifyKeys = keysetFromEnv(raw.VerificationVerifyKeys)
	cfg.Password.Cost = raw.BcryptCost
	cfg.TwoFactor.Backend = ChallengeBackend(raw.TwoFactorBackend)
	cfg.TwoFactor.CodeTTL = raw.TwoFactorTTL
	cfg.Verification.LinkBaseURL = raw.VerificationLinkBaseURL
	cfg.Security.ProductionMode = raw.ProductionMode
	cfg.Security.EnableLoginThrottle = raw.EnableLoginThrottle
	cfg.Security.EnableIPThrottle = raw.EnableIPThrottle
	cfg.Security.MaxLoginAttempts = raw.MaxLoginAttempts
	cfg.Security.MaxCodeAttempts = raw.MaxCodeAttempts
	cfg.Audit.Enabled = raw.AuditEnabled

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func keysetFromEnv(in map[string]string) map[string][]byte {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(in))
	for kid, secret := range in {
		out[kid] = []byte(secret)
	}
	return out
}
