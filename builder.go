package kidsAuth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/kidsAuth/internal"
	"github.com/MrEthical07/kidsAuth/internal/rate"
	"github.com/MrEthical07/kidsAuth/internal/stores"
	"github.com/MrEthical07/kidsAuth/jwt"
	"github.com/MrEthical07/kidsAuth/password"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by kidsAuth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts   AccountStore
	profiles   ProfileStore
	challenges ChallengeStore

	email    EmailSender
	sms      SMSSender
	verifier IdentityVerifier

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis enables login and code throttling, and is required when the
// two-factor backend is ChallengeOnRedis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the credential store. Required.
//
// When the two-factor backend is ChallengeOnRecord and no explicit
// ChallengeStore is given, store must also implement ChallengeStore.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithProfileStore sets the profile store. Required.
func (b *Builder) WithProfileStore(store ProfileStore) *Builder {
	b.profiles = store
	return b
}

// WithChallengeStore overrides where pending two-factor codes are kept.
func (b *Builder) WithChallengeStore(store ChallengeStore) *Builder {
	b.challenges = store
	return b
}

// WithEmailSender sets the verification email transport. Required.
func (b *Builder) WithEmailSender(sender EmailSender) *Builder {
	b.email = sender
	return b
}

// WithSMSSender sets the two-factor code transport. Required.
func (b *Builder) WithSMSSender(sender SMSSender) *Builder {
	b.sms = sender
	return b
}

// WithIdentityVerifier enables federated login.
func (b *Builder) WithIdentityVerifier(verifier IdentityVerifier) *Builder {
	b.verifier = verifier
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// Events are only delivered when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for operational warnings.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for every expiry decision the engine makes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires collaborators, and returns a
// ready Engine. A Builder can only be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.profiles == nil {
		return nil, errors.New("profile store required")
	}
	if b.email == nil {
		return nil, errors.New("email sender required")
	}
	if b.sms == nil {
		return nil, errors.New("sms sender required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- CHALLENGE STORE --------
	challenges := b.challenges
	if challenges == nil {
		switch cfg.TwoFactor.Backend {
		case ChallengeOnRedis:
			if b.redis == nil {
				return nil, errors.New("redis two-factor backend requires redis client")
			}
			challenges = &redisChallengeStore{
				store: stores.NewChallengeStore(b.redis, cfg.TwoFactor.RedisPrefix, now),
			}
		default:
			cs, ok := b.accounts.(ChallengeStore)
			if !ok {
				return nil, errors.New("record two-factor backend requires the account store to implement ChallengeStore")
			}
			challenges = cs
		}
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		accounts:   b.accounts,
		profiles:   b.profiles,
		challenges: challenges,
		email:      b.email,
		sms:        b.sms,
		verifier:   b.verifier,
		logger:     logger,
		now:        now,
	}

	// -------- RATE LIMITER --------
	if b.redis != nil && cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
			MaxCodeAttempts:       cfg.Security.MaxCodeAttempts,
			CodeCooldownDuration:  cfg.Security.CodeCooldownDuration,
		})
	}

	engine.metrics = NewMetrics(cfg.Metrics)

	ph, err := password.NewBcrypt(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, err
	}
	engine.hasher = ph

	dummy, err := internal.NewNumericCode(10)
	if err != nil {
		return nil, err
	}
	if engine.dummyHash, err = ph.Hash(dummy); err != nil {
		return nil, err
	}

	// -------- TOKEN MANAGERS --------
	sessions, err := jwt.NewManager(jwt.Config{
		Purpose:       jwt.PurposeSession,
		TTL:           cfg.JWT.SessionTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.SessionSecret),
		PublicKey:     cloneBytes(cfg.JWT.SessionPublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.SessionAudience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cloneKeyset(cfg.JWT.SessionVerifyKeys),
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.sessionTokens = sessions

	verification, err := jwt.NewManager(jwt.Config{
		Purpose:       jwt.PurposeVerification,
		TTL:           cfg.JWT.VerificationTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.VerificationSecret),
		PublicKey:     cloneBytes(cfg.JWT.VerificationPublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.VerificationAudience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cloneKeyset(cfg.JWT.VerificationVerifyKeys),
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.verificationTokens = verification

	// Started last so a failed Build leaves no worker behind.
	sink := b.auditSink
	if sink == nil {
		sink = NewSlogSink(logger)
	}
	engine.audit = newAuditDispatcher(cfg.Audit, sink)
	b.built = true

	return engine, nil
}
