package kidsAuth

import "time"

// SecurityReport summarizes the security posture of a built engine. It
// carries no secret material and is safe to log.
type SecurityReport struct {
	ProductionMode   bool
	SigningAlgorithm string
	KeyID            string
	KeyRotation      bool

	SessionTTL      time.Duration
	VerificationTTL time.Duration
	BcryptCost      int

	TwoFactorDigits  int
	TwoFactorCodeTTL time.Duration
	ChallengeBackend ChallengeBackend

	// LoginThrottleActive is false whenever no Redis client was supplied,
	// whatever the configuration says.
	LoginThrottleActive bool
	IPThrottleActive    bool

	FederatedLoginEnabled bool
	AuditEnabled          bool
}

// SecurityReport describes the engine as built.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	throttled := e.rateLimiter != nil && cfg.Security.EnableLoginThrottle

	return SecurityReport{
		ProductionMode:        cfg.Security.ProductionMode,
		SigningAlgorithm:      cfg.JWT.SigningMethod,
		KeyID:                 cfg.JWT.KeyID,
		KeyRotation:           len(cfg.JWT.SessionVerifyKeys) > 1 || len(cfg.JWT.VerificationVerifyKeys) > 1,
		SessionTTL:            cfg.JWT.SessionTTL,
		VerificationTTL:       cfg.JWT.VerificationTTL,
		BcryptCost:            cfg.Password.Cost,
		TwoFactorDigits:       cfg.TwoFactor.Digits,
		TwoFactorCodeTTL:      cfg.TwoFactor.CodeTTL,
		ChallengeBackend:      cfg.TwoFactor.Backend,
		LoginThrottleActive:   throttled,
		IPThrottleActive:      throttled && cfg.Security.EnableIPThrottle,
		FederatedLoginEnabled: e.verifier != nil,
		AuditEnabled:          e.audit != nil,
	}
}
