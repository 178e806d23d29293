package kidsAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrEthical07/kidsAuth/internal"
	"github.com/MrEthical07/kidsAuth/internal/rate"
)

const challengeSentMessage = "Verification code sent to your phone."

// LoginRequest starts a login. Password accounts send Password; federated
// accounts send the identity provider assertion in IDToken instead.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IDToken  string `json:"idToken,omitempty"`
}

// LoginResult is the outcome of the first login step. Password accounts get
// AccountID and Message and must finish with VerifyTwoFactor. Federated
// accounts are authenticated immediately and get Session.
type LoginResult struct {
	AccountID string         `json:"accountId"`
	Message   string         `json:"message"`
	Session   *SessionResult `json:"-"`
}

// Login checks credentials and, for password accounts, sends a two-factor
// code by SMS. Unknown emails and wrong passwords both return
// ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if email == "" || (req.Password == "" && strings.TrimSpace(req.IDToken) == "") {
		return nil, fmt.Errorf("%w: email and password are required", ErrBadRequest)
	}

	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrRateLimited, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return nil, e.limiterError(ctx, err)
		}
	}

	account, err := e.accounts.FindAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, fmt.Errorf("find account: %w", err)
		}
		// Spend the same bcrypt work as a real mismatch.
		_, _ = e.hasher.Verify(req.Password, e.dummyHash)
		return nil, e.loginFailed(ctx, email, ip, "")
	}

	if err := statusGate(account); err != nil {
		e.metricInc(MetricLoginForbidden)
		e.emitAudit(ctx, auditEventLoginPassword, false, account.ID, "", err, nil)
		return nil, err
	}

	if account.Federated() {
		return e.loginFederatedAccount(ctx, account, req.IDToken, ip)
	}

	ok, err := e.hasher.Verify(req.Password, account.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			e.logger.WarnContext(ctx, "stored password hash unusable",
				slog.String("account_id", account.ID),
				slog.Any("error", err),
			)
		}
		return nil, e.loginFailed(ctx, email, ip, account.ID)
	}

	e.upgradePasswordHash(ctx, account, req.Password)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, email, ip); err != nil {
			e.logger.WarnContext(ctx, "login throttle reset failed", slog.Any("error", err))
		}
	}

	e.metricInc(MetricLoginPasswordSuccess)
	e.emitAudit(ctx, auditEventLoginPassword, true, account.ID, "", nil, nil)

	if err := e.issueChallenge(ctx, account); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccountID: account.ID,
		Message:   challengeSentMessage,
	}, nil
}

func (e *Engine) loginFailed(ctx context.Context, email, ip, accountID string) error {
	e.metricInc(MetricLoginFailure)
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			e.logger.DebugContext(ctx, "login throttle increment", slog.Any("error", err))
		}
	}
	e.emitAudit(ctx, auditEventLoginPassword, false, accountID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"identifier": email}
	})
	return ErrInvalidCredentials
}

func statusGate(account *Account) error {
	switch account.Status {
	case StatusActive:
		return nil
	case StatusPending:
		return ErrAccountPending
	default:
		return ErrAccountInactive
	}
}

func (e *Engine) upgradePasswordHash(ctx context.Context, account *Account, plaintext string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	stale, err := e.hasher.NeedsRehash(account.PasswordHash)
	if err != nil || !stale {
		return
	}
	upgraded, err := e.hasher.Hash(plaintext)
	if err != nil {
		return
	}
	if err := e.accounts.UpdatePasswordHash(ctx, account.ID, upgraded); err != nil {
		e.logger.WarnContext(ctx, "password hash upgrade failed",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
		return
	}
	account.PasswordHash = upgraded
	e.metricInc(MetricPasswordRehashed)
}

// issueChallenge stores a fresh code, replacing any pending one, and texts it
// to the account phone. A failed send clears the code again.
func (e *Engine) issueChallenge(ctx context.Context, account *Account) error {
	code, err := internal.NewNumericCode(e.config.TwoFactor.Digits)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	expiresAt := e.now().Add(e.config.TwoFactor.CodeTTL)
	if err := e.challenges.SetChallenge(ctx, account.ID, code, expiresAt); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}

	body := fmt.Sprintf(e.config.TwoFactor.MessageFormat, code)
	messageID, err := e.sms.SendSMS(ctx, account.Phone, body)
	if err != nil {
		e.metricInc(MetricChallengeDispatchFailure)
		if clearErr := e.challenges.ClearChallenge(ctx, account.ID); clearErr != nil {
			e.logger.ErrorContext(ctx, "challenge clear after failed sms",
				slog.String("account_id", account.ID),
				slog.Any("error", clearErr),
			)
		}
		e.logger.WarnContext(ctx, "two-factor sms failed",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
		e.emitAudit(ctx, auditEventChallengeIssued, false, account.ID, "", ErrDependencyFailure, nil)
		return fmt.Errorf("%w: verification code not sent", ErrDependencyFailure)
	}

	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, auditEventChallengeIssued, true, account.ID, "", nil, func() map[string]string {
		return map[string]string{"message_id": messageID}
	})
	return nil
}

// VerifyTwoFactor redeems the pending code for accountID and returns a
// session. A code verifies at most once and only before it expires.
func (e *Engine) VerifyTwoFactor(ctx context.Context, accountID, code string) (*SessionResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	accountID = strings.TrimSpace(accountID)
	code = strings.TrimSpace(code)
	if accountID == "" || code == "" {
		return nil, fmt.Errorf("%w: accountId and code are required", ErrBadRequest)
	}

	account, err := e.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckCode(ctx, account.ID); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventChallengeVerify, false, account.ID, "", ErrRateLimited, nil)
			return nil, e.limiterError(ctx, err)
		}
	}

	if err := statusGate(account); err != nil {
		e.emitAudit(ctx, auditEventChallengeVerify, false, account.ID, "", err, nil)
		return nil, err
	}

	ok, err := e.challenges.ConsumeChallenge(ctx, account.ID, code, e.now())
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	if !ok {
		e.metricInc(MetricChallengeFailure)
		if e.rateLimiter != nil {
			if err := e.rateLimiter.IncrementCode(ctx, account.ID); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				e.logger.DebugContext(ctx, "code throttle increment", slog.Any("error", err))
			}
		}
		e.emitAudit(ctx, auditEventChallengeVerify, false, account.ID, "", ErrInvalidOrExpiredCode, nil)
		return nil, ErrInvalidOrExpiredCode
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetCode(ctx, account.ID); err != nil {
			e.logger.WarnContext(ctx, "code throttle reset failed", slog.Any("error", err))
		}
	}

	e.metricInc(MetricChallengeSuccess)
	e.emitAudit(ctx, auditEventChallengeVerify, true, account.ID, "", nil, nil)

	return e.newSession(account)
}
