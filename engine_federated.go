package kidsAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// FederatedLogin exchanges an identity provider assertion for a session.
// The assertion's email must belong to an existing federated account,
// otherwise ErrAccountNotFound is returned. No two-factor step applies.
func (e *Engine) FederatedLogin(ctx context.Context, idToken string) (*SessionResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, fmt.Errorf("%w: idToken is required", ErrBadRequest)
	}

	identity, err := e.verifyAssertion(ctx, idToken)
	if err != nil {
		e.metricInc(MetricFederatedLoginFailure)
		e.emitAudit(ctx, auditEventFederatedLogin, false, "", "", err, nil)
		return nil, err
	}

	account, err := e.accounts.FindAccountByEmail(ctx, normalizeEmail(identity.Email))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricFederatedLoginFailure)
			e.emitAudit(ctx, auditEventFederatedLogin, false, "", "", ErrAccountNotFound, nil)
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if !account.Federated() {
		e.metricInc(MetricFederatedLoginFailure)
		e.emitAudit(ctx, auditEventFederatedLogin, false, account.ID, "", ErrAccountNotFound, nil)
		return nil, ErrAccountNotFound
	}
	if err := statusGate(account); err != nil {
		e.metricInc(MetricFederatedLoginFailure)
		e.emitAudit(ctx, auditEventFederatedLogin, false, account.ID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricFederatedLoginSuccess)
	e.emitAudit(ctx, auditEventFederatedLogin, true, account.ID, "", nil, nil)
	return e.newSession(account)
}

// loginFederatedAccount finishes Login for a federated account. The
// assertion must verify and name the same email as the account.
func (e *Engine) loginFederatedAccount(ctx context.Context, account *Account, idToken, ip string) (*LoginResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, e.loginFailed(ctx, account.Email, ip, account.ID)
	}

	identity, err := e.verifyAssertion(ctx, idToken)
	if err != nil || normalizeEmail(identity.Email) != account.Email {
		e.metricInc(MetricFederatedLoginFailure)
		return nil, e.loginFailed(ctx, account.Email, ip, account.ID)
	}

	session, err := e.newSession(account)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricFederatedLoginSuccess)
	e.emitAudit(ctx, auditEventFederatedLogin, true, account.ID, "", nil, nil)

	return &LoginResult{
		AccountID: account.ID,
		Session:   session,
	}, nil
}

func (e *Engine) verifyAssertion(ctx context.Context, idToken string) (FederatedIdentity, error) {
	if e.verifier == nil {
		return FederatedIdentity{}, ErrEngineNotReady
	}

	identity, err := e.verifier.Verify(ctx, idToken)
	if err != nil {
		e.logger.DebugContext(ctx, "identity assertion rejected", slog.Any("error", err))
		return FederatedIdentity{}, ErrInvalidAssertion
	}
	if strings.TrimSpace(identity.Email) == "" || !identity.EmailVerified {
		return FederatedIdentity{}, ErrInvalidAssertion
	}
	return identity, nil
}
