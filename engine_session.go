package kidsAuth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SessionResult is returned by every flow that ends authenticated.
type SessionResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Account   AccountSummary `json:"account"`
}

func (e *Engine) newSession(account *Account) (*SessionResult, error) {
	token, exp, err := e.sessionTokens.Issue(account.ID, account.Email, nil)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	e.metricInc(MetricSessionIssued)
	return &SessionResult{
		Token:     token,
		ExpiresAt: exp,
		Account:   account.Summary(),
	}, nil
}

// IssueSession mints a session token for an account id and email without
// running any login flow. Extra claims are copied onto Identity.Extra.
func (e *Engine) IssueSession(accountID, email string, extra map[string]string) (string, time.Time, error) {
	if e == nil || e.sessionTokens == nil {
		return "", time.Time{}, ErrEngineNotReady
	}
	token, exp, err := e.sessionTokens.Issue(accountID, email, extra)
	if err != nil {
		return "", time.Time{}, err
	}
	e.metricInc(MetricSessionIssued)
	return token, exp, nil
}

// ValidateSession verifies a session token. Every failure, expired or not,
// returns ErrUnauthorized.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*Identity, error) {
	if e == nil || e.sessionTokens == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	token = strings.TrimSpace(token)
	if token == "" {
		e.metricInc(MetricSessionRejected)
		return nil, ErrUnauthorized
	}

	claims, err := e.sessionTokens.Parse(token)
	if err != nil {
		e.metricInc(MetricSessionRejected)
		return nil, ErrUnauthorized
	}

	identity := &Identity{
		AccountID: claims.AccountID(),
		Email:     claims.Email,
		Extra:     claims.Extra,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
