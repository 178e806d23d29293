package kidsAuth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"

	"github.com/MrEthical07/kidsAuth/jwt"
)

var verificationEmailTemplate = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hello {{.FirstName}},</p>
<p>Please confirm your email address to activate your account.</p>
<p><a href="{{.Link}}">Verify my account</a></p>
<p>This link expires in {{.Expiry}}.</p>
</body>
</html>
`))

type verificationEmailData struct {
	FirstName string
	Link      string
	Expiry    string
}

func (e *Engine) verificationLink(token string) string {
	return strings.TrimRight(e.config.Verification.LinkBaseURL, "/") + "/" + url.PathEscape(token)
}

func (e *Engine) sendVerification(ctx context.Context, account *Account) error {
	token, _, err := e.verificationTokens.Issue(account.ID, account.Email, nil)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	var body bytes.Buffer
	if err := verificationEmailTemplate.Execute(&body, verificationEmailData{
		FirstName: account.FirstName,
		Link:      e.verificationLink(token),
		Expiry:    e.verificationTokens.TTL().String(),
	}); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	if err := e.email.SendEmail(ctx, account.Email, e.config.Verification.Subject, body.String()); err != nil {
		e.logger.WarnContext(ctx, "verification email failed",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
		return err
	}

	e.metricInc(MetricVerificationEmailSent)
	e.emitAudit(ctx, auditEventVerificationRequest, true, account.ID, "", nil, nil)
	return nil
}

// VerifyEmail redeems a verification token and activates the account it
// names. Expired tokens return ErrTokenExpired, any other unusable token
// ErrTokenInvalid, and an unknown account ErrAccountNotFound.
//
// Redeeming a token for an account that is already active succeeds again.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	if err := e.ready(); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		e.metricInc(MetricVerificationInvalid)
		return ErrTokenInvalid
	}

	claims, err := e.verificationTokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			e.metricInc(MetricVerificationExpired)
			e.emitAudit(ctx, auditEventVerificationConfirm, false, "", "", ErrTokenExpired, nil)
			return ErrTokenExpired
		}
		e.metricInc(MetricVerificationInvalid)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, "", "", ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	account, err := e.accounts.FindAccountByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.emitAudit(ctx, auditEventVerificationConfirm, false, claims.AccountID(), "", ErrAccountNotFound, nil)
			return ErrAccountNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}

	switch account.Status {
	case StatusActive:
		return nil
	case StatusInactive:
		e.emitAudit(ctx, auditEventVerificationConfirm, false, account.ID, "", ErrAccountInactive, nil)
		return ErrAccountInactive
	}

	if err := e.accounts.UpdateAccountStatus(ctx, account.ID, StatusActive); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("activate account: %w", err)
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, account.ID, "", nil, nil)
	e.emitAudit(ctx, auditEventAccountStatusChange, true, account.ID, "", nil, func() map[string]string {
		return map[string]string{
			"from": string(StatusPending),
			"to":   string(StatusActive),
		}
	})
	return nil
}

// ResendVerification emails a fresh link to a pending password account. The
// result is the same whether or not the email is registered.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrBadRequest)
	}

	account, err := e.accounts.FindAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			e.logger.ErrorContext(ctx, "resend verification lookup failed", slog.Any("error", err))
		}
		return nil
	}
	if account.Federated() || account.Status != StatusPending {
		return nil
	}

	// Delivery failures are logged in sendVerification and not surfaced.
	_ = e.sendVerification(ctx, account)
	return nil
}
