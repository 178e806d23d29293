package kidsAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// RegisterRequest is the payload for creating a password account.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Phone           string `json:"phoneNumber"`
	PIN             string `json:"pin"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Country         string `json:"country"`
	DateOfBirth     string `json:"dateOfBirth"`
}

func (r RegisterRequest) missingField() bool {
	for _, v := range []string{
		r.Email, r.Password, r.ConfirmPassword, r.Phone, r.PIN,
		r.FirstName, r.LastName, r.Country, r.DateOfBirth,
	} {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// FederatedRegisterRequest creates an account backed by an identity provider
// assertion. Email comes from the assertion, never from the request.
type FederatedRegisterRequest struct {
	IDToken   string `json:"idToken"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phoneNumber"`
	Country   string `json:"country"`
}

// Register creates a pending password account and emails a verification
// link. If the email cannot be sent the account is removed again and
// ErrDependencyFailure is returned.
//
// Register returns ErrBadRequest for missing fields or mismatched passwords,
// a *ValidationError listing every rule that failed, and ErrEmailInUse when
// the email is already registered.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AccountSummary, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	if req.missingField() {
		e.metricInc(MetricRegisterValidationFailure)
		return nil, fmt.Errorf("%w: all fields are required", ErrBadRequest)
	}
	if req.Password != req.ConfirmPassword {
		e.metricInc(MetricRegisterValidationFailure)
		return nil, fmt.Errorf("%w: passwords do not match", ErrBadRequest)
	}

	birth, err := e.validateRegistration(req)
	if err != nil {
		e.metricInc(MetricRegisterValidationFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if err := e.ensureEmailFree(ctx, email); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	passwordHash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	pinHash, err := e.hasher.Hash(req.PIN)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	now := e.now().UTC()
	account := &Account{
		ID:           uuid.NewString(),
		Kind:         KindPassword,
		Email:        email,
		PasswordHash: passwordHash,
		PINHash:      pinHash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
		Country:      strings.TrimSpace(req.Country),
		BirthDate:    birth,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.createAccount(ctx, account); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	if err := e.sendVerification(ctx, account); err != nil {
		e.metricInc(MetricRegisterRollback)
		if delErr := e.accounts.DeleteAccount(ctx, account.ID); delErr != nil && !errors.Is(delErr, ErrRecordNotFound) {
			e.logger.ErrorContext(ctx, "registration rollback failed",
				slog.String("account_id", account.ID),
				slog.Any("error", delErr),
			)
		}
		e.emitAudit(ctx, auditEventRegisterRollback, false, account.ID, "", ErrDependencyFailure, nil)
		return nil, fmt.Errorf("%w: verification email not sent", ErrDependencyFailure)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, account.ID, "", nil, func() map[string]string {
		return map[string]string{"kind": account.Kind.String()}
	})

	summary := account.Summary()
	return &summary, nil
}

// RegisterFederated creates an active account for a verified third-party
// identity and returns a session for it.
func (e *Engine) RegisterFederated(ctx context.Context, req FederatedRegisterRequest) (*SessionResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.IDToken) == "" {
		return nil, fmt.Errorf("%w: idToken is required", ErrBadRequest)
	}

	identity, err := e.verifyAssertion(ctx, req.IDToken)
	if err != nil {
		e.emitAudit(ctx, auditEventFederatedRegister, false, "", "", err, nil)
		return nil, err
	}

	if strings.TrimSpace(req.FirstName) == "" {
		req.FirstName = identity.GivenName
	}
	if strings.TrimSpace(req.LastName) == "" {
		req.LastName = identity.FamilyName
	}

	email := normalizeEmail(identity.Email)
	if err := e.validateFederatedRegistration(req, email); err != nil {
		e.metricInc(MetricRegisterValidationFailure)
		e.emitAudit(ctx, auditEventFederatedRegister, false, "", "", err, nil)
		return nil, err
	}
	if err := e.ensureEmailFree(ctx, email); err != nil {
		e.emitAudit(ctx, auditEventFederatedRegister, false, "", "", err, nil)
		return nil, err
	}

	now := e.now().UTC()
	account := &Account{
		ID:        uuid.NewString(),
		Kind:      KindFederated,
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Country:   strings.TrimSpace(req.Country),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.createAccount(ctx, account); err != nil {
		e.emitAudit(ctx, auditEventFederatedRegister, false, "", "", err, nil)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventFederatedRegister, true, account.ID, "", nil, func() map[string]string {
		return map[string]string{"kind": account.Kind.String()}
	})

	return e.newSession(account)
}

func (e *Engine) ensureEmailFree(ctx context.Context, email string) error {
	_, err := e.accounts.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		e.metricInc(MetricRegisterDuplicate)
		return ErrEmailInUse
	case errors.Is(err, ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("find account: %w", err)
	}
}

func (e *Engine) createAccount(ctx context.Context, account *Account) error {
	if err := e.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, ErrRecordConflict) {
			e.metricInc(MetricRegisterDuplicate)
			return ErrEmailInUse
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}
