package kidsAuth

import (
	"errors"
	"strings"
)

var (
	// ErrBadRequest reports missing or malformed input.
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password so the two cannot be told apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized reports a missing or unusable session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden reports an authenticated caller that is not permitted.
	ErrForbidden = errors.New("forbidden")
	// ErrAccountPending is returned when a password account has not redeemed its verification link.
	ErrAccountPending = wrapSentinel(ErrForbidden, "account pending verification")
	// ErrAccountInactive is returned for disabled accounts.
	ErrAccountInactive = wrapSentinel(ErrForbidden, "account inactive")
	// ErrNotOwner is returned when a profile belongs to a different account.
	ErrNotOwner = wrapSentinel(ErrForbidden, "profile not owned by caller")
	// ErrRoleNotAllowed is returned when a profile's role is outside the allowed set.
	ErrRoleNotAllowed = wrapSentinel(ErrForbidden, "profile role not allowed")
	// ErrNotFound reports a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAccountNotFound is returned by federated login when no local federated account matches.
	ErrAccountNotFound = wrapSentinel(ErrNotFound, "account not found, sign up first")
	// ErrProfileNotFound is returned for unknown profile ids.
	ErrProfileNotFound = wrapSentinel(ErrNotFound, "profile not found")
	// ErrConflict reports a duplicate unique field.
	ErrConflict = errors.New("conflict")
	// ErrEmailInUse is returned when registering an email that already exists.
	ErrEmailInUse = wrapSentinel(ErrConflict, "email already registered")
	// ErrTokenExpired is returned for authentic verification links past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for any other token verification failure.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrInvalidOrExpiredCode is returned when a two-factor code is wrong, stale, or already used.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	// ErrInvalidAssertion is returned when a federated identity assertion fails verification.
	ErrInvalidAssertion = errors.New("invalid identity assertion")
	// ErrIncorrectPIN is returned when an account or profile PIN does not match.
	ErrIncorrectPIN = errors.New("incorrect PIN")
	// ErrRateLimited is returned when an attempt budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrDependencyFailure reports a failed outbound email or SMS dispatch.
	ErrDependencyFailure = errors.New("dependency failure")
	// ErrEngineNotReady is returned by Build or operations when required collaborators are missing.
	ErrEngineNotReady = errors.New("engine not ready")

	// ErrRecordNotFound is returned by stores when no row matches.
	ErrRecordNotFound = errors.New("record not found")
	// ErrRecordConflict is returned by stores on a unique constraint violation.
	ErrRecordConflict = errors.New("record conflict")
)

type sentinel struct {
	parent error
	msg    string
}

func (s *sentinel) Error() string { return s.msg }

func (s *sentinel) Unwrap() error { return s.parent }

func wrapSentinel(parent error, msg string) error {
	return &sentinel{parent: parent, msg: msg}
}

// ValidationError carries every field-level violation found in a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Messages) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Messages, " ")
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
