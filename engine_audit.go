package kidsAuth

import (
	"context"
	"errors"
)

const (
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterFailure      = "register_failure"
	auditEventRegisterRollback     = "register_rollback"
	auditEventVerificationRequest  = "verification_email_sent"
	auditEventVerificationConfirm  = "verification_confirm"
	auditEventLoginPassword        = "login_password"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventChallengeIssued      = "challenge_issued"
	auditEventChallengeVerify      = "challenge_verify"
	auditEventFederatedLogin       = "federated_login"
	auditEventFederatedRegister    = "federated_register"
	auditEventAccountUpdate        = "account_update"
	auditEventAccountPINCheck      = "account_pin_check"
	auditEventProfileAuthorization = "profile_authorization"
	auditEventProfilePINCheck      = "profile_pin_check"
	auditEventProfileCreate        = "profile_create"
	auditEventProfileUpdate        = "profile_update"
	auditEventProfileDelete        = "profile_delete"
	auditEventAccountStatusChange  = "account_status_change"
)

// AuditErrorCode is the stable, secret-free classification of an error on an
// audit event.
type AuditErrorCode string

const (
	auditErrBadRequest         AuditErrorCode = "bad_request"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrPending            AuditErrorCode = "account_pending"
	auditErrInactive           AuditErrorCode = "account_inactive"
	auditErrNotOwner           AuditErrorCode = "not_owner"
	auditErrRoleNotAllowed     AuditErrorCode = "role_not_allowed"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenInvalid       AuditErrorCode = "token_invalid"
	auditErrCodeInvalid        AuditErrorCode = "code_invalid"
	auditErrAssertionInvalid   AuditErrorCode = "assertion_invalid"
	auditErrIncorrectPIN       AuditErrorCode = "incorrect_pin"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrDependency         AuditErrorCode = "dependency_failure"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	profileID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		ProfileID: profileID,
		RequestID: RequestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	if _, ok := AsValidationError(err); ok {
		return auditErrValidation
	}

	switch {
	case errors.Is(err, ErrBadRequest):
		return auditErrBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrAccountPending):
		return auditErrPending
	case errors.Is(err, ErrAccountInactive):
		return auditErrInactive
	case errors.Is(err, ErrNotOwner):
		return auditErrNotOwner
	case errors.Is(err, ErrRoleNotAllowed):
		return auditErrRoleNotAllowed
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return auditErrCodeInvalid
	case errors.Is(err, ErrInvalidAssertion):
		return auditErrAssertionInvalid
	case errors.Is(err, ErrIncorrectPIN):
		return auditErrIncorrectPIN
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrDependencyFailure):
		return auditErrDependency
	default:
		return auditErrInternal
	}
}
