package internaldefs

import (
	kidsAuth "github.com/MrEthical07/kidsAuth"
)

// Prefix namespaces every exported metric name.
const Prefix = "kidsauth_"

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   kidsAuth.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported name.
type HistogramDef struct {
	ID   kidsAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: kidsAuth.MetricRegisterSuccess, Name: Prefix + "register_success_total", Help: "Successful registrations."},
	{ID: kidsAuth.MetricRegisterValidationFailure, Name: Prefix + "register_validation_failure_total", Help: "Registrations rejected by field validation."},
	{ID: kidsAuth.MetricRegisterDuplicate, Name: Prefix + "register_duplicate_total", Help: "Registrations rejected for an email already in use."},
	{ID: kidsAuth.MetricRegisterRollback, Name: Prefix + "register_rollback_total", Help: "Registrations rolled back after email dispatch failure."},
	{ID: kidsAuth.MetricVerificationEmailSent, Name: Prefix + "verification_email_sent_total", Help: "Verification emails dispatched."},
	{ID: kidsAuth.MetricVerificationSuccess, Name: Prefix + "verification_success_total", Help: "Accounts activated through a verification link."},
	{ID: kidsAuth.MetricVerificationExpired, Name: Prefix + "verification_expired_total", Help: "Verification links redeemed after expiry."},
	{ID: kidsAuth.MetricVerificationInvalid, Name: Prefix + "verification_invalid_total", Help: "Malformed or forged verification links."},
	{ID: kidsAuth.MetricLoginPasswordSuccess, Name: Prefix + "login_password_success_total", Help: "Password checks that led to a two-factor challenge."},
	{ID: kidsAuth.MetricLoginFailure, Name: Prefix + "login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: kidsAuth.MetricLoginForbidden, Name: Prefix + "login_forbidden_total", Help: "Logins rejected for pending or inactive accounts."},
	{ID: kidsAuth.MetricLoginRateLimited, Name: Prefix + "login_rate_limited_total", Help: "Rate-limited login and two-factor attempts."},
	{ID: kidsAuth.MetricChallengeIssued, Name: Prefix + "challenge_issued_total", Help: "Two-factor codes issued."},
	{ID: kidsAuth.MetricChallengeDispatchFailure, Name: Prefix + "challenge_dispatch_failure_total", Help: "Two-factor codes that could not be delivered by SMS."},
	{ID: kidsAuth.MetricChallengeSuccess, Name: Prefix + "challenge_success_total", Help: "Two-factor codes verified."},
	{ID: kidsAuth.MetricChallengeFailure, Name: Prefix + "challenge_failure_total", Help: "Wrong, reused or expired two-factor codes."},
	{ID: kidsAuth.MetricFederatedLoginSuccess, Name: Prefix + "federated_login_success_total", Help: "Successful federated logins."},
	{ID: kidsAuth.MetricFederatedLoginFailure, Name: Prefix + "federated_login_failure_total", Help: "Rejected federated logins."},
	{ID: kidsAuth.MetricSessionIssued, Name: Prefix + "session_issued_total", Help: "Session tokens issued."},
	{ID: kidsAuth.MetricSessionRejected, Name: Prefix + "session_rejected_total", Help: "Session tokens rejected during validation."},
	{ID: kidsAuth.MetricAuthorizationDenied, Name: Prefix + "authorization_denied_total", Help: "Profile-scoped requests denied by ownership or role."},
	{ID: kidsAuth.MetricPINFailure, Name: Prefix + "pin_failure_total", Help: "Incorrect account or profile PIN checks."},
	{ID: kidsAuth.MetricPasswordRehashed, Name: Prefix + "password_rehashed_total", Help: "Password hashes upgraded on login."},
	{ID: kidsAuth.MetricProfileCreated, Name: Prefix + "profile_created_total", Help: "Profiles created."},
	{ID: kidsAuth.MetricProfileDeleted, Name: Prefix + "profile_deleted_total", Help: "Profiles deleted."},
	{ID: kidsAuth.MetricAccountDisabled, Name: Prefix + "account_disabled_total", Help: "Accounts disabled by an operator."},
	{ID: kidsAuth.MetricAccountDeleted, Name: Prefix + "account_deleted_total", Help: "Accounts deleted with their profiles."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: kidsAuth.MetricValidateLatency, Name: Prefix + "session_validate_latency_seconds", Help: "Session token validation latency."},
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const AuditDroppedName = Prefix + "audit_dropped_total"

// HistogramBounds are the upper bounds of the engine latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds rendered for use in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size bucket array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
