package kidsAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/kidsAuth/permission"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	// StatusPending accounts registered with a password and have not redeemed
	// their verification link yet.
	StatusPending AccountStatus = "pending"
	// StatusActive accounts may log in.
	StatusActive AccountStatus = "active"
	// StatusInactive accounts were disabled by an operator.
	StatusInactive AccountStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}

// AccountKind tags how an account authenticates.
type AccountKind uint8

const (
	// KindPassword accounts log in with password + SMS code.
	KindPassword AccountKind = iota + 1
	// KindFederated accounts log in with a third-party identity assertion.
	KindFederated
)

// String returns the storage name of k.
func (k AccountKind) String() string {
	switch k {
	case KindPassword:
		return "password"
	case KindFederated:
		return "federated"
	default:
		return "unknown"
	}
}

// ParseAccountKind maps a storage name back to an AccountKind.
func ParseAccountKind(value string) (AccountKind, error) {
	switch value {
	case "password":
		return KindPassword, nil
	case "federated":
		return KindFederated, nil
	default:
		return 0, errors.New("unknown account kind")
	}
}

// Account is a parent/registrant record. Which secret fields are populated
// depends on Kind: password accounts carry PasswordHash and PINHash,
// federated accounts may leave both empty.
type Account struct {
	ID           string
	Kind         AccountKind
	Email        string
	PasswordHash string
	PINHash      string
	FirstName    string
	LastName     string
	Phone        string
	Country      string
	BirthDate    time.Time
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Federated reports whether the account logs in through an identity provider.
func (a *Account) Federated() bool {
	return a != nil && a.Kind == KindFederated
}

// AccountSummary is the client-safe projection of an Account.
type AccountSummary struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	Phone     string        `json:"phoneNumber,omitempty"`
	Country   string        `json:"country,omitempty"`
	BirthDate string        `json:"dateOfBirth,omitempty"`
	Status    AccountStatus `json:"status"`
	Federated bool          `json:"federated"`
}

// Summary drops every secret field.
func (a *Account) Summary() AccountSummary {
	out := AccountSummary{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Country:   a.Country,
		Status:    a.Status,
		Federated: a.Federated(),
	}
	if !a.BirthDate.IsZero() {
		out.BirthDate = a.BirthDate.Format(dateLayout)
	}
	return out
}

// AccountUpdate lists the profile fields of an account that can change after
// registration. Nil fields are left untouched.
type AccountUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Country   *string
	PINHash   *string
}

// Profile is a child persona owned by exactly one account.
type Profile struct {
	ID        string
	OwnerID   string
	FullName  string
	Avatar    string
	PINHash   string
	Role      permission.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileView is the client-safe projection of a Profile.
type ProfileView struct {
	ID       string          `json:"id"`
	OwnerID  string          `json:"createdBy"`
	FullName string          `json:"fullName"`
	Avatar   string          `json:"avatar"`
	Role     permission.Role `json:"role"`
}

// View drops the PIN hash.
func (p *Profile) View() ProfileView {
	return ProfileView{
		ID:       p.ID,
		OwnerID:  p.OwnerID,
		FullName: p.FullName,
		Avatar:   p.Avatar,
		Role:     p.Role,
	}
}

// ProfileUpdate lists mutable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName *string
	Avatar   *string
	PINHash  *string
	Role     *permission.Role
}

// Identity is the authenticated caller decoded from a session token.
type Identity struct {
	AccountID string
	Email     string
	ExpiresAt time.Time
	Extra     map[string]string
}

// FederatedIdentity is what an IdentityVerifier extracts from an assertion.
type FederatedIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
}

// AccountStore persists accounts with field-level updates. Implementations
// return ErrRecordNotFound and ErrRecordConflict for the matching conditions.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	FindAccountByID(ctx context.Context, id string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	DeleteAccount(ctx context.Context, id string) error
	UpdateAccountStatus(ctx context.Context, id string, status AccountStatus) error
	UpdateAccountFields(ctx context.Context, id string, update AccountUpdate) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// ChallengeStore holds at most one pending two-factor code per account.
// SetChallenge replaces any previous code. ConsumeChallenge must compare and
// clear atomically and report false when nothing matched or the code expired.
type ChallengeStore interface {
	SetChallenge(ctx context.Context, accountID, code string, expiresAt time.Time) error
	ConsumeChallenge(ctx context.Context, accountID, code string, now time.Time) (bool, error)
	ClearChallenge(ctx context.Context, accountID string) error
}

// ProfileStore persists profiles. Owner-scoped methods return
// ErrRecordNotFound when the profile does not belong to ownerID.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile *Profile) error
	FindProfileByID(ctx context.Context, id string) (*Profile, error)
	ListProfilesByOwner(ctx context.Context, ownerID string) ([]Profile, error)
	UpdateProfile(ctx context.Context, ownerID, id string, update ProfileUpdate) error
	DeleteProfile(ctx context.Context, ownerID, id string) error
}

// EmailSender delivers HTML email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// SMSSender delivers a text message and returns the provider message id.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// IdentityVerifier validates a raw third-party identity assertion.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (FederatedIdentity, error)
}
