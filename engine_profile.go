package kidsAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/kidsAuth/permission"
	"github.com/google/uuid"
)

// CreateProfileRequest is the payload for a new profile. An empty Role means
// "profile".
type CreateProfileRequest struct {
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	PIN      string `json:"pin"`
	Role     string `json:"role,omitempty"`
}

// UpdateProfileRequest lists the profile fields to change. Nil fields are
// left as they are.
type UpdateProfileRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	PIN      *string `json:"pin,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// UpdateAccountRequest lists the account fields to change. Email, password
// and date of birth cannot be changed here.
type UpdateAccountRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phoneNumber,omitempty"`
	Country   *string `json:"country,omitempty"`
	PIN       *string `json:"pin,omitempty"`
}

// AuthorizeProfile loads profileID and checks that identity owns it and that
// its role is in allowed. An empty allowed set admits no role.
//
// It returns ErrUnauthorized without an identity, ErrProfileNotFound,
// ErrNotOwner, or ErrRoleNotAllowed.
func (e *Engine) AuthorizeProfile(ctx context.Context, identity *Identity, profileID string, allowed permission.RoleSet) (*Profile, error) {
	if e == nil || e.profiles == nil {
		return nil, ErrEngineNotReady
	}
	if identity == nil || identity.AccountID == "" {
		return nil, ErrUnauthorized
	}

	profile, err := e.findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	var denied error
	switch {
	case profile.OwnerID != identity.AccountID:
		denied = ErrNotOwner
	case !allowed.Has(profile.Role):
		denied = ErrRoleNotAllowed
	}
	if denied != nil {
		e.metricInc(MetricAuthorizationDenied)
		e.emitAudit(ctx, auditEventProfileAuthorization, false, identity.AccountID, profile.ID, denied, func() map[string]string {
			return map[string]string{
				"role":    profile.Role.String(),
				"allowed": allowed.String(),
			}
		})
		return nil, denied
	}

	return profile, nil
}

func (e *Engine) findProfile(ctx context.Context, profileID string) (*Profile, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, ErrProfileNotFound
	}
	profile, err := e.profiles.FindProfileByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return profile, nil
}

// findOwnedProfile is AuthorizeProfile without a role restriction.
func (e *Engine) findOwnedProfile(ctx context.Context, ownerID, profileID string) (*Profile, error) {
	return e.AuthorizeProfile(ctx, &Identity{AccountID: ownerID}, profileID, permission.AllRoles())
}

// CreateProfile adds a profile owned by ownerID.
func (e *Engine) CreateProfile(ctx context.Context, ownerID string, req CreateProfileRequest) (*ProfileView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := e.accounts.FindAccountByID(ctx, ownerID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	role, err := e.validateProfileCreate(req)
	if err != nil {
		e.emitAudit(ctx, auditEventProfileCreate, false, ownerID, "", err, nil)
		return nil, err
	}

	pinHash, err := e.hasher.Hash(req.PIN)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	now := e.now().UTC()
	profile := &Profile{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		FullName:  strings.TrimSpace(req.FullName),
		Avatar:    strings.TrimSpace(req.Avatar),
		PINHash:   pinHash,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.profiles.CreateProfile(ctx, profile); err != nil {
		if errors.Is(err, ErrRecordConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	e.metricInc(MetricProfileCreated)
	e.emitAudit(ctx, auditEventProfileCreate, true, ownerID, profile.ID, nil, func() map[string]string {
		return map[string]string{"role": role.String()}
	})

	view := profile.View()
	return &view, nil
}

// ListProfiles returns every profile owned by ownerID.
func (e *Engine) ListProfiles(ctx context.Context, ownerID string) ([]ProfileView, error) {
	if e == nil || e.profiles == nil {
		return nil, ErrEngineNotReady
	}
	profiles, err := e.profiles.ListProfilesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]ProfileView, 0, len(profiles))
	for i := range profiles {
		out = append(out, profiles[i].View())
	}
	return out, nil
}

// GetProfile returns one profile owned by ownerID.
func (e *Engine) GetProfile(ctx context.Context, ownerID, profileID string) (*ProfileView, error) {
	profile, err := e.findOwnedProfile(ctx, ownerID, profileID)
	if err != nil {
		return nil, err
	}
	view := profile.View()
	return &view, nil
}

// UpdateProfile applies req to a profile owned by ownerID.
func (e *Engine) UpdateProfile(ctx context.Context, ownerID, profileID string, req UpdateProfileRequest) (*ProfileView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := e.findOwnedProfile(ctx, ownerID, profileID); err != nil {
		return nil, err
	}

	role, err := e.validateProfileUpdate(req)
	if err != nil {
		e.emitAudit(ctx, auditEventProfileUpdate, false, ownerID, profileID, err, nil)
		return nil, err
	}

	update := ProfileUpdate{Role: role}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		update.FullName = &name
	}
	if req.Avatar != nil {
		avatar := strings.TrimSpace(*req.Avatar)
		update.Avatar = &avatar
	}
	if req.PIN != nil {
		pinHash, err := e.hasher.Hash(*req.PIN)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
		update.PINHash = &pinHash
	}

	if err := e.profiles.UpdateProfile(ctx, ownerID, profileID, update); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	e.emitAudit(ctx, auditEventProfileUpdate, true, ownerID, profileID, nil, nil)
	return e.GetProfile(ctx, ownerID, profileID)
}

// DeleteProfile removes a profile owned by ownerID. Profiles with the parent
// role cannot be deleted.
func (e *Engine) DeleteProfile(ctx context.Context, ownerID, profileID string) error {
	if e == nil || e.profiles == nil {
		return ErrEngineNotReady
	}
	profile, err := e.AuthorizeProfile(ctx, &Identity{AccountID: ownerID}, profileID, permission.Roles(permission.RoleProfile))
	if err != nil {
		e.emitAudit(ctx, auditEventProfileDelete, false, ownerID, profileID, err, nil)
		return err
	}

	if err := e.profiles.DeleteProfile(ctx, ownerID, profile.ID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("delete profile: %w", err)
	}

	e.metricInc(MetricProfileDeleted)
	e.emitAudit(ctx, auditEventProfileDelete, true, ownerID, profile.ID, nil, nil)
	return nil
}

// ValidateProfilePIN checks pin against a profile owned by ownerID and
// returns ErrIncorrectPIN on mismatch.
func (e *Engine) ValidateProfilePIN(ctx context.Context, ownerID, profileID, pin string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(pin) == "" {
		return fmt.Errorf("%w: pin is required", ErrBadRequest)
	}

	profile, err := e.findOwnedProfile(ctx, ownerID, profileID)
	if err != nil {
		return err
	}

	if err := e.checkPIN(pin, profile.PINHash); err != nil {
		e.metricInc(MetricPINFailure)
		e.emitAudit(ctx, auditEventProfilePINCheck, false, ownerID, profile.ID, err, nil)
		return err
	}

	e.emitAudit(ctx, auditEventProfilePINCheck, true, ownerID, profile.ID, nil, nil)
	return nil
}

// ValidateAccountPIN checks the account-level PIN, which gates parent-only
// screens. It returns ErrIncorrectPIN on mismatch.
func (e *Engine) ValidateAccountPIN(ctx context.Context, accountID, pin string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(pin) == "" {
		return fmt.Errorf("%w: pin is required", ErrBadRequest)
	}

	account, err := e.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}

	if err := e.checkPIN(pin, account.PINHash); err != nil {
		e.metricInc(MetricPINFailure)
		e.emitAudit(ctx, auditEventAccountPINCheck, false, account.ID, "", err, nil)
		return err
	}

	e.emitAudit(ctx, auditEventAccountPINCheck, true, account.ID, "", nil, nil)
	return nil
}

func (e *Engine) checkPIN(pin, digest string) error {
	if digest == "" {
		return ErrIncorrectPIN
	}
	ok, err := e.hasher.Verify(pin, digest)
	if err != nil || !ok {
		return ErrIncorrectPIN
	}
	return nil
}

// UpdateAccount changes the caller's own account fields and returns the
// updated summary.
func (e *Engine) UpdateAccount(ctx context.Context, accountID string, req UpdateAccountRequest) (*AccountSummary, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.validateAccountUpdate(req); err != nil {
		e.emitAudit(ctx, auditEventAccountUpdate, false, accountID, "", err, nil)
		return nil, err
	}

	update := AccountUpdate{
		FirstName: trimmed(req.FirstName),
		LastName:  trimmed(req.LastName),
		Phone:     trimmed(req.Phone),
		Country:   trimmed(req.Country),
	}
	if req.PIN != nil {
		pinHash, err := e.hasher.Hash(*req.PIN)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
		update.PINHash = &pinHash
	}

	if err := e.accounts.UpdateAccountFields(ctx, accountID, update); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	account, err := e.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	e.emitAudit(ctx, auditEventAccountUpdate, true, accountID, "", nil, nil)
	summary := account.Summary()
	return &summary, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}
