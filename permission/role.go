package permission

import (
	"errors"
	"strings"
)

// Role is the closed set of personas a profile can act as.
type Role uint8

const (
	// RoleProfile is the restricted child persona. It is the default for new profiles.
	RoleProfile Role = iota + 1
	// RoleParent is the supervising persona of an account.
	RoleParent
)

var ErrUnknownRole = errors.New("unknown role")

// String returns the wire name of r.
func (r Role) String() string {
	switch r {
	case RoleParent:
		return "parent"
	case RoleProfile:
		return "profile"
	default:
		return "unknown"
	}
}

// Valid reports whether r is a member of the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleParent, RoleProfile:
		return true
	default:
		return false
	}
}

// ParseRole maps a wire name to a Role. An empty value maps to RoleProfile.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return RoleProfile, nil
	case "profile":
		return RoleProfile, nil
	case "parent":
		return RoleParent, nil
	default:
		return 0, ErrUnknownRole
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrUnknownRole
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is a bitmask of allowed roles for a protected operation.
type RoleSet uint8

// Roles builds a RoleSet from the given roles. Invalid roles are ignored.
func Roles(roles ...Role) RoleSet {
	var set RoleSet
	for _, r := range roles {
		if !r.Valid() {
			continue
		}
		set |= 1 << r
	}
	return set
}

// AllRoles allows every defined role.
func AllRoles() RoleSet {
	return Roles(RoleParent, RoleProfile)
}

// Has reports whether r is allowed by s.
func (s RoleSet) Has(r Role) bool {
	if !r.Valid() {
		return false
	}
	return s&(1<<r) != 0
}

// Empty reports whether no role is allowed.
func (s RoleSet) Empty() bool {
	return s == 0
}

// String renders the set as a comma separated list of role names.
func (s RoleSet) String() string {
	var names []string
	for _, r := range []Role{RoleParent, RoleProfile} {
		if s.Has(r) {
			names = append(names, r.String())
		}
	}
	return strings.Join(names, ",")
}
