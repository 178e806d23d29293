package permission

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		err  error
	}{
		{in: "", want: RoleProfile},
		{in: "profile", want: RoleProfile},
		{in: " Parent ", want: RoleParent},
		{in: "admin", err: ErrUnknownRole},
	}

	for _, tc := range tests {
		got, err := ParseRole(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("ParseRole(%q): expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRole(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRole(%q): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestRoleSetMembership(t *testing.T) {
	onlyProfile := Roles(RoleProfile)
	if !onlyProfile.Has(RoleProfile) {
		t.Fatal("expected profile role to be allowed")
	}
	if onlyProfile.Has(RoleParent) {
		t.Fatal("expected parent role to be excluded")
	}
	if Roles().Has(RoleProfile) {
		t.Fatal("empty set must not allow any role")
	}
	if AllRoles().Has(Role(0)) || AllRoles().Has(Role(9)) {
		t.Fatal("invalid roles must never be members")
	}
	if got := AllRoles().String(); got != "parent,profile" {
		t.Fatalf("unexpected set rendering %q", got)
	}
}

func TestRoleTextRoundTrip(t *testing.T) {
	var r Role
	if err := r.UnmarshalText([]byte("parent")); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	text, err := r.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if string(text) != "parent" {
		t.Fatalf("expected parent, got %s", text)
	}
	if _, err := Role(0).MarshalText(); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}
