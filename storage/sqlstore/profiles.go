package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/permission"
)

const profileColumns = "id, owner_id, full_name, avatar, pin_hash, role, created_at, updated_at"

func scanProfile(row rowScanner) (*kidsAuth.Profile, error) {
	var (
		p                    kidsAuth.Profile
		role                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.FullName, &p.Avatar, &p.PINHash, &role, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kidsAuth.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Role, err = permission.ParseRole(role); err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

// CreateProfile inserts a profile. The owner must exist.
func (s *Store) CreateProfile(ctx context.Context, profile *kidsAuth.Profile) error {
	if profile == nil {
		return errors.New("sqlstore: profile is required")
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = s.now()
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = profile.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, "INSERT INTO profiles ("+profileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		profile.ID, profile.OwnerID, profile.FullName, profile.Avatar, profile.PINHash,
		profile.Role.String(), toMillis(profile.CreatedAt), toMillis(profile.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return kidsAuth.ErrRecordConflict
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// FindProfileByID looks up a profile regardless of owner.
func (s *Store) FindProfileByID(ctx context.Context, id string) (*kidsAuth.Profile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
	return scanProfile(row)
}

// ListProfilesByOwner returns the owner's profiles in creation order.
func (s *Store) ListProfilesByOwner(ctx context.Context, ownerID string) ([]kidsAuth.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE owner_id = ? ORDER BY created_at, id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := []kidsAuth.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateProfile writes the non-nil fields of update on a profile owned by ownerID.
func (s *Store) UpdateProfile(ctx context.Context, ownerID, id string, update kidsAuth.ProfileUpdate) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("full_name", update.FullName)
	add("avatar", update.Avatar)
	add("pin_hash", update.PINHash)
	if update.Role != nil {
		role := update.Role.String()
		add("role", &role)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, toMillis(s.now()), id, ownerID)

	return execOne(ctx, s.db, kidsAuth.ErrRecordNotFound,
		"UPDATE profiles SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?", args...)
}

// DeleteProfile removes a profile owned by ownerID.
func (s *Store) DeleteProfile(ctx context.Context, ownerID, id string) error {
	return execOne(ctx, s.db, kidsAuth.ErrRecordNotFound,
		"DELETE FROM profiles WHERE id = ? AND owner_id = ?", id, ownerID)
}
