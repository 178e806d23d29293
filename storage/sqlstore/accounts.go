package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	kidsAuth "github.com/MrEthical07/kidsAuth"
)

const birthDateLayout = "2006-01-02"

const accountColumns = `id, kind, email, password_hash, pin_hash, first_name, last_name,
	phone, country, birth_date, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*kidsAuth.Account, error) {
	var (
		a                    kidsAuth.Account
		kind, birth, status  string
		createdAt, updatedAt int64
	)
	err := row.Scan(&a.ID, &kind, &a.Email, &a.PasswordHash, &a.PINHash, &a.FirstName, &a.LastName,
		&a.Phone, &a.Country, &birth, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kidsAuth.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if a.Kind, err = kidsAuth.ParseAccountKind(kind); err != nil {
		return nil, fmt.Errorf("account %s: %w", a.ID, err)
	}
	a.Status = kidsAuth.AccountStatus(status)
	if birth != "" {
		if a.BirthDate, err = time.Parse(birthDateLayout, birth); err != nil {
			return nil, fmt.Errorf("account %s: birth date: %w", a.ID, err)
		}
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

// FindAccountByEmail looks up an account by its normalized email.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*kidsAuth.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email = ?", email)
	return scanAccount(row)
}

// FindAccountByID looks up an account by id.
func (s *Store) FindAccountByID(ctx context.Context, id string) (*kidsAuth.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	return scanAccount(row)
}

// CreateAccount inserts a new account. A duplicate id or email yields
// kidsAuth.ErrRecordConflict.
func (s *Store) CreateAccount(ctx context.Context, account *kidsAuth.Account) error {
	if account == nil {
		return errors.New("sqlstore: account is required")
	}
	now := s.now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	var birth string
	if !account.BirthDate.IsZero() {
		birth = account.BirthDate.Format(birthDateLayout)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Kind.String(), account.Email, account.PasswordHash, account.PINHash,
		account.FirstName, account.LastName, account.Phone, account.Country, birth,
		string(account.Status), toMillis(account.CreatedAt), toMillis(account.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return kidsAuth.ErrRecordConflict
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// DeleteAccount removes an account and, through the foreign key, its profiles.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return execOne(ctx, s.db, kidsAuth.ErrRecordNotFound, "DELETE FROM accounts WHERE id = ?", id)
}

// UpdateAccountStatus changes only the status column.
func (s *Store) UpdateAccountStatus(ctx context.Context, id string, status kidsAuth.AccountStatus) error {
	if !status.Valid() {
		return fmt.Errorf("sqlstore: invalid status %q", status)
	}
	return execOne(ctx, s.db, kidsAuth.ErrRecordNotFound,
		"UPDATE accounts SET status = ?, updated_at = ? WHERE id = ?",
		string(status), toMillis(s.now()), id)
}

// UpdateAccountFields writes the non-nil fields of update and nothing else.
func (s *Store) UpdateAccountFields(ctx context.Context, id string, update kidsAuth.AccountUpdate) error {
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
	add("first_name", update.FirstName)
	add("last_name", update.LastName)
	add("phone", update.Phone)
	add("country", update.Country)
	add("pin_hash", update.PINHash)

	sets = append(sets, "updated_at = ?")
	args = append(args, toMillis(s.now()), id)

	return execOne(ctx, s.db, kidsAuth.ErrRecordNotFound,
		"UPDATE accounts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
}

// UpdatePasswordHash replaces the stored password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return execOne(ctx, s.db, kidsAuth.ErrRecordNotFound,
		"UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, toMillis(s.now()), id)
}

// ListAccounts returns up to limit accounts, newest first.
func (s *Store) ListAccounts(ctx context.Context, limit int) ([]kidsAuth.Account, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []kidsAuth.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
