package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the work factor applied to new digests.
	DefaultCost = 10
	// MinCost is the lowest work factor accepted by NewBcrypt.
	MinCost = 10
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

var (
	ErrEmptyPassword   = errors.New("password is empty")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
	ErrInvalidHash     = errors.New("invalid password hash")
	ErrInvalidCost     = errors.New("invalid bcrypt cost")
)

// Config defines a public type used by kidsAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Cost int
}

// Bcrypt hashes and verifies passwords with a fixed work factor.
type Bcrypt struct {
	cost int
}

// NewBcrypt describes the newbcrypt operation and its observable behavior.
//
// NewBcrypt returns an error when the configured cost is outside [MinCost, bcrypt.MaxCost].
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Cost returns the configured work factor.
func (b *Bcrypt) Cost() int {
	return b.cost
}

// Hash returns a salted digest of plaintext. Two calls with the same input
// produce different digests.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	// Password bytes are used exactly as provided (no Unicode normalization).
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest is an
// error; a mismatch is (false, nil). Plaintext longer than MaxPasswordBytes
// can never have been hashed here, so it is a mismatch.
func (b *Bcrypt) Verify(plaintext, digest string) (bool, error) {
	if len(plaintext) > MaxPasswordBytes {
		if _, err := bcrypt.Cost([]byte(digest)); err != nil {
			return false, ErrInvalidHash
		}
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether digest was produced with a weaker cost than the
// hasher is configured for.
func (b *Bcrypt) NeedsRehash(digest string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false, ErrInvalidHash
	}
	return cost < b.cost, nil
}
