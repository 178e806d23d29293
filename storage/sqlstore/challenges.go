package sqlstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	kidsAuth "github.com/MrEthical07/kidsAuth"
)

// Challenge codes are stored as SHA-256 digests so a database read never
// yields a usable code.
func challengeDigest(accountID, code string) string {
	sum := sha256.Sum256([]byte(accountID + ":" + code))
	return hex.EncodeToString(sum[:])
}

// SetChallenge stores a pending code for the account, replacing any previous one.
func (s *Store) SetChallenge(ctx context.Context, accountID, code string, expiresAt time.Time) error {
	return execOne(ctx, s.db, kidsAuth.ErrRecordNotFound,
		"UPDATE accounts SET challenge_digest = ?, challenge_expires_at = ?, updated_at = ? WHERE id = ?",
		challengeDigest(accountID, code), toMillis(expiresAt), toMillis(s.now()), accountID)
}

// ConsumeChallenge clears the pending code when it matches and now is not
// past its expiry. The match and the clear are one conditional UPDATE.
func (s *Store) ConsumeChallenge(ctx context.Context, accountID, code string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts
		SET challenge_digest = NULL, challenge_expires_at = NULL, updated_at = ?
		WHERE id = ? AND challenge_digest = ? AND challenge_expires_at >= ?`,
		toMillis(s.now()), accountID, challengeDigest(accountID, code), toMillis(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearChallenge drops any pending code.
func (s *Store) ClearChallenge(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET challenge_digest = NULL, challenge_expires_at = NULL, updated_at = ? WHERE id = ?",
		toMillis(s.now()), accountID)
	return err
}
