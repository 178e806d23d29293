package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/kidsAuth/internal"
)

const (
	challengeRecordVersion1 = 1
	maxConsumeRetries       = 4
)

var (
	ErrChallengeBackend = errors.New("challenge backend unavailable")
	ErrChallengeCorrupt = errors.New("challenge record corrupt")
)

// Challenge is a pending two-factor code for one account.
type Challenge struct {
	Code      string
	ExpiresAt time.Time
}

// ChallengeStore keeps at most one pending challenge per account under
// <prefix>:<accountID>. Saving again replaces the previous record.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string, now func() time.Time) *ChallengeStore {
	if prefix == "" {
		prefix = "tfa"
	}
	if now == nil {
		now = time.Now
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

func (s *ChallengeStore) key(accountID string) string {
	return s.prefix + ":" + accountID
}

// Save stores the challenge with a TTL matching its expiry.
func (s *ChallengeStore) Save(ctx context.Context, accountID string, record Challenge) error {
	encoded, err := encodeChallenge(record)
	if err != nil {
		return err
	}
	ttl := record.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Second
	}
	// Redis expiry is a backstop; Consume compares against the caller's clock.
	if err := s.redis.Set(ctx, s.key(accountID), encoded, ttl+time.Second).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

// Clear removes any pending challenge for accountID.
func (s *ChallengeStore) Clear(ctx context.Context, accountID string) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

// Consume deletes the pending challenge iff code matches and it has not
// expired. The read-compare-delete runs under WATCH so a concurrent Save or
// Consume aborts the transaction and the loop re-reads.
func (s *ChallengeStore) Consume(ctx context.Context, accountID, code string, now time.Time) (bool, error) {
	key := s.key(accountID)

	for i := 0; i < maxConsumeRetries; i++ {
		var consumed bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			consumed = false

			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return nil
				}
				return err
			}

			record, err := decodeChallenge(data)
			if err != nil {
				return err
			}
			if now.After(record.ExpiresAt) {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}
			if !internal.EqualCode(record.Code, code) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}
			consumed = true
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrChallengeCorrupt) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return consumed, nil
	}

	return false, nil
}

func encodeChallenge(record Challenge) ([]byte, error) {
	if len(record.Code) == 0 || len(record.Code) > 255 {
		return nil, errors.New("challenge code length out of range")
	}

	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(len(record.Code)))
	buf.WriteString(record.Code)
	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrChallengeCorrupt
	}
	if version != challengeRecordVersion1 {
		return nil, ErrChallengeCorrupt
	}

	var expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, ErrChallengeCorrupt
	}
	codeLen, err := reader.ReadByte()
	if err != nil {
		return nil, ErrChallengeCorrupt
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(reader, code); err != nil {
		return nil, ErrChallengeCorrupt
	}

	return &Challenge{
		Code:      string(code),
		ExpiresAt: time.UnixMilli(expiresAt).UTC(),
	}, nil
}
