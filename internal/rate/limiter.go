package rate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	MaxCodeAttempts       int
	CodeCooldownDuration  time.Duration
}

// window is a fixed attempt budget that resets ttl after its first hit.
type window struct {
	max int
	ttl time.Duration
}

// Limiter counts failed password logins per email (and optionally per IP) and
// failed two-factor submissions per account.
type Limiter struct {
	rdb   redis.UniversalClient
	perIP bool
	login window
	code  window
}

// New creates a [Limiter] on rdb.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		rdb:   rdb,
		perIP: cfg.EnableIPThrottle,
		login: window{max: cfg.MaxLoginAttempts, ttl: cfg.LoginCooldownDuration},
		code:  window{max: cfg.MaxCodeAttempts, ttl: cfg.CodeCooldownDuration},
	}
}

// CheckLogin returns ErrRateLimited when the email, or the IP when IP
// throttling is on, has used up its failure budget.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	for _, key := range l.loginKeys(email, ip) {
		if err := l.check(ctx, key, l.login); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records one failed password attempt.
func (l *Limiter) IncrementLogin(ctx context.Context, email, ip string) error {
	var limited bool
	for _, key := range l.loginKeys(email, ip) {
		over, err := l.hit(ctx, key, l.login)
		if err != nil {
			return err
		}
		limited = limited || over
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin forgets past failures after a successful password check.
func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) error {
	return l.clear(ctx, l.loginKeys(email, ip)...)
}

// LoginAttempts returns the failures recorded for email in the current
// window. An unknown email reads as zero.
func (l *Limiter) LoginAttempts(ctx context.Context, email string) (int, error) {
	n, err := l.count(ctx, emailKey(email))
	return int(n), err
}

// CheckCode returns ErrRateLimited when accountID has used up its two-factor
// budget.
func (l *Limiter) CheckCode(ctx context.Context, accountID string) error {
	return l.check(ctx, codeKey(accountID), l.code)
}

// IncrementCode records one wrong or stale two-factor code.
func (l *Limiter) IncrementCode(ctx context.Context, accountID string) error {
	over, err := l.hit(ctx, codeKey(accountID), l.code)
	if err != nil {
		return err
	}
	if over {
		return ErrRateLimited
	}
	return nil
}

// ResetCode forgets two-factor failures after a code is redeemed.
func (l *Limiter) ResetCode(ctx context.Context, accountID string) error {
	return l.clear(ctx, codeKey(accountID))
}

func (l *Limiter) loginKeys(email, ip string) []string {
	keys := []string{emailKey(email)}
	if l.perIP && ip != "" {
		keys = append(keys, ipKey(ip))
	}
	return keys
}

func (l *Limiter) count(ctx context.Context, key string) (int64, error) {
	n, err := l.rdb.Get(ctx, key).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, unavailable(err)
	case n < 0:
		return 0, nil
	}
	return n, nil
}

func (l *Limiter) check(ctx context.Context, key string, w window) error {
	n, err := l.count(ctx, key)
	if err != nil {
		return err
	}
	if n >= int64(w.max) {
		return ErrRateLimited
	}
	return nil
}

// hit increments key and reports whether the budget is now exceeded. The
// expiry is set on the first hit only so the window does not slide.
func (l *Limiter) hit(ctx context.Context, key string, w window) (bool, error) {
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, unavailable(err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, w.ttl).Err(); err != nil {
			return false, unavailable(err)
		}
	}
	return n > int64(w.max), nil
}

func (l *Limiter) clear(ctx context.Context, keys ...string) error {
	if err := l.rdb.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func emailKey(email string) string {
	return "kl:" + strings.ToLower(strings.TrimSpace(email))
}

func ipKey(ip string) string {
	return "kli:" + ip
}

func codeKey(accountID string) string {
	return "kc:" + accountID
}
