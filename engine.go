package kidsAuth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/kidsAuth/internal/rate"
	"github.com/MrEthical07/kidsAuth/internal/stores"
	"github.com/MrEthical07/kidsAuth/jwt"
	"github.com/MrEthical07/kidsAuth/password"
)

// Engine defines a public type used by kidsAuth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config Config

	accounts   AccountStore
	profiles   ProfileStore
	challenges ChallengeStore

	email    EmailSender
	sms      SMSSender
	verifier IdentityVerifier

	hasher             *password.Bcrypt
	dummyHash          string
	sessionTokens      *jwt.Manager
	verificationTokens *jwt.Manager
	rateLimiter        *rate.Limiter

	audit   *auditDispatcher
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped reports how many events were discarded because the audit buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of every counter.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live counter set for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.accounts == nil || e.challenges == nil || e.hasher == nil ||
		e.sessionTokens == nil || e.verificationTokens == nil {
		return ErrEngineNotReady
	}
	return nil
}

// limiterError collapses every limiter failure into ErrRateLimited. A Redis
// outage fails closed.
func (e *Engine) limiterError(ctx context.Context, err error) error {
	if errors.Is(err, rate.ErrRedisUnavailable) {
		e.logger.WarnContext(ctx, "rate limiter unavailable", slog.Any("error", err))
	}
	return ErrRateLimited
}

// redisChallengeStore adapts the Redis keyed challenge store to
// ChallengeStore.
type redisChallengeStore struct {
	store *stores.ChallengeStore
}

func (r *redisChallengeStore) SetChallenge(ctx context.Context, accountID, code string, expiresAt time.Time) error {
	return r.store.Save(ctx, accountID, stores.Challenge{Code: code, ExpiresAt: expiresAt})
}

func (r *redisChallengeStore) ConsumeChallenge(ctx context.Context, accountID, code string, now time.Time) (bool, error) {
	return r.store.Consume(ctx, accountID, code, now)
}

func (r *redisChallengeStore) ClearChallenge(ctx context.Context, accountID string) error {
	return r.store.Clear(ctx, accountID)
}
