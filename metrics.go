package kidsAuth

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter in Metrics.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterValidationFailure
	MetricRegisterDuplicate
	MetricRegisterRollback
	MetricVerificationEmailSent
	MetricVerificationSuccess
	MetricVerificationExpired
	MetricVerificationInvalid
	MetricLoginPasswordSuccess
	MetricLoginFailure
	MetricLoginForbidden
	MetricLoginRateLimited
	MetricChallengeIssued
	MetricChallengeDispatchFailure
	MetricChallengeSuccess
	MetricChallengeFailure
	MetricFederatedLoginSuccess
	MetricFederatedLoginFailure
	MetricSessionIssued
	MetricSessionRejected
	MetricAuthorizationDenied
	MetricPINFailure
	MetricPasswordRehashed
	MetricProfileCreated
	MetricProfileDeleted
	MetricAccountDisabled
	MetricAccountDeleted
	// MetricValidateLatency is the only histogram: session token verification time.
	MetricValidateLatency
	metricIDCount
)

// latencyBounds are the inclusive upper edges of the first seven latency
// buckets. The eighth bucket takes everything slower.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

// counterSlot gives each counter its own cache line so hot login-path
// counters do not contend.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters plus the session validation
// latency histogram. A nil or disabled Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counterSlot
	latency       [histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of every counter. Histograms holds
// MetricValidateLatency only, and only when latency histograms are on.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricValidateLatency {
		return
	}
	m.counters[id].n.Add(1)
}

func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricValidateLatency {
		return
	}
	m.latency[bucketIndex(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricValidateLatency {
		return 0
	}
	return m.counters[id].n.Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < MetricValidateLatency; id++ {
		s.Counters[id] = m.counters[id].n.Load()
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.latency[i].Load()
		}
		s.Histograms[MetricValidateLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
