// Package stores provides the Redis-backed keyed store for pending two-factor
// challenges.
//
// # Design
//
// Each account has at most one versioned, binary-encoded record with a TTL.
// Consume uses a WATCH/MULTI optimistic transaction with retry on contention,
// so a code verifies at most once. Code comparison is constant time.
//
// # What this package must NOT do
//
//   - Generate codes or dispatch them.
//   - Enforce rate limits (see internal/rate).
package stores
