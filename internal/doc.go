// Package internal contains helper utilities that are private to kidsAuth,
// including uniform numeric code generation.
//
// # Sub-packages
//
//   - rate: Redis-backed fixed-window limiters for login and code attempts
//   - stores: Redis keyed store for two-factor challenges
//
// # What this package must NOT do
//
//   - Export types that appear in the public kidsAuth API.
//   - Be imported by any package outside the kidsAuth module.
package internal
