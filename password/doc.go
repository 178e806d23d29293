// Package password implements password hashing and verification with bcrypt.
//
// # Output format
//
// Digests are standard modular-crypt bcrypt strings:
//
//	$2a$<cost>$<22 char salt><31 char hash>
//
// [Bcrypt.NeedsRehash] reports digests produced with a weaker cost so the caller
// can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other kidsAuth package.
//   - Log plaintext passwords.
package password
