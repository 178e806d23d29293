// Package jwt issues and verifies purpose-scoped bearer tokens.
//
// Each [Manager] serves exactly one [Purpose]. Session and email-verification
// tokens use separate managers with separate secrets, audiences, and a pur claim,
// so a token minted for one purpose never verifies as the other.
//
// Rotation: set KeyID for the signing key and VerifyKeys for the full keyset
// looked up by the kid header.
package jwt
