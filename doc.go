// Package kidsAuth is the authentication and authorization core of a
// parental-control video platform: parent accounts, the child profiles they
// own, and the tokens and checks that keep one family out of another's data.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Flows
//
// Password accounts register as pending and are activated by redeeming an
// emailed verification link ([Engine.Register], [Engine.VerifyEmail]).
// Login is two steps: [Engine.Login] checks the password and texts a
// six-digit code, [Engine.VerifyTwoFactor] redeems the code for a session
// token. Federated accounts skip both the link and the code
// ([Engine.FederatedLogin]).
//
// Session and verification tokens are signed with different secrets and
// carry different audiences and purpose claims, so neither validates as the
// other.
//
// # Architecture boundaries
//
// Persistence, email, SMS and identity verification are interfaces
// ([AccountStore], [ProfileStore], [ChallengeStore], [EmailSender],
// [SMSSender], [IdentityVerifier]). Implementations live in storage/sqlstore,
// notify and federated. The HTTP surface lives in httpapi and middleware and
// only ever talks to [Engine].
//
// Errors are sentinels classified with errors.Is; user-facing errors never
// carry password hashes, PIN hashes, two-factor codes or signing material.
package kidsAuth
