// Package federated verifies third-party identity assertions for kidsAuth.
//
// [GoogleVerifier] checks Google ID tokens: RS256 signatures against Google's
// published JWKS, issuer, audience (the OAuth client id), expiry and the
// email_verified claim. Keys are cached for the max-age the JWKS endpoint
// advertises and refetched when an unknown key id appears.
package federated
