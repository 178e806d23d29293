// Package middleware exposes net/http adapters over kidsAuth.Engine.
//
// # Guards
//
//   - [Guard] reads the Authorization bearer token, validates it as a session
//     token and attaches the [kidsAuth.Identity] to the request context.
//   - [RequireProfile] loads the profile named by the {profileId} route
//     variable and rejects callers that do not own it (403) or whose profile
//     role is outside the allowed set (403).
//
// Both translate HTTP semantics into Engine calls; ownership and role
// decisions are made by Engine.AuthorizeProfile.
package middleware
