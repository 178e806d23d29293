// Package permission defines the closed role enumeration used by profile-scoped
// authorization checks.
//
// # Roles
//
// A profile is either [RoleParent] or [RoleProfile]. Protected operations pass an
// explicit [RoleSet] naming the roles they admit; there is no implicit hierarchy.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import kidsAuth, jwt, or middleware.
package permission
