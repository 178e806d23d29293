// Package rate provides Redis-backed fixed-window attempt limiters for the
// password and two-factor login steps.
//
// A failure runs INCR on its key and sets the expiry on the first hit of the
// window. A budget of N admits N failures; the next check is rejected until
// the key expires.
//
// Keys:
//
//	kl:<email>     failed password logins per email
//	kli:<ip>       failed password logins per client IP
//	kc:<account>   failed two-factor submissions per account
package rate
