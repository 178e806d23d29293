// Package httpapi exposes the kidsAuth engine over HTTP with a gorilla/mux
// router.
//
// Errors from the engine are mapped to status codes in one place
// (statusFor). Validation failures answer 422 with the full list of
// messages; anything the table does not recognize answers a bare 500 and
// is logged with its cause. Response bodies never carry password or PIN
// hashes, two-factor codes or signing material.
//
// Every request gets an X-Request-ID (taken from the caller when present)
// and a resolved client address, both attached to the request context so
// engine audit events and the access log can correlate.
package httpapi
