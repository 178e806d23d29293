package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	kidsAuth "github.com/MrEthical07/kidsAuth"
)

type identityContextKey struct{}

// IdentityFromContext returns the caller identity attached by Guard.
func IdentityFromContext(ctx context.Context) (*kidsAuth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*kidsAuth.Identity)
	return id, ok && id != nil
}

// WithIdentity attaches identity to ctx the same way Guard does.
func WithIdentity(ctx context.Context, identity *kidsAuth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// Guard rejects requests without a valid session bearer token and attaches
// the decoded identity to the request context.
func Guard(engine *kidsAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				deny(w, http.StatusUnauthorized, "no token provided")
				return
			}

			identity, err := engine.ValidateSession(r.Context(), token)
			if err != nil {
				deny(w, http.StatusUnauthorized, "token is not valid")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

type denial struct {
	Message string `json:"message"`
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(denial{Message: message})
}
