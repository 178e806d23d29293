package middleware

import (
	"context"
	"errors"
	"net/http"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/permission"
	"github.com/gorilla/mux"
)

// ProfileParam is the route variable RequireProfile reads the profile id from.
const ProfileParam = "profileId"

type profileContextKey struct{}

// ProfileFromContext returns the profile loaded by RequireProfile.
func ProfileFromContext(ctx context.Context) (*kidsAuth.Profile, bool) {
	p, ok := ctx.Value(profileContextKey{}).(*kidsAuth.Profile)
	return p, ok && p != nil
}

// RequireProfile enforces that the profile named by the {profileId} route
// variable belongs to the authenticated account and has one of the allowed
// roles. It must run after Guard. Routes without the variable pass through.
func RequireProfile(engine *kidsAuth.Engine, allowed permission.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID := mux.Vars(r)[ProfileParam]
			if profileID == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			profile, err := engine.AuthorizeProfile(r.Context(), identity, profileID, allowed)
			switch {
			case err == nil:
			case errors.Is(err, kidsAuth.ErrNotFound):
				deny(w, http.StatusNotFound, "profile not found")
				return
			case errors.Is(err, kidsAuth.ErrForbidden):
				deny(w, http.StatusForbidden, "access denied")
				return
			case errors.Is(err, kidsAuth.ErrUnauthorized):
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			default:
				deny(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), profileContextKey{}, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
