package test

import (
	"context"
	"net/http"
	"testing"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/httpapi"
	"github.com/MrEthical07/kidsAuth/middleware"
	"github.com/MrEthical07/kidsAuth/permission"
)

// Guards the exported surface that embedding services compile against.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = kidsAuth.New
	_ = kidsAuth.DefaultConfig
	_ = kidsAuth.LoadConfigFromEnv

	var _ *kidsAuth.Engine
	var _ kidsAuth.Config
	var _ kidsAuth.AccountSummary
	var _ kidsAuth.ProfileView
	var _ kidsAuth.SessionResult
	var _ kidsAuth.LoginResult
	var _ kidsAuth.Identity
	var _ kidsAuth.AccountStore
	var _ kidsAuth.ProfileStore
	var _ kidsAuth.ChallengeStore
	var _ kidsAuth.EmailSender
	var _ kidsAuth.SMSSender
	var _ kidsAuth.IdentityVerifier
	var _ kidsAuth.AuditSink

	var _ error = kidsAuth.ErrInvalidCredentials
	var _ error = kidsAuth.ErrAccountPending
	var _ error = kidsAuth.ErrInvalidOrExpiredCode
	var _ error = kidsAuth.ErrNotOwner
	var _ error = kidsAuth.ErrRoleNotAllowed
	var _ error = kidsAuth.ErrTokenExpired
	var _ error = kidsAuth.ErrTokenInvalid

	var _ func(*kidsAuth.Engine) func(http.Handler) http.Handler = middleware.Guard
	var _ func(*kidsAuth.Engine, permission.RoleSet) func(http.Handler) http.Handler = middleware.RequireProfile
	var _ func(*kidsAuth.Engine, httpapi.Options) (http.Handler, error) = httpapi.NewRouter

	var _ func(*kidsAuth.Engine, context.Context, kidsAuth.RegisterRequest) (*kidsAuth.AccountSummary, error) = (*kidsAuth.Engine).Register
	var _ func(*kidsAuth.Engine, context.Context, kidsAuth.LoginRequest) (*kidsAuth.LoginResult, error) = (*kidsAuth.Engine).Login
	var _ func(*kidsAuth.Engine, context.Context, string, string) (*kidsAuth.SessionResult, error) = (*kidsAuth.Engine).VerifyTwoFactor
	var _ func(*kidsAuth.Engine, context.Context, string) (*kidsAuth.Identity, error) = (*kidsAuth.Engine).ValidateSession
	var _ func(*kidsAuth.Engine, context.Context, *kidsAuth.Identity, string, permission.RoleSet) (*kidsAuth.Profile, error) = (*kidsAuth.Engine).AuthorizeProfile
}
