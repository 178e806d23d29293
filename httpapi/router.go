package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/middleware"
	"github.com/MrEthical07/kidsAuth/permission"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// Options tunes the router. The zero value serves every API route with no
// per-address limit, no /metrics route and an always-healthy /healthz.
type Options struct {
	Logger *slog.Logger

	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler

	// Health backs GET /healthz. A non-nil error answers 503.
	Health func(context.Context) error

	// RequestsPerSecond and Burst size a token bucket per client address on
	// the unauthenticated /api/user routes. Zero disables it.
	RequestsPerSecond float64
	Burst             int

	// TrustedProxies lists CIDRs whose X-Real-IP and X-Forwarded-For headers
	// are believed.
	TrustedProxies []string
}

type api struct {
	engine  *kidsAuth.Engine
	logger  *slog.Logger
	limiter *ipLimiter
	health  func(context.Context) error
}

// NewRouter wires every HTTP route onto engine.
func NewRouter(engine *kidsAuth.Engine, opts Options) (http.Handler, error) {
	if engine == nil {
		return nil, kidsAuth.ErrEngineNotReady
	}
	trusted, err := parseCIDRs(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	a := &api{
		engine: engine,
		logger: opts.Logger,
		health: opts.Health,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if opts.RequestsPerSecond > 0 {
		a.limiter = newIPLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	}

	guard := middleware.Guard(engine)
	anyRole := middleware.RequireProfile(engine, permission.AllRoles())
	childOnly := middleware.RequireProfile(engine, permission.Roles(permission.RoleProfile))

	r := mux.NewRouter()

	r.Handle("/api/user", a.public(a.register)).Methods(http.MethodPost)
	r.Handle("/api/user/verify/resend", a.public(a.resendVerification)).Methods(http.MethodPost)
	r.Handle("/api/user/verify/{token}", a.public(a.verifyEmail)).Methods(http.MethodGet)
	r.Handle("/api/user/login", a.public(a.login)).Methods(http.MethodPost)
	r.Handle("/api/user/verify-2fa", a.public(a.verifyTwoFactor)).Methods(http.MethodPost)
	r.Handle("/api/user/google-login", a.public(a.googleLogin)).Methods(http.MethodPost)
	r.Handle("/api/user/google-register", a.public(a.googleRegister)).Methods(http.MethodPost)

	r.Handle("/api/user/validateUserPin", guard(http.HandlerFunc(a.validateAccountPIN))).Methods(http.MethodPost)
	r.Handle("/api/user/profile", guard(http.HandlerFunc(a.updateAccount))).Methods(http.MethodPut)

	r.Handle("/api/profile", guard(http.HandlerFunc(a.listProfiles))).Methods(http.MethodGet)
	r.Handle("/api/profile", guard(http.HandlerFunc(a.createProfile))).Methods(http.MethodPost)

	scoped := "/api/profile/{" + middleware.ProfileParam + "}"
	r.Handle(scoped, guard(anyRole(http.HandlerFunc(a.getProfile)))).Methods(http.MethodGet)
	r.Handle(scoped, guard(anyRole(http.HandlerFunc(a.updateProfile)))).Methods(http.MethodPut)
	r.Handle(scoped, guard(childOnly(http.HandlerFunc(a.deleteProfile)))).Methods(http.MethodDelete)
	r.Handle(scoped+"/validate-pin", guard(anyRole(http.HandlerFunc(a.validateProfilePIN)))).Methods(http.MethodPost)

	r.HandleFunc("/healthz", a.healthz).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "method not allowed"})
	})

	var h http.Handler = r
	h = recovery(a.logger)(h)
	h = accessLog(a.logger)(h)
	h = requestContext(trusted)(h)
	return h, nil
}

func (a *api) public(h http.HandlerFunc) http.Handler {
	if a.limiter == nil {
		return h
	}
	return a.limiter.middleware(h)
}
