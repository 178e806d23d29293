package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/middleware"
	"github.com/MrEthical07/kidsAuth/permission"
	"github.com/MrEthical07/kidsAuth/storage/sqlstore"
	"github.com/gorilla/mux"
)

type discard struct{}

func (discard) SendEmail(context.Context, string, string, string) error { return nil }

func (discard) SendSMS(context.Context, string, string) (string, error) { return "", nil }

type fixture struct {
	engine *kidsAuth.Engine
	store  *sqlstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlstore.OpenSQLite(filepath.Join(t.TempDir(), "mw.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := kidsAuth.DefaultConfig()
	cfg.JWT.SessionSecret = []byte("session-secret-0123456789abcdef")
	cfg.JWT.VerificationSecret = []byte("verify-secret-0123456789abcdef!")
	engine, err := kidsAuth.New().
		WithConfig(cfg).
		WithAccountStore(store).
		WithProfileStore(store).
		WithEmailSender(discard{}).
		WithSMSSender(discard{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &fixture{engine: engine, store: store}
}

func (f *fixture) account(t *testing.T, id string) string {
	t.Helper()
	err := f.store.CreateAccount(context.Background(), &kidsAuth.Account{
		ID:     id,
		Kind:   kidsAuth.KindFederated,
		Email:  id + "@example.com",
		Status: kidsAuth.StatusActive,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	token, _, err := f.engine.IssueSession(id, id+"@example.com", nil)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	return token
}

func (f *fixture) profile(t *testing.T, id, owner string, role permission.Role) {
	t.Helper()
	err := f.store.CreateProfile(context.Background(), &kidsAuth.Profile{
		ID: id, OwnerID: owner, FullName: "Leo", Avatar: "fox.png", PINHash: "x", Role: role,
	})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body.Message
}

func TestGuard(t *testing.T) {
	f := newFixture(t)
	token := f.account(t, "alice")

	var seen *kidsAuth.Identity
	handler := middleware.Guard(f.engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = middleware.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}

	if seen == nil || seen.AccountID != "alice" {
		t.Fatalf("identity not attached: %+v", seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if msg := decodeMessage(t, rec); msg != "token is not valid" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRequireProfile(t *testing.T) {
	f := newFixture(t)
	alice := f.account(t, "alice")
	bob := f.account(t, "bob")
	f.profile(t, "kid", "alice", permission.RoleProfile)
	f.profile(t, "mum", "alice", permission.RoleParent)

	router := mux.NewRouter()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, found := middleware.ProfileFromContext(r.Context())
		if !found {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(p.ID))
	})
	guard := middleware.Guard(f.engine)
	router.Handle("/profiles/{profileId}", guard(middleware.RequireProfile(f.engine, permission.AllRoles())(ok)))
	router.Handle("/parents/{profileId}", guard(middleware.RequireProfile(f.engine, permission.Roles(permission.RoleParent))(ok)))
	router.Handle("/plain", guard(middleware.RequireProfile(f.engine, permission.AllRoles())(ok)))

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"owner", "/profiles/kid", alice, http.StatusOK},
		{"other owner", "/profiles/kid", bob, http.StatusForbidden},
		{"missing profile", "/profiles/ghost", alice, http.StatusNotFound},
		{"excluded role", "/parents/kid", alice, http.StatusForbidden},
		{"allowed role", "/parents/mum", alice, http.StatusOK},
		{"no profile param", "/plain", bob, http.StatusNoContent},
		{"no token", "/profiles/kid", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}
