package kidsAuth

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// memStore is an in-memory AccountStore, ChallengeStore and ProfileStore.
type memStore struct {
	mu         sync.Mutex
	accounts   map[string]Account
	challenges map[string]memChallenge
	profiles   map[string]Profile
}

type memChallenge struct {
	code      string
	expiresAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		accounts:   make(map[string]Account),
		challenges: make(map[string]memChallenge),
		profiles:   make(map[string]Profile),
	}
}

func (s *memStore) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			out := a
			return &out, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *memStore) FindAccountByID(_ context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &a, nil
}

func (s *memStore) CreateAccount(_ context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return ErrRecordConflict
		}
	}
	s.accounts[account.ID] = *account
	return nil
}

func (s *memStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.accounts, id)
	delete(s.challenges, id)
	for pid, p := range s.profiles {
		if p.OwnerID == id {
			delete(s.profiles, pid)
		}
	}
	return nil
}

func (s *memStore) UpdateAccountStatus(_ context.Context, id string, status AccountStatus) error {
	return s.mutateAccount(id, func(a *Account) { a.Status = status })
}

func (s *memStore) UpdateAccountFields(_ context.Context, id string, u AccountUpdate) error {
	return s.mutateAccount(id, func(a *Account) {
		if u.FirstName != nil {
			a.FirstName = *u.FirstName
		}
		if u.LastName != nil {
			a.LastName = *u.LastName
		}
		if u.Phone != nil {
			a.Phone = *u.Phone
		}
		if u.Country != nil {
			a.Country = *u.Country
		}
		if u.PINHash != nil {
			a.PINHash = *u.PINHash
		}
	})
}

func (s *memStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return s.mutateAccount(id, func(a *Account) { a.PasswordHash = hash })
}

func (s *memStore) mutateAccount(id string, fn func(*Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ErrRecordNotFound
	}
	fn(&a)
	s.accounts[id] = a
	return nil
}

func (s *memStore) SetChallenge(_ context.Context, accountID, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[accountID] = memChallenge{code: code, expiresAt: expiresAt}
	return nil
}

func (s *memStore) ConsumeChallenge(_ context.Context, accountID, code string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[accountID]
	if !ok || c.code != code || now.After(c.expiresAt) {
		return false, nil
	}
	delete(s.challenges, accountID)
	return true, nil
}

func (s *memStore) ClearChallenge(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, accountID)
	return nil
}

func (s *memStore) hasChallenge(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.challenges[accountID]
	return ok
}

func (s *memStore) CreateProfile(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return ErrRecordConflict
	}
	s.profiles[p.ID] = *p
	return nil
}

func (s *memStore) FindProfileByID(_ context.Context, id string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &p, nil
}

func (s *memStore) ListProfilesByOwner(_ context.Context, ownerID string) ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Profile
	for _, p := range s.profiles {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) UpdateProfile(_ context.Context, ownerID, id string, u ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok || p.OwnerID != ownerID {
		return ErrRecordNotFound
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	if u.PINHash != nil {
		p.PINHash = *u.PINHash
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	s.profiles[id] = p
	return nil
}

func (s *memStore) DeleteProfile(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok || p.OwnerID != ownerID {
		return ErrRecordNotFound
	}
	delete(s.profiles, id)
	return nil
}

type sentEmail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *fakeMailer) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, body: body})
	return nil
}

var linkTokenPattern = regexp.MustCompile(`href="[^"]*/([A-Za-z0-9_\-.]+)"`)

func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no email sent")
	}
	match := linkTokenPattern.FindStringSubmatch(m.sent[len(m.sent)-1].body)
	if match == nil {
		t.Fatalf("no verification link in email body")
	}
	return match[1]
}

type sentSMS struct {
	to, body string
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentSMS{to: to, body: body})
	return "SM-test", nil
}

func (f *fakeSMS) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no sms sent")
	}
	body := f.sent[len(f.sent)-1].body
	return body[strings.LastIndex(body, " ")+1:]
}

// fakeVerifier accepts tokens of the form "ok:<email>".
type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, raw string) (FederatedIdentity, error) {
	email, ok := strings.CutPrefix(raw, "ok:")
	if !ok {
		return FederatedIdentity{}, errors.New("bad signature")
	}
	return FederatedIdentity{
		Subject:       "sub-" + email,
		Email:         email,
		EmailVerified: true,
		GivenName:     "Fed",
		FamilyName:    "User",
	}, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SessionSecret = []byte("session-secret-0123456789abcdef")
	cfg.JWT.VerificationSecret = []byte("verify-secret-0123456789abcdef!")
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *memStore
	mail   *fakeMailer
	sms    *fakeSMS
	clock  *testClock
}

func newTestEnv(t *testing.T, cfg Config, configure ...func(*Builder)) *testEnv {
	t.Helper()

	env := &testEnv{
		store: newMemStore(),
		mail:  &fakeMailer{},
		sms:   &fakeSMS{},
		clock: newTestClock(),
	}

	builder := New().
		WithConfig(cfg).
		WithAccountStore(env.store).
		WithProfileStore(env.store).
		WithEmailSender(env.mail).
		WithSMSSender(env.sms).
		WithIdentityVerifier(fakeVerifier{}).
		WithClock(env.clock.Now)
	for _, fn := range configure {
		fn(builder)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func validRegistration(email string) RegisterRequest {
	return RegisterRequest{
		Email:           email,
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
		Phone:           "+15551234567",
		PIN:             "123456",
		FirstName:       "Ana",
		LastName:        "López",
		Country:         "Spain",
		DateOfBirth:     "1990-05-01",
	}
}

// registerActive registers email and redeems the verification link.
func (env *testEnv) registerActive(t *testing.T, email string) *AccountSummary {
	t.Helper()
	ctx := context.Background()

	summary, err := env.engine.Register(ctx, validRegistration(email))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := env.engine.VerifyEmail(ctx, env.mail.lastToken(t)); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	return summary
}

// login runs both login steps and returns the session.
func (env *testEnv) login(t *testing.T, email, password string) *SessionResult {
	t.Helper()
	ctx := context.Background()

	res, err := env.engine.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	session, err := env.engine.VerifyTwoFactor(ctx, res.AccountID, env.sms.lastCode(t))
	if err != nil {
		t.Fatalf("VerifyTwoFactor failed: %v", err)
	}
	return session
}
