package federated

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/golang-jwt/jwt/v5"
)

// GoogleCertsURL is Google's published OAuth2 signing key set.
const GoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

var (
	// ErrInvalidToken is returned for any assertion that fails verification.
	ErrInvalidToken = errors.New("federated: invalid identity token")
	// ErrEmailNotVerified is returned when the provider has not verified the email.
	ErrEmailNotVerified = errors.New("federated: email not verified")
)

// GoogleConfig configures a GoogleVerifier. ClientID is the OAuth client id
// tokens must be issued for. CacheTTL applies when the JWKS response carries
// no max-age.
type GoogleConfig struct {
	ClientID string        `env:"GOOGLE_CLIENT_ID"`
	CertsURL string        `env:"GOOGLE_CERTS_URL"`
	CacheTTL time.Duration `env:"GOOGLE_CERTS_TTL" envDefault:"1h"`
	Leeway   time.Duration `env:"GOOGLE_LEEWAY" envDefault:"30s"`

	HTTPClient *http.Client     `env:"-"`
	Now        func() time.Time `env:"-"`
}

// GoogleVerifier implements kidsAuth.IdentityVerifier for Google ID tokens.
type GoogleVerifier struct {
	clientID string
	keys     *keyCache
	parser   *jwt.Parser
}

type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// NewGoogleVerifier validates cfg and returns a verifier.
func NewGoogleVerifier(cfg GoogleConfig) (*GoogleVerifier, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("federated: google client id is required")
	}
	if cfg.CertsURL == "" {
		cfg.CertsURL = GoogleCertsURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &GoogleVerifier{
		clientID: cfg.ClientID,
		keys: &keyCache{
			url:        cfg.CertsURL,
			client:     cfg.HTTPClient,
			now:        cfg.Now,
			defaultTTL: cfg.CacheTTL,
			minRefresh: time.Minute,
		},
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithAudience(cfg.ClientID),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.Now),
			jwt.WithLeeway(cfg.Leeway),
		),
	}, nil
}

// Verify checks rawToken and returns the identity it asserts.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (kidsAuth.FederatedIdentity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return kidsAuth.FederatedIdentity{}, ErrInvalidToken
	}

	claims := &googleClaims{}
	_, err := v.parser.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errUnknownKey
		}
		return v.keys.key(ctx, kid)
	})
	if err != nil {
		return kidsAuth.FederatedIdentity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !validIssuer(claims.Issuer) {
		return kidsAuth.FederatedIdentity{}, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if claims.Subject == "" || claims.Email == "" {
		return kidsAuth.FederatedIdentity{}, fmt.Errorf("%w: missing subject or email", ErrInvalidToken)
	}
	if !claims.EmailVerified {
		return kidsAuth.FederatedIdentity{}, ErrEmailNotVerified
	}

	return kidsAuth.FederatedIdentity{
		Subject:       claims.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: true,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
	}, nil
}

func validIssuer(iss string) bool {
	for _, want := range googleIssuers {
		if iss == want {
			return true
		}
	}
	return false
}
