package sessiontoken

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"smartaset/internal/util"
)

const (
	// DefaultTTL is how long a workspace token stays valid.
	DefaultTTL = 12 * time.Hour
	// DefaultLeeway is clock skew tolerance for token validation.
	DefaultLeeway = 15 * time.Second

	issuer   = "smartaset"
	audience = "smartaset-workspace"
	minKey   = 32
)

var (
	ErrTokenRequired = errors.New("token required")
	ErrInvalidToken  = errors.New("invalid workspace token")
)

// Manager issues and verifies HS256 tokens whose subject is a workspace id.
type Manager struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// Options configures a Manager.
type Options struct {
	Secret string
	TTL    time.Duration
	Leeway time.Duration
}

// NewManager validates the secret and applies defaults.
func NewManager(opts Options) (*Manager, error) {
	secret := strings.TrimSpace(opts.Secret)
	if len(secret) < minKey {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Leeway <= 0 {
		opts.Leeway = DefaultLeeway
	}
	return &Manager{secret: []byte(secret), ttl: opts.TTL, leeway: opts.Leeway, now: time.Now}, nil
}

// TTL reports the configured token lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token for workspaceID.
func (m *Manager) Issue(workspaceID string) (string, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return "", errors.New("workspace id is required")
	}
	now := m.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   workspaceID,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		ID:        util.NewID(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks signature, expiry, issuer and audience and returns the
// workspace id. Every failure is reported as ErrInvalidToken.
func (m *Manager) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenRequired
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

// BearerToken extracts a bearer token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authHeader[7:])
	return token, token != ""
}
