package handlers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/internhub/internhub/internal/domain/account"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRINCIPAL CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type principalKey struct{}

// WithPrincipal stores the authenticated caller in the context.
func WithPrincipal(ctx context.Context, p account.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (account.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(account.Principal)
	return p, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// JWT
// ══════════════════════════════════════════════════════════════════════════════

// Claims are the bearer token claims. The subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token errors.
var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidAPIKey      = errors.New("invalid api key")
)

// JWTVerifier validates HS256 bearer tokens.
type JWTVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTVerifier creates a verifier. issuer may be empty to skip the check.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}
}

// Verify parses a token and resolves the caller.
func (v *JWTVerifier) Verify(tokenString string) (account.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return account.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return account.Principal{}, ErrInvalidToken
	}

	role, err := account.ParseRole(claims.Role)
	if err != nil {
		return account.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	p := account.Principal{UserID: claims.Subject, Role: role}
	if err := p.Validate(); err != nil {
		return account.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return p, nil
}

// Issue signs a token for the principal. Used by tooling and tests.
func (v *JWTVerifier) Issue(p account.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ══════════════════════════════════════════════════════════════════════════════
// API KEYS
// ══════════════════════════════════════════════════════════════════════════════

// APIKeyAuth checks service keys against configured bcrypt hashes. Keys that
// matched once are remembered by digest so bcrypt runs once per key.
type APIKeyAuth struct {
	headerName string
	hashes     [][]byte

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]bool
}

// NewAPIKeyAuth creates a new API key authenticator.
func NewAPIKeyAuth(headerName string, hashes []string) *APIKeyAuth {
	if headerName == "" {
		headerName = "X-API-Key"
	}
	a := &APIKeyAuth{
		headerName: headerName,
		verified:   make(map[[sha256.Size]byte]bool),
	}
	for _, h := range hashes {
		if h = strings.TrimSpace(h); h != "" {
			a.hashes = append(a.hashes, []byte(h))
		}
	}
	return a
}

// HeaderName returns the header carrying the key.
func (a *APIKeyAuth) HeaderName() string {
	return a.headerName
}

// Enabled reports whether any key is configured.
func (a *APIKeyAuth) Enabled() bool {
	return len(a.hashes) > 0
}

// IsValid checks if an API key matches one of the configured hashes.
func (a *APIKeyAuth) IsValid(key string) bool {
	if key == "" || !a.Enabled() {
		return false
	}
	digest := sha256.Sum256([]byte(key))

	a.mu.RLock()
	ok, seen := a.verified[digest]
	a.mu.RUnlock()
	if seen {
		return ok
	}

	ok = false
	for _, h := range a.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			ok = true
			break
		}
	}

	a.mu.Lock()
	if len(a.verified) > 1024 {
		a.verified = make(map[[sha256.Size]byte]bool)
	}
	a.verified[digest] = ok
	a.mu.Unlock()
	return ok
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Authenticator resolves the caller of every API request. A service key
// resolves to the system principal; otherwise a bearer JWT is required.
type Authenticator struct {
	tokens *JWTVerifier
	keys   *APIKeyAuth
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator. keys may be nil.
func NewAuthenticator(tokens *JWTVerifier, keys *APIKeyAuth, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, keys: keys, logger: logger.With("component", "auth")}
}

// Authenticate resolves the caller from request headers.
func (a *Authenticator) Authenticate(r *http.Request) (account.Principal, error) {
	if a.keys != nil {
		if key := r.Header.Get(a.keys.HeaderName()); key != "" {
			if !a.keys.IsValid(key) {
				return account.Principal{}, ErrInvalidAPIKey
			}
			return account.SystemPrincipal, nil
		}
	}

	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return account.Principal{}, ErrMissingCredentials
	}
	return a.tokens.Verify(strings.TrimSpace(token))
}

// Middleware rejects unauthenticated requests with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Authenticate(r)
		if err != nil {
			a.logger.DebugContext(r.Context(), "authentication failed",
				"path", r.URL.Path,
				"error", err,
			)
			WriteError(w, r, http.StatusUnauthorized, "unauthorized", "valid credentials are required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
