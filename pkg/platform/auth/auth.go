// Package auth validates and issues the HS256 bearer tokens shared by the
// planner binaries.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds signer verification parameters.
type Config struct {
	Secret string
	Issuer string
	// Leeway tolerates clock skew when checking exp and nbf.
	Leeway time.Duration
}

// Claims is the verified identity behind a request. TenantID is the shared
// couple space both partners belong to.
type Claims struct {
	Subject   string
	TenantID  string
	Scopes    []string // sorted, no duplicates
	ExpiresAt time.Time
}

var (
	// ErrMissingToken is returned when the Authorization header is absent.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken wraps parsing and validation errors.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// tokenClaims is the JWT body. Scopes may arrive as a space separated
// string or as a JSON array.
type tokenClaims struct {
	TenantID string   `json:"tenant_id"`
	Scopes   scopeSet `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

type scopeSet []string

func (s *scopeSet) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out []string
	switch v := raw.(type) {
	case string:
		out = strings.Fields(v)
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
	case nil:
	default:
		return fmt.Errorf("scopes: unexpected %T", raw)
	}
	slices.Sort(out)
	*s = slices.Compact(out)
	return nil
}

// Parse validates a JWT and returns its claims.
func Parse(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	var tc tokenClaims
	if _, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tc.Subject == "" || tc.TenantID == "" {
		return nil, fmt.Errorf("%w: sub and tenant_id are required", ErrInvalidToken)
	}

	return &Claims{
		Subject:   tc.Subject,
		TenantID:  tc.TenantID,
		Scopes:    tc.Scopes,
		ExpiresAt: tc.ExpiresAt.Time,
	}, nil
}

// Issue signs a token for subject in tenantID, valid for ttl.
func Issue(cfg Config, subject, tenantID string, scopes []string, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("auth: empty signing secret")
	}
	now := time.Now()
	tc := tokenClaims{
		TenantID: tenantID,
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(cfg.Secret))
}

// HasScope reports whether the claim set includes scope.
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	_, found := slices.BinarySearch(c.Scopes, scope)
	return found
}

// HasAnyScope reports whether the claim set includes at least one of scopes.
func (c *Claims) HasAnyScope(scopes ...string) bool {
	return slices.ContainsFunc(scopes, c.HasScope)
}

// ScopeList returns a copy of the sorted scopes.
func (c *Claims) ScopeList() []string {
	return slices.Clone(c.Scopes)
}
