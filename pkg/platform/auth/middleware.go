package auth

import (
	"net/http"
	"strings"
)

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, status int, err error)

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middleware)

// SkipPaths lets requests for the exact paths through without a token.
func SkipPaths(paths ...string) MiddlewareOption {
	return func(m *middleware) {
		for _, p := range paths {
			m.skip[p] = struct{}{}
		}
	}
}

// OnError replaces the plain-text 401 response.
func OnError(fn ErrorWriter) MiddlewareOption {
	return func(m *middleware) { m.onError = fn }
}

type middleware struct {
	cfg     Config
	skip    map[string]struct{}
	onError ErrorWriter
}

// Middleware validates the bearer token on every request and stores the
// claims on the request context. CORS preflight requests carry no
// credentials and always pass.
func Middleware(cfg Config, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	m := &middleware{
		cfg:  cfg,
		skip: make(map[string]struct{}),
		onError: func(w http.ResponseWriter, status int, err error) {
			http.Error(w, err.Error(), status)
		},
	}
	for _, opt := range opts {
		opt(m)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, public := m.skip[r.URL.Path]; public || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, err := BearerToken(r)
			if err != nil {
				m.onError(w, http.StatusUnauthorized, err)
				return
			}
			claims, err := Parse(token, m.cfg)
			if err != nil {
				m.onError(w, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), claims)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}
