package auth

import "context"

type claimsKey struct{}

// NewContext returns a copy of ctx carrying claims.
func NewContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext returns the claims stored by NewContext, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims, claims != nil
}
