package jwt

import "context"

type contextKey struct{ name string }

func (c contextKey) String() string { return c.name }

var (
	claimsContextKey  = &contextKey{name: "jwt_claims"}
	subjectContextKey = &contextKey{name: "jwt_subject"}
)

// SetClaims stores verified claims and their subject in ctx.
func SetClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsContextKey, claims)
	return context.WithValue(ctx, subjectContextKey, claims.Subject)
}

// GetClaims returns the verified claims from ctx.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// Subject returns the authenticated subject, or "" when the request was
// not authenticated.
func Subject(ctx context.Context) string {
	sub, _ := ctx.Value(subjectContextKey).(string)
	return sub
}
