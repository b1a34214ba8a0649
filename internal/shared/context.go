package shared

import "context"

// Principal describes the authenticated caller. It is resolved once per
// request and never mutated afterwards.
type Principal struct {
	ID       int64
	Username string
	Email    string
	RoleID   int64
}

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in the request context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from the request context.
// It returns nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
