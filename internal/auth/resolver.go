package auth

import (
	"context"
	"errors"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/store"
)

// Resolver turns bearer credentials into principals.
type Resolver struct {
	tokens  *TokenService
	gateway store.Gateway
}

// NewResolver constructs a Resolver.
func NewResolver(tokens *TokenService, gateway store.Gateway) *Resolver {
	return &Resolver{tokens: tokens, gateway: gateway}
}

// Resolve verifies the credential and loads the matching principal.
// It fails with httpx.ErrUnauthenticated when the credential is
// missing, malformed or does not map to a known user.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*shared.Principal, error) {
	if credential == "" {
		return nil, httpx.ErrUnauthenticated
	}
	claims, err := r.tokens.ParseAndValidate(ctx, credential)
	if err != nil {
		return nil, httpx.ErrUnauthenticated
	}

	filter := store.Filter{}
	switch {
	case claims.UserID != 0:
		filter["id"] = claims.UserID
	case claims.Email != "":
		filter["email"] = claims.Email
	default:
		return nil, httpx.ErrUnauthenticated
	}

	user, err := r.gateway.FindOne(ctx, "users", filter, store.FindOptions{})
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.ErrUnauthenticated
		}
		return nil, err
	}
	return &shared.Principal{
		ID:       user.Int64("id"),
		Username: user.Str("username"),
		Email:    user.Str("email"),
		RoleID:   user.Int64("role_id"),
	}, nil
}
