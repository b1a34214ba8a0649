package rbac

import (
	"context"
	"errors"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/store"
)

// EnsureRoles creates the built-in roles when they are missing. Safe to
// call on every startup.
func EnsureRoles(ctx context.Context, gateway store.Gateway) error {
	seed := []store.Record{
		{"id": RoleAuthenticated, "name": "Authenticated", "type": "authenticated"},
		{"id": RolePublic, "name": "Public", "type": "public"},
	}
	for _, role := range seed {
		_, err := gateway.FindOne(ctx, "roles", store.Filter{"id": role["id"]}, store.FindOptions{})
		if err == nil {
			continue
		}
		if !errors.Is(err, httpx.ErrNotFound) {
			return err
		}
		if _, err := gateway.Create(ctx, "roles", role); err != nil {
			return err
		}
	}
	return nil
}

// RoleByType looks a role up by its type name ("authenticated",
// "public").
func RoleByType(ctx context.Context, gateway store.Gateway, roleType string) (store.Record, error) {
	return gateway.FindOne(ctx, "roles", store.Filter{"type": roleType}, store.FindOptions{})
}
