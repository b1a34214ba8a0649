package users

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/rbac"
	"github.com/pressroom-cms/pressroom/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Gateway) {
	t.Helper()
	conn, err := db.NewSQLite(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	gw, err := store.NewSQLite(conn)
	require.NoError(t, err)
	require.NoError(t, rbac.EnsureRoles(context.Background(), gw))
	return NewService(gw), gw
}

func TestCreateAppliesDefaultsAndHashesPassword(t *testing.T) {
	ctx := context.Background()
	svc, gw := newTestService(t)

	created, err := svc.Create(ctx, NewUserInput{
		Username: "John Doe",
		Email:    "john@doe.fr",
		Password: "1234Abc",
	})
	require.NoError(t, err)
	require.Equal(t, "local", created.Str("provider"))
	require.Equal(t, rbac.RoleAuthenticated, created.Int64("role_id"))
	require.NotContains(t, created, "password")

	stored, err := gw.FindOne(ctx, "users", store.Filter{"email": "john@doe.fr"}, store.FindOptions{})
	require.NoError(t, err)
	hash := stored.Str("password")
	require.NotEqual(t, "1234Abc", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("1234Abc")))
}

func TestCreateValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, NewUserInput{Username: "x", Email: "not-an-email", Password: "p"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(ctx, NewUserInput{Email: "john@doe.fr", Password: "p"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	input := NewUserInput{Username: "John Doe", Email: "john@doe.fr", Password: "1234Abc"}
	_, err := svc.Create(ctx, input)
	require.NoError(t, err)
	_, err = svc.Create(ctx, input)
	require.Error(t, err)
}

func TestListSanitizesRecords(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, NewUserInput{Username: "John Doe", Email: "john@doe.fr", Password: "1234Abc"})
	require.NoError(t, err)

	records, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotContains(t, records[0], "password")
	require.Equal(t, "John Doe", records[0].Str("username"))
}

func TestSanitizeNilPassesThrough(t *testing.T) {
	require.Nil(t, Sanitize(nil))
}
