package rbac

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/store"
)

func newTestGateway(t *testing.T) store.Gateway {
	t.Helper()
	conn, err := db.NewSQLite(filepath.Join(t.TempDir(), "rbac.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	gw, err := store.NewSQLite(conn)
	require.NoError(t, err)
	require.NoError(t, EnsureRoles(context.Background(), gw))
	return gw
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cli.Close() })
	return mr, cli
}

func TestGrantThenIsGranted(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newTestGateway(t), nil)

	granted, err := s.IsGranted(ctx, RoleAuthenticated, ActionArticleFind)
	require.NoError(t, err)
	require.False(t, granted, "absent entry must read as denied")

	require.NoError(t, s.Grant(ctx, RoleAuthenticated, ActionArticleFind, true, ""))
	granted, err = s.IsGranted(ctx, RoleAuthenticated, ActionArticleFind)
	require.NoError(t, err)
	require.True(t, granted)

	// Grant is an upsert; flipping enabled off must not duplicate rows.
	require.NoError(t, s.Grant(ctx, RoleAuthenticated, ActionArticleFind, false, ""))
	granted, err = s.IsGranted(ctx, RoleAuthenticated, ActionArticleFind)
	require.NoError(t, err)
	require.False(t, granted)

	rows, err := s.gateway.Find(ctx, "permissions", store.Filter{"role": int64(RoleAuthenticated), "action": string(ActionArticleFind)}, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newTestGateway(t), nil)

	require.NoError(t, s.Grant(ctx, RolePublic, ActionArticleFind, true, ""))
	require.NoError(t, s.Revoke(ctx, RolePublic, ActionArticleFind))

	granted, err := s.IsGranted(ctx, RolePublic, ActionArticleFind)
	require.NoError(t, err)
	require.False(t, granted)

	// Revoking again must be a clean no-op.
	require.NoError(t, s.Revoke(ctx, RolePublic, ActionArticleFind))
}

func TestUnknownRoleIsRejected(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newTestGateway(t), nil)

	err := s.Grant(ctx, 99, ActionArticleFind, true, "")
	require.ErrorIs(t, err, httpx.ErrRoleNotFound)

	err = s.Revoke(ctx, 99, ActionArticleFind)
	require.ErrorIs(t, err, httpx.ErrRoleNotFound)
}

func TestGrantsAreScopedToRole(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newTestGateway(t), nil)

	require.NoError(t, s.Grant(ctx, RoleAuthenticated, ActionArticleCreate, true, ""))

	granted, err := s.IsGranted(ctx, RolePublic, ActionArticleCreate)
	require.NoError(t, err)
	require.False(t, granted, "a grant to one role must not leak to another")
}

func TestCacheServesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	mr, cli := newTestCache(t)
	s := NewStore(newTestGateway(t), cli)

	require.NoError(t, s.Grant(ctx, RoleAuthenticated, ActionArticleDelete, true, ""))

	granted, err := s.IsGranted(ctx, RoleAuthenticated, ActionArticleDelete)
	require.NoError(t, err)
	require.True(t, granted)
	ver, err := s.roleVersion(ctx, RoleAuthenticated)
	require.NoError(t, err)
	require.True(t, mr.Exists(entryKey(RoleAuthenticated, ver, ActionArticleDelete)), "lookup should populate the cache")

	require.NoError(t, s.Revoke(ctx, RoleAuthenticated, ActionArticleDelete))
	bumped, err := s.roleVersion(ctx, RoleAuthenticated)
	require.NoError(t, err)
	require.Greater(t, bumped, ver, "revoke should bump the role's cache version")

	granted, err = s.IsGranted(ctx, RoleAuthenticated, ActionArticleDelete)
	require.NoError(t, err)
	require.False(t, granted)
}

func TestStaleCacheEntryWinsUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	mr, cli := newTestCache(t)
	s := NewStore(newTestGateway(t), cli)

	// A cached value planted out of band under the current version is
	// honored; only grant and revoke move the version past it.
	require.NoError(t, mr.Set(entryKey(RoleAuthenticated, 0, ActionArticleFind), "1"))
	granted, err := s.IsGranted(ctx, RoleAuthenticated, ActionArticleFind)
	require.NoError(t, err)
	require.True(t, granted)

	require.NoError(t, s.Revoke(ctx, RoleAuthenticated, ActionArticleFind))
	granted, err = s.IsGranted(ctx, RoleAuthenticated, ActionArticleFind)
	require.NoError(t, err)
	require.False(t, granted)
}

func TestLateCacheWriteCannotPinStaleDecision(t *testing.T) {
	ctx := context.Background()
	mr, cli := newTestCache(t)
	s := NewStore(newTestGateway(t), cli)

	require.NoError(t, s.Grant(ctx, RoleAuthenticated, ActionArticleFind, true, ""))
	staleVer, err := s.roleVersion(ctx, RoleAuthenticated)
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, RoleAuthenticated, ActionArticleFind))

	// A slow reader that queried the table before the revoke now
	// finishes and writes its decision under the key it captured. The
	// write lands on the superseded version and pins nothing.
	require.NoError(t, mr.Set(entryKey(RoleAuthenticated, staleVer, ActionArticleFind), "1"))

	granted, err := s.IsGranted(ctx, RoleAuthenticated, ActionArticleFind)
	require.NoError(t, err)
	require.False(t, granted)
}

func TestConcurrentGrantsLeaveSingleEntry(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newTestGateway(t), nil)

	const workers = 16
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		enabled := i%2 == 0
		go func() {
			defer wg.Done()
			errs <- s.Grant(ctx, RoleAuthenticated, ActionArticleFindOne, enabled, "")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rows, err := s.gateway.Find(ctx, "permissions", store.Filter{"role": int64(RoleAuthenticated), "action": string(ActionArticleFindOne)}, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1, "concurrent upserts for one (role, action) pair must collapse to a single row")
}
