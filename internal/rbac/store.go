package rbac

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/store"
)

const cacheTTL = 5 * time.Minute

// Store is the durable (role, action) -> Entry mapping. Lookups may be
// served from a Redis cache; grant and revoke invalidate it. The
// read-modify-write of a role's permission set is serialized per role,
// while grants against different roles proceed independently.
type Store struct {
	gateway store.Gateway
	cache   *redis.Client

	mu    sync.Mutex
	roles map[int64]*sync.Mutex
}

// NewStore constructs a permission store. The cache client may be nil,
// in which case every lookup hits the gateway.
func NewStore(gateway store.Gateway, cache *redis.Client) *Store {
	return &Store{
		gateway: gateway,
		cache:   cache,
		roles:   make(map[int64]*sync.Mutex),
	}
}

// Grant upserts the entry for (roleID, action). It fails with
// httpx.ErrRoleNotFound when the role does not exist.
func (s *Store) Grant(ctx context.Context, roleID int64, action ActionPath, enabled bool, policy string) error {
	if err := s.ensureRole(ctx, roleID); err != nil {
		return err
	}

	lock := s.roleLock(roleID)
	lock.Lock()
	defer lock.Unlock()

	// Upsert as delete-then-create; the per-role lock keeps concurrent
	// grants to the same role from interleaving.
	if _, err := s.gateway.DeleteMany(ctx, "permissions", store.Filter{"role": roleID, "action": string(action)}); err != nil {
		return err
	}
	if _, err := s.gateway.Create(ctx, "permissions", store.Record{
		"role":    roleID,
		"action":  string(action),
		"enabled": enabled,
		"policy":  policy,
	}); err != nil {
		return err
	}
	s.invalidate(ctx, roleID)
	return nil
}

// Revoke removes the entry for (roleID, action). Revoking an absent
// entry is a no-op; absence already means disabled.
func (s *Store) Revoke(ctx context.Context, roleID int64, action ActionPath) error {
	if err := s.ensureRole(ctx, roleID); err != nil {
		return err
	}

	lock := s.roleLock(roleID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.gateway.DeleteMany(ctx, "permissions", store.Filter{"role": roleID, "action": string(action)}); err != nil {
		return err
	}
	s.invalidate(ctx, roleID)
	return nil
}

// IsGranted reports whether the role holds an enabled entry for the
// action. A missing entry reads as false.
func (s *Store) IsGranted(ctx context.Context, roleID int64, action ActionPath) (bool, error) {
	var key string
	if s.cache != nil {
		ver, err := s.roleVersion(ctx, roleID)
		if err != nil {
			return false, err
		}
		// The key is fixed before the gateway read: if a grant or
		// revoke lands in between, the write below goes to the
		// superseded version and is never read again.
		key = entryKey(roleID, ver, action)
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			return cached == "1", nil
		}
		if !errors.Is(err, redis.Nil) {
			return false, err
		}
	}

	granted := false
	entry, err := s.gateway.FindOne(ctx, "permissions", store.Filter{"role": roleID, "action": string(action)}, store.FindOptions{})
	switch {
	case err == nil:
		granted = entry.Bool("enabled")
	case errors.Is(err, httpx.ErrNotFound):
		// absent entry: denied
	default:
		return false, err
	}

	if s.cache != nil {
		value := "0"
		if granted {
			value = "1"
		}
		_ = s.cache.Set(ctx, key, value, cacheTTL).Err()
	}
	return granted, nil
}

func (s *Store) ensureRole(ctx context.Context, roleID int64) error {
	_, err := s.gateway.FindOne(ctx, "roles", store.Filter{"id": roleID}, store.FindOptions{})
	if errors.Is(err, httpx.ErrNotFound) {
		return fmt.Errorf("%w: role %d", httpx.ErrRoleNotFound, roleID)
	}
	return err
}

func (s *Store) roleLock(roleID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.roles[roleID]
	if !ok {
		lock = &sync.Mutex{}
		s.roles[roleID] = lock
	}
	return lock
}

// invalidate bumps the role's cache version. Entries written under the
// old version stop being read and age out with the TTL.
func (s *Store) invalidate(ctx context.Context, roleID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Incr(ctx, versionKey(roleID)).Err()
}

func (s *Store) roleVersion(ctx context.Context, roleID int64) (int64, error) {
	ver, err := s.cache.Get(ctx, versionKey(roleID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

func versionKey(roleID int64) string {
	return fmt.Sprintf("permver:%d", roleID)
}

func entryKey(roleID, version int64, action ActionPath) string {
	return fmt.Sprintf("perm:%d:%d:%s", roleID, version, action)
}
