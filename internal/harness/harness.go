// Package harness boots the full service in-process for integration
// scenarios: a scratch SQLite database, an in-process Redis, the HTTP
// router on an ephemeral listener, and fixture helpers for principals,
// tokens and permission grants.
//
// Scenarios run sequentially against one harness. Baseline grants for
// the article and user actions are seeded at setup and restored on
// every reset; individual scenarios layer additional grants and
// revokes on top.
package harness

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pressroom-cms/pressroom/internal/app"
	"github.com/pressroom-cms/pressroom/internal/articles"
	"github.com/pressroom-cms/pressroom/internal/auth"
	"github.com/pressroom-cms/pressroom/internal/graph"
	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/rbac"
	"github.com/pressroom-cms/pressroom/internal/store"
	"github.com/pressroom-cms/pressroom/internal/uploads"
	"github.com/pressroom-cms/pressroom/internal/users"
)

// Collections cleared between scenarios, in foreign-key order.
var resetCollections = []string{"articles", "categories", "uploads", "users"}

// baselineGrants are seeded for the authenticated role at setup and
// after every reset.
var baselineGrants = []rbac.ActionPath{
	rbac.ActionArticleFind,
	rbac.ActionArticleFindOne,
	rbac.ActionArticleCreate,
	rbac.ActionArticleDelete,
	rbac.ActionUserFind,
}

// Harness owns one booted service instance and its scratch state.
type Harness struct {
	Gateway     store.Gateway
	Permissions *rbac.Store
	Users       *users.Service
	Tokens      *auth.TokenService
	Uploads     *uploads.Store
	Server      *httptest.Server

	conn     *sql.DB
	redis    *miniredis.Miniredis
	redisCli *redis.Client
	dbPath   string
	torn     bool
	mu       sync.Mutex
}

var (
	instance     *Harness
	instanceErr  error
	instanceOnce sync.Once
)

// Acquire returns the process-wide harness, booting it on first call.
// Later calls return the same instance without re-booting.
func Acquire() (*Harness, error) {
	instanceOnce.Do(func() {
		instance, instanceErr = New()
	})
	return instance, instanceErr
}

// Release tears down the process-wide harness.
func Release() error {
	if instance == nil {
		return nil
	}
	return instance.Teardown()
}

// New boots a fresh harness with its own scratch database and upload
// directory. Every failure exit tears down whatever was already built,
// scratch directory included.
func New() (*Harness, error) {
	scratch, err := os.MkdirTemp("", "pressroom-test-")
	if err != nil {
		return nil, err
	}
	h := &Harness{dbPath: filepath.Join(scratch, "data.db")}

	conn, err := db.NewSQLite(h.dbPath)
	if err != nil {
		return nil, h.failSetup(err)
	}
	h.conn = conn
	gateway, err := store.NewSQLite(conn)
	if err != nil {
		return nil, h.failSetup(err)
	}
	h.Gateway = gateway

	mr, err := miniredis.Run()
	if err != nil {
		return nil, h.failSetup(err)
	}
	h.redis = mr
	h.redisCli = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tokens, err := auth.NewTokenService([]byte("pressroom-test-secret"), "pressroom", time.Hour)
	if err != nil {
		return nil, h.failSetup(err)
	}
	h.Tokens = tokens

	files, err := uploads.NewStore(filepath.Join(scratch, "uploads"))
	if err != nil {
		return nil, h.failSetup(err)
	}
	h.Uploads = files

	cfg := &app.Config{AppEnv: "test", RateLimit: 0}
	h.Permissions = rbac.NewStore(gateway, h.redisCli)
	h.Users = users.NewService(gateway)
	gate := rbac.Middleware{Store: h.Permissions}
	authMW := auth.Middleware{Resolver: auth.NewResolver(tokens, gateway)}
	articleService := articles.NewService(gateway, files)

	router := app.NewRouter(app.RouterParams{
		Config:         cfg,
		AuthMiddleware: authMW,
		ArticleHandler: articles.NewHandler(nil, articleService, files, gate),
		UserHandler:    users.NewHandler(nil, h.Users, gate),
		GraphHandler:   graph.NewHandler(nil, articleService, gate),
	})
	h.Server = httptest.NewServer(router)

	ctx := context.Background()
	if err := rbac.EnsureRoles(ctx, gateway); err != nil {
		return nil, h.failSetup(err)
	}
	if err := h.seedBaseline(ctx); err != nil {
		return nil, h.failSetup(err)
	}
	return h, nil
}

// failSetup releases whatever New managed to build and passes the
// cause through.
func (h *Harness) failSetup(err error) error {
	_ = h.Teardown()
	return err
}

// Teardown releases the instance and deletes the scratch database
// file. Calling it again is a no-op.
func (h *Harness) Teardown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.torn {
		return nil
	}
	h.torn = true

	if h.Server != nil {
		h.Server.Close()
	}
	if h.redisCli != nil {
		_ = h.redisCli.Close()
	}
	if h.redis != nil {
		h.redis.Close()
	}
	if h.conn != nil {
		_ = h.conn.Close()
	}
	if h.dbPath == "" {
		return nil
	}
	if _, err := os.Stat(h.dbPath); err == nil {
		if err := os.Remove(h.dbPath); err != nil {
			return err
		}
	}
	return os.RemoveAll(filepath.Dir(h.dbPath))
}

// Reset clears every protected collection, removes scenario uploads
// and restores the baseline grants. Scenario-specific grants are wiped
// with the permission table; the lookup cache is flushed so no stale
// decision survives into the next scenario.
func (h *Harness) Reset(ctx context.Context) error {
	for _, collection := range resetCollections {
		if _, err := h.Gateway.DeleteMany(ctx, collection, nil); err != nil {
			return err
		}
	}
	if _, err := h.Gateway.DeleteMany(ctx, "permissions", nil); err != nil {
		return err
	}
	h.redis.FlushAll()
	if err := h.Uploads.Reset(); err != nil {
		return err
	}
	return h.seedBaseline(ctx)
}

func (h *Harness) seedBaseline(ctx context.Context) error {
	return h.GrantPrivileges(ctx, rbac.RoleAuthenticated, baselineGrants)
}

// UserOverrides selectively replaces the fixture defaults.
type UserOverrides struct {
	Username  string
	Email     string
	Password  string
	Provider  string
	Confirmed *bool
	RoleID    int64
}

// CreateUser creates a principal with fixture defaults: confirmed,
// local provider, the default authenticated role.
func (h *Harness) CreateUser(ctx context.Context, overrides UserOverrides) (store.Record, error) {
	input := users.NewUserInput{
		Username:  "John Doe",
		Email:     "john@doe.fr",
		Password:  "1234Abc",
		Provider:  "local",
		Confirmed: true,
	}
	if overrides.Username != "" {
		input.Username = overrides.Username
	}
	if overrides.Email != "" {
		input.Email = overrides.Email
	}
	if overrides.Password != "" {
		input.Password = overrides.Password
	}
	if overrides.Provider != "" {
		input.Provider = overrides.Provider
	}
	if overrides.Confirmed != nil {
		input.Confirmed = *overrides.Confirmed
	}
	if overrides.RoleID != 0 {
		input.RoleID = overrides.RoleID
	}
	return h.Users.Create(ctx, input)
}

// IssueToken returns a bearer credential for a user id or email.
func (h *Harness) IssueToken(ctx context.Context, idOrEmail any) (string, error) {
	switch v := idOrEmail.(type) {
	case int64:
		return h.Tokens.IssueForID(ctx, v)
	case int:
		return h.Tokens.IssueForID(ctx, int64(v))
	case string:
		return h.Tokens.IssueForEmail(ctx, v)
	default:
		return "", fmt.Errorf("harness: unsupported token subject %T", idOrEmail)
	}
}

// GrantPrivilege grants one action to a role, enabled with an empty
// policy.
func (h *Harness) GrantPrivilege(ctx context.Context, roleID int64, action rbac.ActionPath) error {
	return h.Permissions.Grant(ctx, roleID, action, true, "")
}

// GrantPrivileges grants several actions to a role.
func (h *Harness) GrantPrivileges(ctx context.Context, roleID int64, actions []rbac.ActionPath) error {
	for _, action := range actions {
		if err := h.GrantPrivilege(ctx, roleID, action); err != nil {
			return err
		}
	}
	return nil
}

// SetPublicPermissions grants every listed action on every listed
// resource to the public role in one batch.
func (h *Harness) SetPublicPermissions(ctx context.Context, permissions map[string][]string) error {
	publicRole, err := rbac.RoleByType(ctx, h.Gateway, "public")
	if err != nil {
		return err
	}
	roleID := publicRole.Int64("id")
	for resource, actions := range permissions {
		for _, action := range actions {
			if err := h.GrantPrivilege(ctx, roleID, rbac.Action(resource, action)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResponseHasError reports whether an envelope body carries an error
// with the given name.
func ResponseHasError(name string, body []byte) bool {
	var envelope httpx.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.Error != nil && envelope.Error.Name == name
}

// DBPath returns the scratch database file location.
func (h *Harness) DBPath() string { return h.dbPath }
