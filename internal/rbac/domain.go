// Package rbac holds the access-control core: a durable role/permission
// store, the per-request authorization gate, and the ownership-scoping
// filter that restricts queries to the caller's own rows.
package rbac

import "fmt"

// ActionPath is the stable key identifying a (resource, action) pair in
// the permission store. Values are only constructed through Action so a
// typo cannot silently fail open or closed.
type ActionPath string

// Action builds the canonical action path for a resource and action.
func Action(resource, action string) ActionPath {
	return ActionPath(fmt.Sprintf("api::%s.controllers.%s.%s", resource, resource, action))
}

// Known action paths for the article and user resources.
var (
	ActionArticleFind    = Action("article", "find")
	ActionArticleFindOne = Action("article", "findOne")
	ActionArticleCreate  = Action("article", "create")
	ActionArticleDelete  = Action("article", "delete")
	ActionUserFind       = Action("user", "find")
)

// Seeded role ids. The authenticated role is the default for new users.
const (
	RoleAuthenticated int64 = 1
	RolePublic        int64 = 2
)

// Entry is the stored permission state for one (role, action) pair.
// Absence of an entry is equivalent to Enabled=false.
type Entry struct {
	Enabled bool
	Policy  string
}
