package rbac

import (
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/store"
)

// OwnerField is the filter field the scoping filter pins to the caller.
const OwnerField = "author"

// ScopeToOwner returns the incoming filter with the owner field forced
// to the principal's id. The gate only decides whether an action may
// run; this decides which rows it may see, so it applies to every read,
// update and delete on an owned resource. A caller-supplied constraint
// on the owner field never survives. With no principal the function
// fails closed rather than producing an unscoped filter.
func ScopeToOwner(principal *shared.Principal, incoming store.Filter) (store.Filter, error) {
	if principal == nil {
		return nil, httpx.ErrUnauthenticated
	}
	if incoming == nil {
		incoming = store.Filter{}
	}
	return incoming.WithForced(OwnerField, principal.ID), nil
}
