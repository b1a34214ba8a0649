package rbac

import (
	"log/slog"
	"net/http"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Middleware wires the authorization gate into HTTP handlers.
type Middleware struct {
	Store  *Store
	Logger *slog.Logger
}

// Require gates a route on the action path. Anonymous requests are
// checked against the public role; authenticated requests against the
// principal's role. A denial ends the request with a ForbiddenError
// envelope before the handler or the scoping filter runs.
func (m Middleware) Require(action ActionPath) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleID := RolePublic
			if principal := shared.PrincipalFromContext(r.Context()); principal != nil {
				roleID = principal.RoleID
			}
			granted, err := m.Store.IsGranted(r.Context(), roleID, action)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authorization gate", slog.String("action", string(action)), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if !granted {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
