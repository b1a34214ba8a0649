package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Middleware attaches the resolved principal to the request context.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// Authenticate resolves an Authorization: Bearer credential when
// present. Requests without the header continue anonymously; a header
// that fails to resolve ends the request with an UnauthorizedError
// envelope before any later stage runs.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		credential, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthenticated)
			return
		}
		principal, err := m.Resolver.Resolve(r.Context(), strings.TrimSpace(credential))
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("resolve bearer credential", slog.Any("error", err))
			}
			httpx.RespondError(w, httpx.ErrUnauthenticated)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
