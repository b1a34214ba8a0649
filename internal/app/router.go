package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pressroom-cms/pressroom/internal/articles"
	"github.com/pressroom-cms/pressroom/internal/auth"
	"github.com/pressroom-cms/pressroom/internal/graph"
	"github.com/pressroom-cms/pressroom/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Config         *Config
	AuthMiddleware auth.Middleware
	ArticleHandler *articles.Handler
	UserHandler    *users.Handler
	GraphHandler   *graph.Handler
	RequestLogging bool
}

// NewRouter constructs the chi.Router. The per-request pipeline is
// fixed: resolve credential, authorize the action, scope the query,
// execute. The first two stages live in middleware; the handlers run
// the rest.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Config: params.Config,
		Auth:   params.AuthMiddleware,
	}) {
		r.Use(mw)
	}
	if params.RequestLogging {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/articles", params.ArticleHandler.MountRoutes)
	r.Route("/api/users", params.UserHandler.MountRoutes)
	r.With(params.GraphHandler.Gate()).Post("/graphql", params.GraphHandler.Query)

	return r
}
