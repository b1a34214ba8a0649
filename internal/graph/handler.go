// Package graph serves a read-only projection of the articles query in
// the nested GraphQL response shape. It is not a GraphQL engine: the
// handler recognizes the articles query and reuses the same gate and
// ownership scope as the REST surface.
package graph

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pressroom-cms/pressroom/internal/articles"
	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/rbac"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/store"
)

// Handler answers POST /graphql.
type Handler struct {
	logger   *slog.Logger
	articles *articles.Service
	gate     rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, articleService *articles.Service, gate rbac.Middleware) *Handler {
	return &Handler{logger: logger, articles: articleService, gate: gate}
}

// Gate returns the middleware guarding the /graphql route.
func (h *Handler) Gate() func(http.Handler) http.Handler {
	return h.gate.Require(rbac.ActionArticleFind)
}

type request struct {
	OperationName *string        `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

// Query handles a GraphQL document. Only the articles query is
// supported; anything else gets a validation error.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if !strings.Contains(req.Query, "articles") {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	principal := shared.PrincipalFromContext(r.Context())
	records, err := h.articles.List(r.Context(), principal, nil, true)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("graphql articles", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	entries := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		entries = append(entries, projectArticle(rec))
	}
	httpx.Data(w, http.StatusOK, map[string]any{
		"articles": map[string]any{
			"data": entries,
		},
	})
}

// projectArticle renders one article in the nested id/attributes shape.
// GraphQL ids are strings.
func projectArticle(rec store.Record) map[string]any {
	attributes := map[string]any{
		"title": rec.Str("title"),
		"slug":  rec.Str("slug"),
	}
	if author := rec.Rel("author"); author != nil {
		attributes["author"] = map[string]any{
			"data": map[string]any{
				"id": strconv.FormatInt(author.Int64("id"), 10),
				"attributes": map[string]any{
					"username": author.Str("username"),
				},
			},
		}
	}
	return map[string]any{
		"id":         strconv.FormatInt(rec.Int64("id"), 10),
		"attributes": attributes,
	}
}
