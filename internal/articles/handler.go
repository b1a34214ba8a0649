package articles

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/rbac"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/store"
	"github.com/pressroom-cms/pressroom/internal/uploads"
)

const maxUploadBytes = 32 << 20

// Handler exposes the article endpoints. Every route runs behind the
// authorization gate for its action path; the read and delete handlers
// additionally pass through the ownership scope in the service.
type Handler struct {
	logger  *slog.Logger
	service *Service
	files   *uploads.Store
	gate    rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, files *uploads.Store, gate rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, files: files, gate: gate}
}

// MountRoutes registers article routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.ActionArticleFind))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.ActionArticleFindOne))
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.ActionArticleCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(rbac.ActionArticleDelete))
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	incoming := parseFilters(r)
	records, err := h.service.List(r.Context(), principal, incoming, wantsPopulate(r))
	if err != nil {
		h.respondError(w, "list articles", err)
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	httpx.Data(w, http.StatusOK, records)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Get(r.Context(), principal, id, wantsPopulate(r))
	if err != nil {
		h.respondError(w, "get article", err)
		return
	}
	httpx.Data(w, http.StatusOK, rec)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, image, err := h.decodeCreate(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Create(r.Context(), input, image)
	if err != nil {
		h.respondError(w, "create article", err)
		return
	}
	httpx.Data(w, http.StatusOK, rec)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		h.respondError(w, "delete article", err)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{"id": id})
}

// decodeCreate handles both encodings of the create request: a JSON
// body, or a multipart form with a JSON-encoded "data" field plus an
// optional "files.image" part.
func (h *Handler) decodeCreate(r *http.Request) (CreateInput, *uploads.Saved, error) {
	var input CreateInput

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return input, nil, httpx.ErrValidation
		}
		if err := unmarshalFormData([]byte(r.FormValue("data")), &input); err != nil {
			return input, nil, err
		}
		file, header, err := r.FormFile("files.image")
		if err == http.ErrMissingFile {
			return input, nil, nil
		}
		if err != nil {
			return input, nil, httpx.ErrValidation
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return input, nil, err
		}
		saved, err := h.files.Save(header.Filename, content)
		if err != nil {
			return input, nil, err
		}
		return input, &saved, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return input, nil, err
	}
	if err := unmarshalBody(body, &input); err != nil {
		return input, nil, err
	}
	return input, nil, nil
}

// unmarshalBody decodes a {"data": ...} payload. A body that is itself
// a JSON-encoded string is parsed a second time, so string-encoded
// bodies from older clients are accepted.
func unmarshalBody(body []byte, input *CreateInput) error {
	trimmed, err := unwrapStringBody(body)
	if err != nil {
		return err
	}
	var envelope struct {
		Data *CreateInput `json:"data"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil || envelope.Data == nil {
		return httpx.ErrValidation
	}
	*input = *envelope.Data
	return nil
}

// unmarshalFormData decodes the multipart "data" field. The form
// convention carries the input bare, without the {"data": ...}
// envelope JSON bodies use; enveloped field values are accepted too.
func unmarshalFormData(body []byte, input *CreateInput) error {
	trimmed, err := unwrapStringBody(body)
	if err != nil {
		return err
	}
	var envelope struct {
		Data *CreateInput `json:"data"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil && envelope.Data != nil {
		*input = *envelope.Data
		return nil
	}
	if err := json.Unmarshal([]byte(trimmed), input); err != nil {
		return httpx.ErrValidation
	}
	return nil
}

// unwrapStringBody trims the payload and, when the whole payload is a
// JSON-encoded string, unwraps it once.
func unwrapStringBody(body []byte) (string, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", httpx.ErrValidation
	}
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			return "", httpx.ErrValidation
		}
		trimmed = inner
	}
	return trimmed, nil
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, httpx.ErrValidation
	}
	return id, nil
}

func wantsPopulate(r *http.Request) bool {
	return r.URL.Query().Get("populate") != ""
}

var filterableFields = map[string]bool{
	"id":       true,
	"title":    true,
	"slug":     true,
	"author":   true,
	"category": true,
}

// parseFilters collects filters[field]=value query parameters into a
// gateway filter. Unknown fields are ignored; values that parse as
// integers are passed as such so id and relation comparisons match.
func parseFilters(r *http.Request) store.Filter {
	filter := store.Filter{}
	for key, values := range r.URL.Query() {
		if !strings.HasPrefix(key, "filters[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		field := key[len("filters[") : len(key)-1]
		if !filterableFields[field] {
			continue
		}
		if n, err := strconv.ParseInt(values[0], 10, 64); err == nil {
			filter[field] = n
			continue
		}
		filter[field] = values[0]
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}
