package articles

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/rbac"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/store"
	"github.com/pressroom-cms/pressroom/internal/uploads"
	"github.com/pressroom-cms/pressroom/internal/users"
)

// Service runs the article pipeline stages that follow the gate:
// scope, then execute against the query gateway. Scoping is not
// optional middleware; every read and delete goes through it.
type Service struct {
	gateway  store.Gateway
	files    *uploads.Store
	validate *validator.Validate
	lower    cases.Caser
}

// NewService constructs an article service.
func NewService(gateway store.Gateway, files *uploads.Store) *Service {
	return &Service{
		gateway:  gateway,
		files:    files,
		validate: validator.New(),
		lower:    cases.Lower(language.Und),
	}
}

// List returns the principal's articles. The incoming filter is caller
// input; its author constraint, if any, is overridden by the scope.
func (s *Service) List(ctx context.Context, principal *shared.Principal, incoming store.Filter, populate bool) ([]store.Record, error) {
	scoped, err := rbac.ScopeToOwner(principal, incoming)
	if err != nil {
		return nil, err
	}
	records, err := s.gateway.Find(ctx, "articles", scoped, store.FindOptions{Populate: populate})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		sanitizeRelations(rec)
	}
	return records, nil
}

// Get returns one of the principal's articles by id.
func (s *Service) Get(ctx context.Context, principal *shared.Principal, id int64, populate bool) (store.Record, error) {
	scoped, err := rbac.ScopeToOwner(principal, store.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	rec, err := s.gateway.FindOne(ctx, "articles", scoped, store.FindOptions{Populate: populate})
	if err != nil {
		return nil, err
	}
	sanitizeRelations(rec)
	return rec, nil
}

// Create validates the payload, stores the optional attachment and
// inserts the article. The attachment is written before the row so a
// failed insert leaves no dangling reference.
func (s *Service) Create(ctx context.Context, input CreateInput, image *uploads.Saved) (store.Record, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	data := store.Record{
		"title": input.Title,
		"slug":  s.slugify(input.Title),
	}
	if input.Author.ID != nil {
		data["author"] = *input.Author.ID
	}
	if input.Category.ID != nil {
		data["category"] = *input.Category.ID
	}
	if image != nil {
		upload, err := s.gateway.Create(ctx, "uploads", store.Record{
			"name":      image.Name,
			"stored":    image.Stored,
			"thumbnail": image.Thumbnail,
			"mime":      image.Mime,
			"size":      image.Size,
		})
		if err != nil {
			return nil, err
		}
		data["image"] = upload.Int64("id")
	}

	rec, err := s.gateway.Create(ctx, "articles", data)
	if err != nil {
		return nil, err
	}
	if err := s.populateCreated(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes one of the principal's articles.
func (s *Service) Delete(ctx context.Context, principal *shared.Principal, id int64) error {
	scoped, err := rbac.ScopeToOwner(principal, store.Filter{"id": id})
	if err != nil {
		return err
	}
	count, err := s.gateway.DeleteMany(ctx, "articles", scoped)
	if err != nil {
		return err
	}
	if count == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (s *Service) populateCreated(ctx context.Context, rec store.Record) error {
	full, err := s.gateway.FindOne(ctx, "articles", store.Filter{"id": rec.Int64("id")}, store.FindOptions{Populate: true})
	if err != nil {
		return err
	}
	for k, v := range full {
		rec[k] = v
	}
	sanitizeRelations(rec)
	return nil
}

// slugify lowercases the title and collapses everything that is not a
// letter or digit into single dashes.
func (s *Service) slugify(title string) string {
	lowered := s.lower.String(title)
	var b strings.Builder
	dash := false
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteRune('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// sanitizeRelations strips credential material from populated users.
func sanitizeRelations(rec store.Record) {
	if author := rec.Rel("author"); author != nil {
		rec["author"] = users.Sanitize(author)
	}
}
