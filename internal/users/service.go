// Package users manages user accounts over the query gateway.
package users

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/rbac"
	"github.com/pressroom-cms/pressroom/internal/store"
)

// NewUserInput describes a user to be created. Zero-value fields fall
// back to the service defaults.
type NewUserInput struct {
	Username  string `validate:"required"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required"`
	Provider  string
	Confirmed bool
	RoleID    int64
}

// Service wraps user persistence rules.
type Service struct {
	gateway  store.Gateway
	validate *validator.Validate
}

// NewService constructs a user service.
func NewService(gateway store.Gateway) *Service {
	return &Service{gateway: gateway, validate: validator.New()}
}

// Create hashes the password and stores the user. New users default to
// the authenticated role unless the input names another one.
func (s *Service) Create(ctx context.Context, input NewUserInput) (store.Record, error) {
	if input.Provider == "" {
		input.Provider = "local"
	}
	if input.RoleID == 0 {
		input.RoleID = rbac.RoleAuthenticated
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.gateway.Create(ctx, "users", store.Record{
		"username":  input.Username,
		"email":     input.Email,
		"password":  string(hash),
		"provider":  input.Provider,
		"confirmed": input.Confirmed,
		"role":      input.RoleID,
	})
	if err != nil {
		return nil, err
	}
	return Sanitize(user), nil
}

// List returns all users without credential material.
func (s *Service) List(ctx context.Context) ([]store.Record, error) {
	records, err := s.gateway.Find(ctx, "users", nil, store.FindOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]store.Record, len(records))
	for i, rec := range records {
		out[i] = Sanitize(rec)
	}
	return out, nil
}

// Sanitize strips credential material from a user record.
func Sanitize(user store.Record) store.Record {
	if user == nil {
		return nil
	}
	clean := make(store.Record, len(user))
	for k, v := range user {
		if k == "password" {
			continue
		}
		clean[k] = v
	}
	return clean
}
