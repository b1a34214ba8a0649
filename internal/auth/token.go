package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenService signs and verifies bearer tokens with a symmetric key.
type TokenService struct {
	key    jwk.Key
	issuer string
	ttl    time.Duration
}

// NewTokenService builds a TokenService from the shared secret.
func NewTokenService(secret []byte, issuer string, ttl time.Duration) (*TokenService, error) {
	key, err := jwk.Import(secret)
	if err != nil {
		return nil, fmt.Errorf("auth: import key: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.HS256()); err != nil {
		return nil, err
	}
	return &TokenService{key: key, issuer: issuer, ttl: ttl}, nil
}

// IssueForID signs a token whose subject is the user id.
func (t *TokenService) IssueForID(ctx context.Context, id int64) (string, error) {
	return t.issue(ctx, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject(strconv.FormatInt(id, 10))
	})
}

// IssueForEmail signs a token carrying an email claim instead of a
// subject id. The resolver looks the user up by email.
func (t *TokenService) IssueForEmail(ctx context.Context, email string) (string, error) {
	return t.issue(ctx, func(b *jwt.Builder) *jwt.Builder {
		return b.Claim("email", email)
	})
}

func (t *TokenService) issue(_ context.Context, claims func(*jwt.Builder) *jwt.Builder) (string, error) {
	now := time.Now()
	token, err := claims(jwt.NewBuilder().
		Issuer(t.issuer).
		IssuedAt(now).
		Expiration(now.Add(t.ttl))).
		Build()
	if err != nil {
		return "", fmt.Errorf("auth: build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), t.key))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return string(signed), nil
}

// TokenClaims is the subset of claims the resolver needs.
type TokenClaims struct {
	UserID int64
	Email  string
}

// ParseAndValidate verifies the signature and standard claims, then
// extracts the subject id or email claim.
func (t *TokenService) ParseAndValidate(_ context.Context, raw string) (TokenClaims, error) {
	token, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256(), t.key))
	if err != nil {
		return TokenClaims{}, ErrInvalidToken
	}
	if err := jwt.Validate(token, jwt.WithIssuer(t.issuer)); err != nil {
		return TokenClaims{}, ErrInvalidToken
	}

	var claims TokenClaims
	if subject, ok := token.Subject(); ok && subject != "" {
		id, err := strconv.ParseInt(subject, 10, 64)
		if err != nil {
			return TokenClaims{}, ErrInvalidToken
		}
		claims.UserID = id
		return claims, nil
	}
	var email string
	if err := token.Get("email", &email); err != nil || email == "" {
		return TokenClaims{}, ErrInvalidToken
	}
	claims.Email = email
	return claims, nil
}
