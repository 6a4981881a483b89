// Package auth verifies access tokens issued by the hosted auth provider and
// carries the resulting user through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoToken      = errors.New("no access token")
	ErrInvalidToken = errors.New("invalid access token")
)

// User is the authenticated caller.
type User struct {
	ID    uuid.UUID
	Email string
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with the provider's JWT secret.
type Verifier struct {
	secret     []byte
	cookieName string
}

func NewVerifier(secret, cookieName string) *Verifier {
	return &Verifier{secret: []byte(secret), cookieName: cookieName}
}

// Verify parses the token and returns the user named by its subject.
func (v *Verifier) Verify(token string) (User, error) {
	if len(v.secret) == 0 {
		return User{}, fmt.Errorf("%w: verifier has no secret", ErrInvalidToken)
	}

	var c claims

	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return User{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return User{ID: id, Email: c.Email}, nil
}

// FromRequest reads the token from the Authorization header, falling back to
// the session cookie.
func (v *Verifier) FromRequest(r *http.Request) (User, error) {
	token := bearer(r)

	if token == "" && v.cookieName != "" {
		if ck, err := r.Cookie(v.cookieName); err == nil {
			token = ck.Value
		}
	}

	if token == "" {
		return User{}, ErrNoToken
	}

	return v.Verify(token)
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")

	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}
