package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDKey contextKey = "user_id"

// anonymousUser identifies requests when authentication is disabled.
const anonymousUser = "anonymous"

// Authenticator validates HS256 bearer tokens and resolves the caller's user
// ID from the token's subject claim.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator with the given signing secret.
func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// Authenticate extracts and validates the bearer token, returning the user
// ID from the subject claim.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("token is missing")
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", fmt.Errorf("authorization header must be a bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("token is invalid: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}

// withAuth wraps a handler with bearer authentication. When the server has
// no authenticator configured, requests proceed as the anonymous user.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := anonymousUser
		if s.auth != nil {
			id, err := s.auth.Authenticate(r)
			if err != nil {
				s.writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			userID = id
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

// userFrom returns the authenticated user ID stored in the request context.
func userFrom(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return anonymousUser
}
