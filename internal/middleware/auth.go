package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/models"
)

// Authenticator resolves a bearer token. services.AuthGateway implements it.
type Authenticator interface {
	Authenticate(token string) (models.TokenPayload, error)
}

type payloadKey struct{}

func WithPayload(ctx context.Context, p models.TokenPayload) context.Context {
	return context.WithValue(ctx, payloadKey{}, p)
}

// PayloadFrom returns the identity attached by RequireAuth or OptionalAuth.
func PayloadFrom(ctx context.Context) (models.TokenPayload, bool) {
	p, ok := ctx.Value(payloadKey{}).(models.TokenPayload)
	return p, ok
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireAuth rejects requests without a valid bearer token: 401 when it is
// missing, 403 when it does not verify.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, err := auth.Authenticate(BearerToken(r))
			if err != nil {
				writeError(w, apperr.HTTPStatus(err), apperr.PublicMessage(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPayload(r.Context(), payload)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := BearerToken(r); token != "" {
				if payload, err := auth.Authenticate(token); err == nil {
					r = r.WithContext(WithPayload(r.Context(), payload))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
