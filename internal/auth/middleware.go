package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vidspark/vidspark/internal/models"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	unauthorizedMessage = "Unauthorized"
	invalidTokenMessage = "Invalid token"
)

type contextKey string

const identityContextKey contextKey = "identity"

// TokenVerifier resolves a bearer token to an identity. Satisfied by
// *JWTVerifier; tests substitute a stub.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*models.Identity, error)
}

type Middleware struct {
	verifier TokenVerifier
}

func NewMiddleware(verifier TokenVerifier) *Middleware {
	return &Middleware{verifier: verifier}
}

func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(authorizationHeader)
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			http.Error(w, unauthorizedMessage, http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		identity, err := m.verifier.VerifyToken(tokenString)
		if err != nil {
			http.Error(w, invalidTokenMessage, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetIdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*models.Identity)
	return identity, ok
}

// WithIdentity returns a context carrying the given identity. Used by
// tests to exercise handlers without the middleware chain.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
