package user

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vidspark/vidspark/internal/auth"
	"github.com/vidspark/vidspark/internal/models"
)

type contextKey string

const accountContextKey contextKey = "account"

func GetAccountFromContext(ctx context.Context) (*models.User, bool) {
	account, ok := ctx.Value(accountContextKey).(*models.User)
	return account, ok
}

// Bootstrapper turns an authenticated identity into a stored account.
// Satisfied by *ledger.Service.
type Bootstrapper interface {
	BootstrapAccount(ctx context.Context, identity models.Identity) (*models.User, error)
}

// Middleware ensures every authenticated request runs against an
// existing account record, creating one on first sight of a new
// identity.
func Middleware(bootstrapper Bootstrapper, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.GetIdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: identity not found in context", http.StatusUnauthorized)
				return
			}

			account, err := bootstrapper.BootstrapAccount(r.Context(), *identity)
			if err != nil {
				log.WithError(err).WithField("user_id", identity.ID).Error("Failed to bootstrap account")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithAccount returns a context carrying the given account. Used by
// handler tests.
func WithAccount(ctx context.Context, account *models.User) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}
