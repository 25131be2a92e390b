package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/contactkeeper/backend/internal/errors"
	"github.com/contactkeeper/backend/internal/metrics"
)

// TokenHeader carries the bearer token on protected routes.
const TokenHeader = "X-Auth-Token"

type contextKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity placed by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// TokenFromRequest reads the x-auth-token header, falling back to an
// Authorization bearer token.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Middleware rejects requests without a valid token and passes the caller's
// Identity to next.
func Middleware(svc *Service, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := apperrors.GetRequestID(r.Context())

			id, err := svc.Authenticate(TokenFromRequest(r))
			if err != nil {
				m.IncCounter(metrics.TokensRejected)
				if err == ErrNoToken {
					apperrors.WriteError(w, requestID, apperrors.NoToken())
					return
				}
				apperrors.WriteError(w, requestID, apperrors.InvalidToken())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
