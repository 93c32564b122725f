package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

const identityKey contextKey = "identity"

// Identity is the authenticated principal for owner-facing routes.
type Identity struct {
	UserID string
	Email  string
}

// IdentityProvider verifies a bearer token and resolves its principal.
// Implementations must treat verification failures as ordinary errors;
// the middleware collapses them all into one 401 response.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Auth returns middleware that authenticates owner-facing requests via
// the Authorization header. Public routes (ingestion, shared stats) do
// not pass through it.
func Auth(provider IdentityProvider, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			identity, err := provider.Verify(r.Context(), token)
			if err != nil || identity == nil {
				logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// ContextWithIdentity injects the authenticated identity.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the authenticated identity from context.
// Returns nil on public routes.
func GetIdentity(ctx context.Context) *Identity {
	if identity, ok := ctx.Value(identityKey).(*Identity); ok {
		return identity
	}
	return nil
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Authentication required."}}`))
}
