package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/anonrelay/internal/server/auth"
)

type ctxKey string

const clientIDKey ctxKey = "clientID"

// authMiddleware verifies the Bearer service token on every API call and
// stores the calling adapter's id in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		clientID, err := auth.GetClientIDFromToken(strings.TrimPrefix(header, "Bearer "), []byte(s.config.SecretKey))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), clientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIDFromContext returns the authenticated adapter id, if any.
func ClientIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientIDKey).(string); ok {
		return v
	}
	return ""
}
