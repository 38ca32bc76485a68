package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/zingsocial/social-core/internal/core/ports"
)

// Clé privée pour le contexte (évite les collisions)
type contextKey struct{ name string }

var userCtxKey = &contextKey{"user_id"}

// AuthMiddleware décode le header Authorization et valide le token.
// Sans header, la requête passe (endpoints publics) ; les handlers
// protégés exigent l'UID via RequireUser.
func AuthMiddleware(verifier ports.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token format")
				return
			}

			uid, err := verifier.Validate(tokenStr)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userCtxKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ForContext récupère l'UID injecté par le middleware ("" si anonyme).
func ForContext(ctx context.Context) string {
	raw, _ := ctx.Value(userCtxKey).(string)
	return raw
}

// RequireUser renvoie l'UID ou écrit un 401 et signale l'arrêt.
func RequireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := ForContext(r.Context())
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return "", false
	}
	return uid, true
}
