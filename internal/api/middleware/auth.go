// Package middleware holds the HTTP middleware used by the api router.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/matiasleandrokruk/newsroom/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	pkgauth "github.com/matiasleandrokruk/newsroom/pkg/auth"
)

// AdminAuth requires a Bearer token carrying the admin role. With a nil
// issuer (no secret configured) requests pass through unchecked.
func AdminAuth(issuer *pkgauth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if issuer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}

			claims, err := issuer.RequireAdmin(token)
			switch {
			case errors.Is(err, pkgauth.ErrForbidden):
				writeJSONError(w, http.StatusForbidden, "admin role required")
				return
			case err != nil:
				logging.Ctx(r.Context()).Debug().Err(err).Msg("rejected token")
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			recordSubject(r.Context(), claims.Subject)
			ctx := ctxkeys.WithValue(r.Context(), ctxkeys.Subject, claims.Subject)
			ctx = ctxkeys.WithValue(ctx, ctxkeys.Role, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>",
// or "" if the header is missing or uses another scheme.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
