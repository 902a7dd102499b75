package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ilm2/server/internal/auth"
)

type contextKey string

const claimsKey contextKey = "session_claims"

// SessionCookie is the cookie the frontend stores the session token in.
const SessionCookie = "auth-token"

// RequireSession verifies the session token from the Authorization header or
// the auth-token cookie and attaches the claims to the request context. The
// token is self-contained; no database lookup is needed.
func RequireSession(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				respondWithError(w, http.StatusUnauthorized, "missing token")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the session claims attached by RequireSession.
func GetClaims(ctx context.Context) (*auth.SessionClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.SessionClaims)
	return c, ok
}

// TokenFromRequest extracts the session token from "Authorization: Bearer"
// or, failing that, from the raw Cookie header.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	return TokenFromCookieHeader(r.Header.Get("Cookie"))
}

// TokenFromCookieHeader parses a raw Cookie header by splitting on ';' and
// '=' and returns the auth-token value, or "".
func TokenFromCookieHeader(header string) string {
	for _, part := range strings.Split(header, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] == SessionCookie {
			return kv[1]
		}
	}
	return ""
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
