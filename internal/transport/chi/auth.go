package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const apiKeyHeader = "X-API-Key"

// Probes and scrapes stay open when keys are configured.
var openRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// APIKeyAuth admits requests carrying one of keys, either as a Bearer token
// or in X-API-Key. Blank keys (an unset ${PATSIM_API_KEY}) are ignored; with
// no keys left the middleware is a pass-through.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	var allowed [][]byte
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed = append(allowed, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(allowed) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if openRoutes[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key, code, msg := presentedKey(r)
			if code == "" && !knownKey(allowed, key) {
				code, msg = ErrorResponseCodeInvalidAPIKey, "unknown api key"
			}
			if code != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="patsim"`)
				writeError(w, http.StatusUnauthorized, code, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// presentedKey extracts the caller's key. X-API-Key wins over Authorization.
func presentedKey(r *http.Request) (string, ErrorResponseCode, string) {
	if k := strings.TrimSpace(r.Header.Get(apiKeyHeader)); k != "" {
		return k, "", ""
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", ErrorResponseCodeMissingAPIKey, "api key required (Authorization: Bearer or X-API-Key)"
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrorResponseCodeInvalidAPIKey, "authorization scheme must be Bearer"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrorResponseCodeMissingAPIKey, "empty bearer token"
	}
	return token, "", ""
}

func knownKey(allowed [][]byte, key string) bool {
	found := 0
	for _, k := range allowed {
		found |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	return found == 1
}
