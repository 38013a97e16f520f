package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// apiKeyParam is the query parameter geocoder clients use for keys.
const apiKeyParam = "api_key"

// exemptPaths are routes that bypass authentication.
var exemptPaths = map[string]struct{}{
	"/health":       {},
	"/metrics":      {},
	"/core/v1/info": {},
}

// BearerAuthMiddleware returns a middleware that validates a Bearer token or,
// for clients that cannot set headers, an api_key query parameter.
// If apiKeys is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make([]string, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys = append(validKeys, k)
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, msg := credential(r)
			if msg != "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, msg)
				return
			}
			if !known(validKeys, token) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// credential extracts the presented key, or a message describing why none was found.
func credential(r *http.Request) (string, string) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		if key := r.URL.Query().Get(apiKeyParam); key != "" {
			return key, ""
		}
		return "", "missing authorization header"
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", "authorization header must use Bearer scheme"
	}
	return auth[len(bearerPrefix):], ""
}

func known(keys []string, token string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(token)) == 1 {
			return true
		}
	}
	return false
}
