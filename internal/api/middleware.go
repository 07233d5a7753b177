/**
 * @description
 * Authentication middleware for the credit-service. All traffic comes from the
 * chat gateway over a private network, authenticated with a shared internal key.
 */
package api

import "net/http"

// InternalAuthMiddleware validates the internal API key for server-to-server
// calls. An empty requiredKey disables the check (local development only; main
// refuses to start without a key).
func InternalAuthMiddleware(requiredKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiredKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Internal-API-Key")
			if provided == "" || provided != requiredKey {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
