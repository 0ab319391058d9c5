// ABOUTME: CORS middleware with a configurable origin allowlist
// ABOUTME: Applies to the health endpoint and the websocket upgrade request

package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	set := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		set[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (len(set) == 0 || set[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
