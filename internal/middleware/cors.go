package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowedMethods = "GET, OPTIONS"
	corsAllowedHeaders = "Content-Type, X-Request-ID"
	corsExposedHeaders = "X-Request-ID"
)

// CORS attaches cross-origin headers. An empty allow-list admits every origin.
func CORS(allowed map[string]struct{}) func(http.Handler) http.Handler {
	permits := func(origin string) bool {
		if len(allowed) == 0 {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))

			if r.Method == http.MethodOptions && strings.TrimSpace(r.Header.Get("Access-Control-Request-Method")) != "" {
				if origin == "" || !permits(origin) {
					http.Error(w, "cors preflight not allowed", http.StatusForbidden)
					return
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if origin != "" && permits(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Expose-Headers", corsExposedHeaders)
			}

			next.ServeHTTP(w, r)
		})
	}
}
