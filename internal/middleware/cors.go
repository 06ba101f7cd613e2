// Package middleware provides HTTP middleware for the progression API.
package middleware

import "net/http"

// CORS returns middleware scoped to the configured frontend origin. With
// no frontend URL (local development) any origin is echoed back without
// credentials; a configured origin gets an exact match with credentials,
// which the anonymous session cookie needs.
func CORS(frontendURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case origin == "":
				// Same-origin or non-browser request, nothing to negotiate.
			case frontendURL == "":
				w.Header().Set("Access-Control-Allow-Origin", origin)
				setCORSHeaders(w)
			case origin == frontendURL:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				// Credentials only for the exact configured origin; pairing
				// them with an echoed wildcard origin enables CSRF.
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				setCORSHeaders(w)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Vary", "Origin")
}
