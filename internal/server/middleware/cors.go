package middleware

import (
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"
)

// CORSConfig controls the origin allow-list applied to the public API.
type CORSConfig struct {
	// AllowedOrigins lists the site origins permitted to call the API. The
	// first entry doubles as the default echoed to unknown callers in
	// permissive mode.
	AllowedOrigins []string

	// Strict rejects mismatched origins with 403 instead of substituting
	// the default origin.
	Strict bool
}

// Allowed reports whether the given origin (or referrer) matches the list.
func (c CORSConfig) Allowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed != "" && strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// CORS applies the origin allow-list, answers preflight requests, and in
// strict mode rejects callers whose origin is not on the list. Vary: Origin
// is always set so caches key on the caller.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}

			allowed := cfg.Allowed(origin)
			switch {
			case allowed:
				w.Header().Set("Access-Control-Allow-Origin", origin)
			case len(cfg.AllowedOrigins) > 0:
				w.Header().Set("Access-Control-Allow-Origin", cfg.AllowedOrigins[0])
			}
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Session-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if cfg.Strict && !allowed {
				envelope := errors.NewErrorEnvelope("FORBIDDEN", "origin not allowed").
					WithCorrelationID(GetRequestID(r.Context()))
				writeErrorResponse(w, envelope, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
