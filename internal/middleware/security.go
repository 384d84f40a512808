// security.go — Security headers and CORS for the HTTP surfaces.
package middleware

import (
	"net/http"
	"os"
	"strings"
)

// SecurityHeaders sets conservative browser protections on every response.
// The gateway serves JSON only, so a deny-all CSP is safe.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigins returns the CORS allowlist. SUISTREAM_ALLOWED_ORIGINS is a
// comma-separated list; in non-production environments localhost dev servers
// are allowed as well.
func allowedOrigins() map[string]bool {
	origins := map[string]bool{}
	for _, o := range strings.Split(os.Getenv("SUISTREAM_ALLOWED_ORIGINS"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins[o] = true
		}
	}
	if os.Getenv("SUISTREAM_ENV") != "production" {
		origins["http://localhost:3000"] = true
		origins["http://localhost:5173"] = true
		origins["http://127.0.0.1:3000"] = true
	}
	return origins
}

// CORS handles cross-origin requests from the streaming frontend. Only
// origins on the allowlist get CORS headers; others are served without them
// and the browser enforces the block.
func CORS(next http.Handler) http.Handler {
	allowed := allowedOrigins()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowed[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
