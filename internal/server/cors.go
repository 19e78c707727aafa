package server

import (
	"net/http"
	"strings"
)

const (
	corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"
	corsMaxAge       = "600"
)

// allowedOrigin reports whether origin may call the API. "*" allows any.
func (h *HTTPServer) allowedOrigin(origin string) bool {
	return h.origins["*"] || h.origins[origin]
}

// checkOrigin gates websocket upgrades. Requests without an Origin header
// come from non-browser clients and are accepted.
func (h *HTTPServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.allowedOrigin(origin)
}

// withCORS answers preflight requests and adds credentialed CORS headers for
// allowed origins.
func (h *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !h.allowedOrigin(origin) {
			next.ServeHTTP(w, r)
			return
		}

		header := w.Header()
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Add("Vary", "Origin")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			header.Set("Access-Control-Allow-Methods", corsAllowMethods)
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				header.Set("Access-Control-Allow-Headers", strings.TrimSpace(requested))
			}
			header.Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
