package middleware

import "net/http"

// CORSMiddleware applies spec.md §6's unconditional CORS policy: every
// response, including preflight, allows any origin. Unlike the teacher's
// allowlist-based CORSMiddleware, this permanode API has no notion of a
// trusted origin set, so the policy is a fixed wildcard rather than
// configuration-driven.
type CORSMiddleware struct{}

// NewCORSMiddleware builds the CORS middleware. There is no configuration:
// the header set is fixed per spec.md §6.
func NewCORSMiddleware() *CORSMiddleware {
	return &CORSMiddleware{}
}

// Handler returns the CORS middleware handler.
func (c *CORSMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.setHeaders(w)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (c *CORSMiddleware) setHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Access-Control-Allow-Credentials", "true")
}
