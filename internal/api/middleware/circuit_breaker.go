package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"permanode/internal/circuitbreaker"
)

// CircuitBreakerMiddleware wraps internal/circuitbreaker around the whole
// request pipeline, tripping on handler errors surfaced as a 5xx response.
type CircuitBreakerMiddleware struct {
	breaker *circuitbreaker.CircuitBreaker
}

// NewCircuitBreakerMiddleware builds the middleware around a fresh breaker.
func NewCircuitBreakerMiddleware(cfg *circuitbreaker.Config) *CircuitBreakerMiddleware {
	return &CircuitBreakerMiddleware{breaker: circuitbreaker.New(cfg)}
}

// Handler returns the circuit breaker middleware handler. Execute's error
// path (open circuit, too many concurrent requests) maps to 503; a handler
// that completes but writes a 5xx status also counts as a breaker failure.
func (m *CircuitBreakerMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapper := &statusCapture{ResponseWriter: w, statusCode: http.StatusOK}

			err := m.breaker.Execute(r.Context(), func(ctx context.Context) error {
				next.ServeHTTP(wrapper, r.WithContext(ctx))
				if wrapper.statusCode >= http.StatusInternalServerError {
					return fmt.Errorf("handler returned status %d", wrapper.statusCode)
				}
				return nil
			})

			if err != nil && (errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyConcurrentRequests)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"kind":    "SERVICE_UNAVAILABLE",
					"message": err.Error(),
				})
			}
		})
	}
}
