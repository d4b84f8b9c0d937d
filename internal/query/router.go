package query

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"permanode/internal/api/middleware"
	"permanode/internal/circuitbreaker"
)

// Router wires the façade's middleware stack and route table around a
// shared Deps, grounded on the teacher's internal/api.Router — same
// layered setupMiddleware/setupRoutes shape, generalized from its
// MCP-memory/task routes to the permanode HTTP surface (spec.md §6).
type Router struct {
	deps    *Deps
	mux     *chi.Mux
	timeout time.Duration
}

// NewRouter builds the façade's router. enableCircuitBreaker mirrors the
// teacher's conditional breaker wiring: on by default, disabled for local
// development against a single backing keyspace.
func NewRouter(deps *Deps, timeout time.Duration, enableCircuitBreaker bool) *Router {
	rt := &Router{deps: deps, mux: chi.NewRouter(), timeout: timeout}
	rt.setupMiddleware(enableCircuitBreaker)
	rt.setupRoutes()
	return rt
}

func (rt *Router) setupMiddleware(enableCircuitBreaker bool) {
	rt.mux.Use(chimiddleware.Recoverer)
	rt.mux.Use(rt.timeoutMiddleware)
	rt.mux.Use(middleware.NewLoggingMiddleware().Handler())
	rt.mux.Use(middleware.NewCORSMiddleware().Handler())
	rt.mux.Use(middleware.NewMetricsMiddleware().Handler())
	if enableCircuitBreaker {
		rt.mux.Use(middleware.NewCircuitBreakerMiddleware(circuitbreaker.DefaultConfig()).Handler())
	}
}

// timeoutMiddleware bounds every request to rt.timeout, per spec.md §5's
// per-endpoint request timeout (default 5s).
func (rt *Router) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), rt.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// setupRoutes mounts the documented surface under /api (spec.md §6: "prefix
// /api"). /metrics sits outside it, following the teacher's own convention
// of exposing prometheus scraping at the bare root rather than behind an
// API version prefix.
func (rt *Router) setupRoutes() {
	d := rt.deps

	rt.mux.Get("/metrics", promhttp.Handler().ServeHTTP)

	rt.mux.Route("/api", func(api chi.Router) {
		api.Get("/service", d.HandleService)

		api.Route("/{ks}", func(r chi.Router) {
			r.Get("/info", d.HandleInfo)
			r.Get("/sync", d.HandleSync)
			r.Get("/analytics", d.HandleAnalytics)

			r.Get("/messages", d.HandleMessagesByIndex)
			r.Get("/messages/{mid}", d.HandleMessage)
			r.Get("/messages/{mid}/metadata", d.HandleMessageMetadata)
			r.Get("/messages/{mid}/children", d.HandleMessageChildren)

			r.Get("/addresses/ed25519/{addr}/outputs", d.HandleAddressOutputs)

			r.Get("/outputs/{oid}", d.HandleOutput)
			r.Get("/outputs/{txid}/{idx}", d.HandleOutputByTransaction)

			r.Get("/transactions/ed25519/{addr}", d.HandleTransactionsForAddress)
			r.Get("/transactions/{mid}", d.HandleTransactionForMessage)
			r.Get("/transactions/{txid}/included-message", d.HandleTransactionIncludedMessage)

			r.Get("/milestones/{idx}", d.HandleMilestone)
		})
	})

	rt.mux.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rt.mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, notFoundErr(r.URL.Path))
	})
}

// Handler returns the root http.Handler for the façade.
func (rt *Router) Handler() http.Handler {
	return rt.mux
}
