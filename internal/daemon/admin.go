// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/playerbridge/internal/health"
	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// HeaderCorrelationID carries the request correlation id.
const HeaderCorrelationID = "X-Correlation-ID"

// AdminOptions configures the admin HTTP handler.
type AdminOptions struct {
	Health       *health.Manager
	Metrics      http.Handler // defaults to promhttp.Handler()
	ServiceName  string
	RequestLimit int           // per client IP and window, defaults to 120
	Window       time.Duration // defaults to one minute
}

// NewAdminHandler returns the admin router: /healthz, /readyz and /metrics.
func NewAdminHandler(opts AdminOptions) http.Handler {
	if opts.Health == nil {
		opts.Health = health.NewManager("")
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "playerbridge-admin"
	}
	if opts.RequestLimit <= 0 {
		opts.RequestLimit = 120
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}

	r := chi.NewRouter()
	r.Use(correlationID)
	r.Use(otelHTTP(opts.ServiceName))
	r.Use(rateLimit(opts.RequestLimit, opts.Window))

	r.Get("/healthz", opts.Health.ServeHealth)
	r.Get("/readyz", opts.Health.ServeReady)
	r.Method(http.MethodGet, "/metrics", opts.Metrics)
	return r
}

// correlationID propagates or assigns a correlation id per request.
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, id)
		next.ServeHTTP(w, r.WithContext(log.ContextWithCorrelationID(r.Context(), id)))
	})
}

// rateLimit limits requests per client IP using a sliding window.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`))
		}),
	)
}

// otelHTTP traces admin requests. Probe and scrape endpoints are skipped.
func otelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return operation + " " + r.Method + " " + r.URL.Path
			}),
		)
	}
}

func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}
