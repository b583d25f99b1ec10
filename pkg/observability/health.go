package observability

import (
	"net/http"
)

// HealthHandler returns an [http.Handler] for liveness checks at /healthz.
// It always returns HTTP 200 with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)

		_, _ = rw.Write([]byte(`{"status":"ok"}`))
	})
}

// NewMetricsMux serves metrics at /metrics and liveness at /healthz, with a
// server span per request.
func NewMetricsMux(p Providers) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler())

	if p.MetricsHandler != nil {
		mux.Handle("/metrics", p.MetricsHandler)
	}

	return HTTPMiddleware(p.Tracer, mux)
}
