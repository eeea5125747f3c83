package httpserver

import (
	"context"
	"net/http"
	"time"
)

// HealthCheckFunc probes a single dependency.
type HealthCheckFunc func(context.Context) error

// HealthcheckHandler aggregates dependency probes into a single endpoint.
// It responds 200 when every probe passes and 503 with the first failure
// otherwise. Each invocation is bounded by a short timeout so a hung
// dependency cannot stall the probe.
func HealthcheckHandler(checks ...HealthCheckFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check(ctx); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
