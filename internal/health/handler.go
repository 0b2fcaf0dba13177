package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Handler reports process liveness
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Check is a named readiness check
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Ready returns a handler that runs every check with a short timeout and
// answers 503 if any fails.
func Ready(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				results[check.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[check.Name] = "ok"
		}

		body := map[string]interface{}{"status": "ok", "checks": results}
		if status != http.StatusOK {
			body["status"] = "unavailable"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
