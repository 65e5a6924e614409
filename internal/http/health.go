package http

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthProbe checks one dependency. Check must respect ctx.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HealthHandler struct {
	Probes []HealthProbe
}

func (h *HealthHandler) Service(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "booking-service",
	})
}

// Dependencies runs every probe concurrently and answers 503 if any fails.
func (h *HealthHandler) Dependencies(w http.ResponseWriter, r *http.Request) {
	results := make([]HealthResult, len(h.Probes))

	var wg sync.WaitGroup
	wg.Add(len(h.Probes))
	for i := range h.Probes {
		i := i
		go func() {
			defer wg.Done()
			results[i] = runProbe(r.Context(), h.Probes[i])
		}()
	}
	wg.Wait()

	status, code := "ok", http.StatusOK
	for _, res := range results {
		if !res.OK {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":       status,
		"service":      "booking-service",
		"dependencies": results,
	})
}

func runProbe(ctx context.Context, probe HealthProbe) HealthResult {
	// short probe timeout
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := probe.Check(ctx); err != nil {
		return HealthResult{Name: probe.Name, OK: false, Error: err.Error()}
	}
	return HealthResult{Name: probe.Name, OK: true}
}
