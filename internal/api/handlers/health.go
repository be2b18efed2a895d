package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// ProviderHealth reports failing language model providers by name.
type ProviderHealth interface {
	HealthCheck(ctx context.Context) map[string]error
	Names() []string
}

type HealthHandler struct {
	checks    map[string]Check
	providers ProviderHealth
	timeout   time.Duration
}

func NewHealthHandler(checks map[string]Check, providers ProviderHealth) *HealthHandler {
	return &HealthHandler{checks: checks, providers: providers, timeout: 2 * time.Second}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health. It runs only local checks (database, cache).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Providers handles GET /health/providers, probing every registered model
// provider. Always 200: one provider down does not make the service unhealthy.
func (h *HealthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	if h.providers == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*h.timeout)
	defer cancel()

	failures := h.providers.HealthCheck(ctx)
	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	for _, name := range h.providers.Names() {
		if err, bad := failures[name]; bad {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}
