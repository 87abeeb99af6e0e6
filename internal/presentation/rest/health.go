package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	pkgpostgres "github.com/bibbank/debitcard/pkg/postgres"
)

const serviceName = "debitcard-service"

// CircuitBreaker is the view of a remote-service breaker shown on readiness.
type CircuitBreaker interface {
	Name() string
	State() string
}

// HealthHandler provides HTTP health check endpoints for the debit card service.
type HealthHandler struct {
	db       pkgpostgres.Pinger
	breakers []CircuitBreaker
	logger   *slog.Logger
	timeout  time.Duration
}

// NewHealthHandler creates a new HealthHandler. Readiness pings db and
// reports the state of each breaker.
func NewHealthHandler(db pkgpostgres.Pinger, logger *slog.Logger, breakers ...CircuitBreaker) *HealthHandler {
	return &HealthHandler{
		db:       db,
		breakers: breakers,
		logger:   logger,
		timeout:  2 * time.Second,
	}
}

// healthResponse represents the health check response body.
type healthResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Error    string            `json:"error,omitempty"`
	Circuits map[string]string `json:"circuits,omitempty"`
}

// RegisterRoutes registers the health check routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)
}

// Health is the liveness probe endpoint.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, healthResponse{Status: "UP", Service: serviceName})
}

// Ready is the readiness probe endpoint. It fails while the database is
// unreachable. Open breakers are reported but do not fail readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := pkgpostgres.HealthCheck(ctx, h.db); err != nil {
		h.logger.Warn("readiness check failed", slog.String("error", err.Error()))
		h.write(w, http.StatusServiceUnavailable, healthResponse{
			Status:   "NOT_READY",
			Service:  serviceName,
			Error:    "database unavailable",
			Circuits: h.circuits(),
		})
		return
	}

	h.write(w, http.StatusOK, healthResponse{Status: "READY", Service: serviceName, Circuits: h.circuits()})
}

func (h *HealthHandler) circuits() map[string]string {
	if len(h.breakers) == 0 {
		return nil
	}
	out := make(map[string]string, len(h.breakers))
	for _, b := range h.breakers {
		out[b.Name()] = b.State()
	}
	return out
}

func (h *HealthHandler) write(w http.ResponseWriter, code int, resp healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode health response", slog.String("error", err.Error()))
	}
}
