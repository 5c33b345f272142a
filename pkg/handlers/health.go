package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthHandler handles liveness, ping and system status endpoints.
type HealthHandler struct {
	cfg    *config.Config
	health services.HealthService
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. health may be nil, in which
// case /api/status is not registered.
func NewHealthHandler(cfg *config.Config, health services.HealthService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, health: health, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
// None of them require authentication.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
	if h.health != nil {
		mux.HandleFunc("GET /api/status", h.Status)
	}
}

// Health handles GET /health for load balancer probes.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ia-dental",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}

// Status handles GET /api/status. A degraded system answers 503 with the
// same body so probes can act on the code alone.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.health.Status(r.Context())

	code := http.StatusOK
	if status.Status != services.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	if err := WriteJSON(w, code, status); err != nil {
		h.logger.Error("Failed to encode status response", zap.Error(err))
	}
}
