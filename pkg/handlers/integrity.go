package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

// IntegrityHandler runs the integrity checks on demand.
type IntegrityHandler struct {
	integrity services.IntegrityService
	logger    *zap.Logger
}

func NewIntegrityHandler(integrity services.IntegrityService, logger *zap.Logger) *IntegrityHandler {
	return &IntegrityHandler{integrity: integrity, logger: logger}
}

func (h *IntegrityHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/integrity/run", authMiddleware.RequireAuth(h.Run))
	mux.HandleFunc("GET /api/integrity/latest", authMiddleware.RequireAuth(h.Latest))
}

// Run handles POST /api/integrity/run. A report that could not be persisted
// still returns the run, with persisted=false.
func (h *IntegrityHandler) Run(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.integrity.RunAndReport(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "run integrity check")
		return
	}
	writeData(w, h.logger, outcome)
}

// Latest handles GET /api/integrity/latest.
func (h *IntegrityHandler) Latest(w http.ResponseWriter, r *http.Request) {
	report, err := h.integrity.Latest(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "load integrity report")
		return
	}
	if report == nil {
		writeError(w, h.logger, http.StatusNotFound, "not_found", "No integrity report yet")
		return
	}
	writeData(w, h.logger, report)
}
