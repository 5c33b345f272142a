package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

const defaultReportLimit = 50

var reportKinds = map[string]bool{
	models.ReportKindIntegrity: true,
	models.ReportKindAnalytics: true,
	models.ReportKindMonthly:   true,
	models.ReportKindQuery:     true,
}

// ListReportsResponse wraps a report listing.
type ListReportsResponse struct {
	Reports []*models.Report `json:"reports"`
	Count   int              `json:"count"`
}

// ReportsHandler serves stored reports.
type ReportsHandler struct {
	reports services.ReportService
	logger  *zap.Logger
}

func NewReportsHandler(reports services.ReportService, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{reports: reports, logger: logger}
}

func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/reports", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/reports/{id}", authMiddleware.RequireAuth(h.Get))
}

// List handles GET /api/reports[?kind=&limit=], newest first.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !reportKinds[kind] {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Unknown report kind %q", kind))
		return
	}
	limit, err := queryInt(r, "limit", defaultReportLimit, maxListLimit)
	if err != nil {
		writeServiceError(w, h.logger, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err), "list reports")
		return
	}

	reports, err := h.reports.List(r.Context(), models.ReportFilter{Kind: kind, Limit: limit})
	if err != nil {
		writeServiceError(w, h.logger, err, "list reports")
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	writeData(w, h.logger, ListReportsResponse{Reports: reports, Count: len(reports)})
}

// Get handles GET /api/reports/{id}.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseReportID(w, r, h.logger)
	if !ok {
		return
	}
	report, err := h.reports.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "load report")
		return
	}
	writeData(w, h.logger, report)
}
