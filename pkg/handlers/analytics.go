package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/apperrors"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

const maxListLimit = 1000

// AnalyticsHandler exposes churn, LTV and ROI scoring.
type AnalyticsHandler struct {
	analytics services.AnalyticsService
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics services.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// RegisterRoutes registers the analytics routes on the given mux.
func (h *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/analytics"

	mux.HandleFunc("GET "+base+"/churn", authMiddleware.RequireAuth(h.Churn))
	mux.HandleFunc("GET "+base+"/churn/report", authMiddleware.RequireAuth(h.ChurnReport))

	mux.HandleFunc("GET "+base+"/ltv", authMiddleware.RequireAuth(h.LTV))
	mux.HandleFunc("GET "+base+"/ltv/top", authMiddleware.RequireAuth(h.TopLTV))
	mux.HandleFunc("GET "+base+"/ltv/cohorts", authMiddleware.RequireAuth(h.Cohorts))
	mux.HandleFunc("GET "+base+"/ltv/report", authMiddleware.RequireAuth(h.LTVReport))

	mux.HandleFunc("GET "+base+"/roi", authMiddleware.RequireAuth(h.ROI))
	mux.HandleFunc("GET "+base+"/roi/top", authMiddleware.RequireAuth(h.TopROI))
	mux.HandleFunc("GET "+base+"/roi/low-performers", authMiddleware.RequireAuth(h.LowPerformers))
	mux.HandleFunc("GET "+base+"/roi/report", authMiddleware.RequireAuth(h.ROIReport))

	mux.HandleFunc("GET "+base+"/dashboard", authMiddleware.RequireAuth(h.Dashboard))
}

// Churn handles GET /api/analytics/churn[?risk_level=].
func (h *AnalyticsHandler) Churn(w http.ResponseWriter, r *http.Request) {
	scores, err := h.analytics.ChurnRisk(r.Context(), r.URL.Query().Get("risk_level"))
	h.respond(w, scores, err, "score churn risk")
}

func (h *AnalyticsHandler) ChurnReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.ChurnReport(r.Context())
	h.respond(w, report, err, "build churn report")
}

// LTV handles GET /api/analytics/ltv[?limit=].
func (h *AnalyticsHandler) LTV(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r, services.DefaultListLimit)
	if !ok {
		return
	}
	values, err := h.analytics.LTV(r.Context(), limit)
	h.respond(w, values, err, "compute lifetime value")
}

func (h *AnalyticsHandler) TopLTV(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r, services.DefaultTopLimit)
	if !ok {
		return
	}
	values, err := h.analytics.TopLTV(r.Context(), limit)
	h.respond(w, values, err, "compute lifetime value")
}

// Cohorts handles GET /api/analytics/ltv/cohorts[?by=month|quarter].
func (h *AnalyticsHandler) Cohorts(w http.ResponseWriter, r *http.Request) {
	cohorts, err := h.analytics.Cohorts(r.Context(), r.URL.Query().Get("by"))
	h.respond(w, cohorts, err, "build cohorts")
}

func (h *AnalyticsHandler) LTVReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.LTVReport(r.Context())
	h.respond(w, report, err, "build lifetime value report")
}

func (h *AnalyticsHandler) ROI(w http.ResponseWriter, r *http.Request) {
	results, err := h.analytics.ROI(r.Context())
	h.respond(w, results, err, "compute treatment ROI")
}

func (h *AnalyticsHandler) TopROI(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r, services.DefaultTopLimit)
	if !ok {
		return
	}
	results, err := h.analytics.TopROI(r.Context(), limit)
	h.respond(w, results, err, "compute treatment ROI")
}

// LowPerformers handles GET /api/analytics/roi/low-performers[?threshold=].
func (h *AnalyticsHandler) LowPerformers(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryFloat(r, "threshold")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	results, err := h.analytics.LowPerformers(r.Context(), threshold)
	h.respond(w, results, err, "compute treatment ROI")
}

func (h *AnalyticsHandler) ROIReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.ROIReport(r.Context())
	h.respond(w, report, err, "build ROI report")
}

// Dashboard handles GET /api/analytics/dashboard.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.analytics.Dashboard(r.Context())
	h.respond(w, dashboard, err, "build dashboard")
}

func (h *AnalyticsHandler) limit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	limit, err := queryInt(r, "limit", def, maxListLimit)
	if err != nil {
		writeServiceError(w, h.logger, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err), "parse limit")
		return 0, false
	}
	return limit, true
}

func (h *AnalyticsHandler) respond(w http.ResponseWriter, data any, err error, action string) {
	if err != nil {
		writeServiceError(w, h.logger, err, action)
		return
	}
	writeData(w, h.logger, data)
}
