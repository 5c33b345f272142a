package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

// QueryRequest is the POST /api/query body.
type QueryRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
	// Validate defaults to true when omitted.
	Validate *bool `json:"validate,omitempty"`
	Persist  bool  `json:"persist,omitempty"`
}

// QueryHandler runs natural-language questions through the query pipeline.
type QueryHandler struct {
	orchestrator services.QueryOrchestrator
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(orchestrator services.QueryOrchestrator, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		orchestrator: orchestrator,
		validate:     validator.New(),
		logger:       logger,
	}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/query", authMiddleware.RequireAuth(h.Query))
}

// Query handles POST /api/query. Pipeline failures are part of the result,
// so any processed question answers 200 with its terminal status.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", questionError(err))
		return
	}

	validate := true
	if req.Validate != nil {
		validate = *req.Validate
	}
	result := h.orchestrator.Process(r.Context(), models.QueryRequest{
		Text:        req.Text,
		Validate:    validate,
		Persist:     req.Persist,
		RequestedBy: auth.GetUserIDFromContext(r.Context()),
	})
	writeData(w, h.logger, result)
}

func questionError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "max" {
				return "Question is too long"
			}
		}
	}
	return "Question text is required"
}
