package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// JobScheduler is the part of the scheduler the jobs endpoints need.
// *scheduler.Scheduler satisfies it.
type JobScheduler interface {
	Jobs() []models.ScheduledJob
	RunNow(ctx context.Context, jobID string) error
}

// RunJobResponse reports a manual job run.
type RunJobResponse struct {
	JobID      string `json:"job_id"`
	DurationMs int64  `json:"duration_ms"`
}

// JobsHandler lists scheduled jobs and triggers them manually.
type JobsHandler struct {
	scheduler JobScheduler
	logger    *zap.Logger
}

func NewJobsHandler(scheduler JobScheduler, logger *zap.Logger) *JobsHandler {
	return &JobsHandler{scheduler: scheduler, logger: logger}
}

func (h *JobsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/jobs", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/jobs/{id}/run", authMiddleware.RequireAuth(h.Run))
}

// List handles GET /api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.logger, h.scheduler.Jobs())
}

// Run handles POST /api/jobs/{id}/run. The job runs synchronously; the
// response is sent when it finishes.
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	started := time.Now()

	h.logger.Info("Manual job run requested",
		zap.String("job_id", jobID),
		zap.String("user_id", auth.GetUserIDFromContext(r.Context())))

	if err := h.scheduler.RunNow(r.Context(), jobID); err != nil {
		writeServiceError(w, h.logger, err, "run job "+jobID)
		return
	}
	writeData(w, h.logger, RunJobResponse{
		JobID:      jobID,
		DurationMs: time.Since(started).Milliseconds(),
	})
}
