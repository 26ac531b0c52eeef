package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lessonforge/videogen/internal/core"
	"github.com/lessonforge/videogen/internal/data"
	"github.com/lessonforge/videogen/internal/domain/model"
)

// JobHandlers serves job submission and status polling.
type JobHandlers struct {
	Scheduler *core.JobScheduler
	Store     core.JobStore
	Logger    *slog.Logger
}

type generateResponse struct {
	JobID string `json:"job_id"`
}

type statusResponse struct {
	JobID        string   `json:"job_id"`
	Status       string   `json:"status"`
	Logs         []string `json:"logs"`
	AttemptCount int      `json:"attempt_count"`
	Result       *string  `json:"result,omitempty"`
	Error        *string  `json:"error,omitempty"`
}

// Generate handles POST /api/generate. The job is accepted and processed in
// the background; the response carries only the identifier to poll with.
func (h *JobHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	var sub model.Submission
	if !DecodeJSON(w, r, &sub) {
		return
	}

	jobID, err := h.Scheduler.Submit(r.Context(), sub)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_submission", Err: err})
		return
	}

	WriteJSON(w, http.StatusAccepted, generateResponse{JobID: jobID})
}

// Status handles GET /api/status/{job_id}.
func (h *JobHandlers) Status(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	job, err := h.Store.Get(r.Context(), jobID)
	if errors.Is(err, data.ErrJobNotFound) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
		return
	}
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "load job status", "job_id", jobID, "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: errors.New("failed to load job")})
		return
	}

	WriteJSON(w, http.StatusOK, statusResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		Logs:         job.LogMessages(),
		AttemptCount: job.AttemptCount,
		Result:       job.Result,
		Error:        job.ErrorSummary,
	})
}
