// internal/api/handler/api/jobs.go
package api

import (
	"errors"
	"net/http"

	"github.com/quantkit/helix/internal/api/job"
	"github.com/quantkit/helix/internal/api/response"
	"github.com/quantkit/helix/internal/core"
)

// JobsHandler serves job status lookups.
type JobsHandler struct {
	jobs *job.Store
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs *job.Store) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// Get returns the status of a single job, including the result once the
// job completes.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request, jobID string) {
	j, err := h.jobs.Get(jobID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrJobNotFound) {
			status = http.StatusNotFound
		}
		response.Error(w, status, err)
		return
	}

	response.JSON(w, http.StatusOK, jobPayload(j, true))
}

// List returns summaries of all known jobs, newest first. Results are
// omitted; fetch the individual job for those.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.List()

	summaries := make([]map[string]any, 0, len(jobs))
	for i := range jobs {
		summaries = append(summaries, jobPayload(&jobs[i], false))
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"jobs":  summaries,
		"count": len(summaries),
	})
}

// jobPayload flattens a job into the response shape.
func jobPayload(j *job.Job, includeResult bool) map[string]any {
	payload := map[string]any{
		"job_id":     j.ID,
		"type":       j.Type,
		"status":     j.Status,
		"progress":   j.Progress,
		"created_at": j.CreatedAt,
		"updated_at": j.UpdatedAt,
	}

	if includeResult && j.Status == job.StatusComplete && j.Result != nil {
		payload["result"] = j.Result
	}

	if j.Status == job.StatusFailed && j.Error != nil {
		payload["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}

	return payload
}
