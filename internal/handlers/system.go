package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/fightsim/fightsim-api/internal/worker"
)

// InstallDatabase creates the Postgres and ClickHouse schema if missing
// @Summary Install Database Schema
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /system/install [post]
func (h *Handler) InstallDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	names := make([]string, 0, len(h.migrations))
	for name := range h.migrations {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	hasError := false
	for _, name := range names {
		if err := h.migrations[name](ctx); err != nil {
			h.logger.Errorw("Schema installation failed", "db", name, "error", err)
			results[name] = "failed: " + err.Error()
			hasError = true
			continue
		}
		h.logger.Infow("Schema installed", "db", name)
		results[name] = "success"
	}

	statusCode := http.StatusOK
	if hasError {
		statusCode = http.StatusInternalServerError
	}
	h.jsonResponse(w, statusCode, map[string]interface{}{
		"status":  "completed",
		"results": results,
		"error":   hasError,
	})
}

// ReloadModel reloads the classifier artifact from disk
// @Summary Reload Classifier
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /model/reload [post]
func (h *Handler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	previous := h.model.Version()
	if err := h.model.Reload(); err != nil {
		h.logger.Errorw("Classifier reload failed", "error", err, "activeVersion", previous)
		h.jsonResponse(w, http.StatusInternalServerError, map[string]interface{}{
			"error":         "Classifier reload failed: " + err.Error(),
			"model_version": previous,
		})
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message":          "Classifier reloaded",
		"model_version":    h.model.Version(),
		"previous_version": previous,
	})
}

// SchedulerStatus lists scheduled jobs
// @Summary Scheduler Status
// @Tags Scheduler
// @Produce json
// @Success 200 {object} worker.SchedulerStatus
// @Router /scheduler/status [get]
func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.scheduler.Status())
}

// PauseScheduler stops scheduled runs until resumed
// @Summary Pause Scheduler
// @Tags Scheduler
// @Produce json
// @Success 200 {object} map[string]string
// @Router /scheduler/pause [post]
func (h *Handler) PauseScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Pause()
	h.jsonResponse(w, http.StatusOK, map[string]string{"message": "Scheduler paused"})
}

// ResumeScheduler re-enables scheduled runs
// @Summary Resume Scheduler
// @Tags Scheduler
// @Produce json
// @Success 200 {object} map[string]string
// @Router /scheduler/resume [post]
func (h *Handler) ResumeScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Resume()
	h.jsonResponse(w, http.StatusOK, map[string]string{"message": "Scheduler resumed"})
}

// RunSchedulerJob runs one job immediately
// @Summary Run Job Now
// @Tags Scheduler
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Unknown Job"
// @Failure 409 {object} map[string]string "Already Running"
// @Router /scheduler/jobs/{jobId}/run [post]
func (h *Handler) RunSchedulerJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	err := h.scheduler.RunNow(r.Context(), jobID)
	if errors.Is(err, worker.ErrJobNotFound) || errors.Is(err, worker.ErrJobRunning) {
		h.domainError(w, err, "Failed to run job", "job", jobID)
		return
	}
	if err != nil {
		h.logger.Errorw("Scheduled job failed", "job", jobID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Job failed: "+err.Error())
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"message": "Job completed", "job": jobID})
}
