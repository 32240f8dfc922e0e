package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fightsim/fightsim-api/internal/logic"
	"github.com/fightsim/fightsim-api/internal/models"
	"github.com/fightsim/fightsim-api/internal/worker"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]bool, len(h.checks)+1)
	allHealthy := true
	for _, name := range names {
		err := h.checks[name](ctx)
		checks[name] = err == nil
		if err != nil {
			h.logger.Warnw("Readiness check failed", "dependency", name, "error", err)
			allHealthy = false
		}
	}

	modelVersion := ""
	if h.model != nil {
		checks["model"] = h.model.Loaded()
		allHealthy = allHealthy && checks["model"]
		modelVersion = h.model.Version()
	}

	queueDepth := 0
	if h.pool != nil {
		queueDepth = h.pool.QueueDepth()
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":        allHealthy,
		"checks":       checks,
		"queueDepth":   queueDepth,
		"modelVersion": modelVersion,
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// decodeAndValidate reads a size-limited JSON body into dst and runs the
// struct validator on it. It writes the 400 response itself.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			h.errorResponse(w, http.StatusBadRequest, "Invalid field: "+verrs[0].Field()+" ("+verrs[0].Tag()+")")
			return false
		}
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	var invalid *models.InvalidProfileError
	switch {
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrFighterNotFound), errors.Is(err, models.ErrPredictionNotFound),
		errors.Is(err, worker.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, logic.ErrClassifierUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, logic.ErrUnknownMode), errors.Is(err, logic.ErrInvalidSimulation):
		return http.StatusBadRequest
	case errors.Is(err, worker.ErrJobRunning):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// domainError logs err and writes the mapped status. Server-side failures
// get a generic message.
func (h *Handler) domainError(w http.ResponseWriter, err error, message string, kv ...interface{}) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorw(message, append([]interface{}{"error", err}, kv...)...)
	} else {
		h.logger.Infow(message, append([]interface{}{"error", err, "status", status}, kv...)...)
	}
	if status == http.StatusInternalServerError {
		h.errorResponse(w, status, message)
		return
	}
	h.errorResponse(w, status, err.Error())
}
