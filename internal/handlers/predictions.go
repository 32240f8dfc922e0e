package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fightsim/fightsim-api/internal/models"
	"github.com/fightsim/fightsim-api/internal/worker"
)

// Predict returns the win probability for a matchup
// @Summary Predict Fight
// @Description Classifier, simulator or blended prediction for two stored fighters
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body models.PredictRequest true "Matchup"
// @Success 200 {object} models.EnsembleResult
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Fighter Not Found"
// @Failure 422 {object} map[string]string "Incomplete Profile"
// @Failure 503 {object} map[string]string "Classifier Unavailable"
// @Router /predict [post]
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	mode, err := models.ParseMode(req.Model)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.prediction.Predict(r.Context(), req.FighterA, req.FighterB, mode)
	if err != nil {
		h.domainError(w, err, "Failed to predict fight", "fighterA", req.FighterA, "fighterB", req.FighterB, "model", mode)
		return
	}

	// Degraded and cached results are not logged again
	if h.pool != nil && !result.Degraded && !result.Cached && !h.pool.Record(result, "") {
		h.logger.Warnw("Prediction not logged, queue full", "fighterA", result.FighterA, "fighterB", result.FighterB)
	}

	h.jsonResponse(w, http.StatusOK, result)
}

// Simulate runs a custom Monte Carlo simulation
// @Summary Simulate Fight
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body models.SimulateRequest true "Simulation parameters"
// @Success 200 {object} models.SimulateResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Fighter Not Found"
// @Failure 422 {object} map[string]string "Incomplete Profile"
// @Router /simulate [post]
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req models.SimulateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.prediction.Simulate(r.Context(), req)
	if err != nil {
		h.domainError(w, err, "Failed to simulate fight", "fighterA", req.FighterA, "fighterB", req.FighterB)
		return
	}

	h.jsonResponse(w, http.StatusOK, resp)
}

// PredictEvent queues every fight on a card for prediction
// @Summary Predict Event Card
// @Description Enqueues one prediction per fight. Results are logged and show up in model performance.
// @Tags Predictions
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param body body models.EventPredictRequest true "Fight card"
// @Success 202 {object} models.EventPredictResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 503 {object} map[string]string "Queue Full"
// @Router /events/{eventId}/predict [post]
func (h *Handler) PredictEvent(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(chi.URLParam(r, "eventId"))
	if eventID == "" {
		h.errorResponse(w, http.StatusBadRequest, "Event ID is required")
		return
	}

	var req models.EventPredictRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	mode, err := models.ParseMode(req.Model)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := models.EventPredictResponse{
		BatchID: uuid.NewString(),
		EventID: eventID,
	}
	for _, fight := range req.Fights {
		ok := h.pool.Enqueue(worker.Job{
			BatchID:  resp.BatchID,
			EventID:  eventID,
			FighterA: fight.FighterA,
			FighterB: fight.FighterB,
			Mode:     mode,
		})
		if ok {
			resp.Queued++
		} else {
			resp.Rejected++
		}
	}

	if resp.Queued == 0 {
		h.logger.Warnw("Event prediction rejected, queue full", "event", eventID, "fights", len(req.Fights))
		h.jsonResponse(w, http.StatusServiceUnavailable, resp)
		return
	}

	h.logger.Infow("Event predictions queued", "event", eventID, "batch", resp.BatchID,
		"queued", resp.Queued, "rejected", resp.Rejected)
	h.jsonResponse(w, http.StatusAccepted, resp)
}
