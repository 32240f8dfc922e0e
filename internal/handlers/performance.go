package handlers

import (
	"net/http"
	"strings"

	"github.com/fightsim/fightsim-api/internal/models"
)

// GetModelPerformance returns accuracy figures for logged predictions
// @Summary Model Performance
// @Tags Performance
// @Produce json
// @Success 200 {object} models.ModelPerformance
// @Router /model-performance [get]
func (h *Handler) GetModelPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.performance.GetPerformance(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to get model performance", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get model performance")
		return
	}
	h.jsonResponse(w, http.StatusOK, perf)
}

// GetDetailedPerformance returns every logged prediction, newest first
// @Summary Detailed Model Performance
// @Tags Performance
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /model-performance/detailed [get]
func (h *Handler) GetDetailedPerformance(w http.ResponseWriter, r *http.Request) {
	records, err := h.performance.GetDetailed(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to get detailed performance", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get detailed performance")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"predictions": records,
		"total":       len(records),
	})
}

// RecordFightResult marks logged predictions for a fight as correct or not
// @Summary Record Fight Result
// @Tags Performance
// @Accept json
// @Produce json
// @Param body body models.FightResultRequest true "Result"
// @Success 200 {object} models.FightResultResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "No Matching Predictions"
// @Router /fight-results [post]
func (h *Handler) RecordFightResult(w http.ResponseWriter, r *http.Request) {
	var req models.FightResultRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	winner := strings.TrimSpace(req.ActualWinner)
	if !strings.EqualFold(winner, strings.TrimSpace(req.FighterA)) && !strings.EqualFold(winner, strings.TrimSpace(req.FighterB)) {
		h.errorResponse(w, http.StatusBadRequest, "actual_winner must be one of the two fighters")
		return
	}

	n, err := h.results.ApplyResult(r.Context(), req.FighterA, req.FighterB, winner)
	if err != nil {
		h.domainError(w, err, "Failed to record fight result", "fighterA", req.FighterA, "fighterB", req.FighterB)
		return
	}

	if _, err := h.performance.Refresh(r.Context()); err != nil {
		h.logger.Warnw("Failed to refresh performance after result", "error", err)
	}

	h.jsonResponse(w, http.StatusOK, models.FightResultResponse{
		Message:            "Updated predictions",
		PredictionsUpdated: n,
	})
}
