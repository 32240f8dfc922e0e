package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// ListFighters returns name and image of every stored fighter
// @Summary List Fighters
// @Tags Fighters
// @Produce json
// @Success 200 {array} models.FighterSummary
// @Router /fighters [get]
func (h *Handler) ListFighters(w http.ResponseWriter, r *http.Request) {
	fighters, err := h.fighters.List(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to list fighters", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list fighters")
		return
	}
	h.jsonResponse(w, http.StatusOK, fighters)
}

// GetFighter returns one fighter profile
// @Summary Get Fighter
// @Tags Fighters
// @Produce json
// @Param name path string true "Fighter name"
// @Success 200 {object} models.FighterProfile
// @Failure 404 {object} map[string]string "Not Found"
// @Router /fighters/{name} [get]
func (h *Handler) GetFighter(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		h.errorResponse(w, http.StatusBadRequest, "Fighter name is required")
		return
	}

	profile, err := h.fighters.Resolve(r.Context(), name)
	if err != nil {
		h.domainError(w, err, "Failed to get fighter", "name", name)
		return
	}
	h.jsonResponse(w, http.StatusOK, profile)
}
