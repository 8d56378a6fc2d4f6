package handlers

import (
	"errors"
	"net/http"
	"strings"

	"tour-planner/internal/database"
	"tour-planner/internal/models"
)

// HandleListTours returns the saved tours of the requesting owner
func (h *Handler) HandleListTours(w http.ResponseWriter, r *http.Request) {
	tours, err := h.DB.Tours().List(r.Context(), ownerID(r))
	if err != nil {
		h.handleInternalError(w, err)
		return
	}
	if tours == nil {
		tours = []models.Tour{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tours": tours,
		"count": len(tours),
	})
}

// HandleTourByID dispatches /api/v1/tours/{id}
func (h *Handler) HandleTourByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/tours/")
	if id == "" || strings.Contains(id, "/") {
		h.handleNotFound(w, "tour not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getTour(w, r, id)
	case http.MethodDelete:
		h.deleteTour(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getTour returns the tour header plus its full ordered itinerary
func (h *Handler) getTour(w http.ResponseWriter, r *http.Request, id string) {
	tour, stops, err := h.DB.Tours().LoadItinerary(r.Context(), id)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	if stops == nil {
		stops = []models.Stop{}
	}

	days, err := h.DB.Tours().ListDays(r.Context(), id)
	if err != nil {
		h.handleInternalError(w, err)
		return
	}
	if days == nil {
		days = []models.TourDay{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tour":  tour,
		"days":  days,
		"stops": stops,
	})
}

func (h *Handler) deleteTour(w http.ResponseWriter, r *http.Request, id string) {
	err := h.DB.Tours().Delete(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.handleNotFound(w, "tour not found")
		return
	}
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
