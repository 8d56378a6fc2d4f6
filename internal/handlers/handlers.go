package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tour-planner/internal/database"
	"tour-planner/internal/geocoding"
	"tour-planner/internal/models"
	"tour-planner/internal/tour"
)

// defaultOwnerID is used when the client does not identify itself.
// The planner is single-tenant by default; the header exists so a
// fronting proxy can scope tours per rep.
const defaultOwnerID = "default"

// Handler provides common handler utilities and dependencies
type Handler struct {
	DB       database.DataStore
	Geocoder geocoding.Geocoder
	Sessions *tour.SessionStore
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func ownerID(r *http.Request) string {
	if owner := r.Header.Get("X-Owner-ID"); owner != "" {
		return owner
	}
	return defaultOwnerID
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleGeocodingError handles 422 errors for geocoding failures
func (h *Handler) handleGeocodingError(w http.ResponseWriter, err error) {
	h.writeError(w, http.StatusUnprocessableEntity, "GEOCODING_FAILED", err.Error(), nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
}

// handleDomainError maps typed domain errors onto API error codes
func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	var gerr *geocoding.ErrGeocodingFailed

	switch {
	case errors.Is(err, tour.ErrSessionBusy):
		h.writeError(w, http.StatusConflict, "SESSION_BUSY",
			"another save or load is running on this session", nil)
	case errors.Is(err, database.ErrNotFound):
		h.handleNotFound(w, "tour not found")
	case errors.As(err, &verr):
		var details interface{}
		if verr.StopID != "" {
			details = map[string]interface{}{"stop_id": verr.StopID}
		}
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Reason, details)
	case errors.As(err, &gerr):
		h.handleGeocodingError(w, err)
	default:
		h.handleInternalError(w, err)
	}
}

// HandleHealthCheck returns service health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.HealthCheck(r.Context()); err != nil {
		log.Printf("[ERROR] Health check failed: %v", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
