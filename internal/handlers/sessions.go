package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tour-planner/internal/database"
	"tour-planner/internal/ics"
	"tour-planner/internal/models"
	"tour-planner/internal/tour"
)

type sessionResponse struct {
	ID        string            `json:"id"`
	OwnerID   string            `json:"owner_id"`
	TourID    string            `json:"tour_id,omitempty"`
	Status    models.TourStatus `json:"status"`
	StartDate string            `json:"start_date"`
	Stops     []models.Stop     `json:"stops"`
}

func sessionState(s *tour.Session) sessionResponse {
	stops := s.Stops()
	if stops == nil {
		stops = []models.Stop{}
	}
	return sessionResponse{
		ID:        s.ID(),
		OwnerID:   s.OwnerID(),
		TourID:    s.TourID(),
		Status:    s.Status(),
		StartDate: s.StartDate().Format("2006-01-02"),
		Stops:     stops,
	}
}

// HandleCreateSession starts a new planning session
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"start_date"`
	}
	if r.Body != nil {
		// Body is optional
		json.NewDecoder(r.Body).Decode(&req)
	}

	session := h.Sessions.Create(ownerID(r))

	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			h.Sessions.Delete(session.ID())
			h.handleValidationError(w, "start_date must be formatted as YYYY-MM-DD")
			return
		}
		session.SetStartDate(start)
	}

	h.writeJSON(w, http.StatusCreated, sessionState(session))
}

// HandleSessionByID dispatches /api/v1/sessions/{id} and its
// sub-resources (stops, optimize, save, load, export.ics)
func (h *Handler) HandleSessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	parts := strings.SplitN(rest, "/", 2)

	session := h.Sessions.Get(parts[0])
	if session == nil {
		h.handleNotFound(w, "session not found")
		return
	}

	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.writeJSON(w, http.StatusOK, sessionState(session))
	case sub == "" && r.Method == http.MethodDelete:
		h.Sessions.Delete(session.ID())
		w.WriteHeader(http.StatusNoContent)
	case sub == "stops" && r.Method == http.MethodPost:
		h.addStop(w, r, session)
	case strings.HasPrefix(sub, "stops/") && r.Method == http.MethodDelete:
		h.removeStop(w, session, strings.TrimPrefix(sub, "stops/"))
	case sub == "optimize" && r.Method == http.MethodPost:
		h.optimizeSession(w, session)
	case sub == "save" && r.Method == http.MethodPost:
		h.saveSession(w, r, session)
	case sub == "load" && r.Method == http.MethodPost:
		h.loadSession(w, r, session)
	case sub == "export.ics" && r.Method == http.MethodGet:
		h.exportSession(w, r, session)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type anchorRequest struct {
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
	ExternalPlaceID string   `json:"external_place_id"`
}

type addStopRequest struct {
	Kind       models.StopKind `json:"kind"`
	CustomerID string          `json:"customer_id"`
	Anchor     *anchorRequest  `json:"anchor"`
}

func (h *Handler) addStop(w http.ResponseWriter, r *http.Request, session *tour.Session) {
	var req addStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "invalid request body")
		return
	}

	switch req.Kind {
	case models.StopKindCustomer:
		if req.CustomerID == "" {
			h.handleValidationError(w, "customer_id is required for customer stops")
			return
		}
		customer, err := h.DB.Customers().GetByID(r.Context(), req.CustomerID)
		if errors.Is(err, database.ErrNotFound) {
			h.handleNotFound(w, "customer not found")
			return
		}
		if err != nil {
			h.handleInternalError(w, err)
			return
		}
		stop := session.AddCustomerStop(customer)
		h.writeJSON(w, http.StatusCreated, stop)

	case models.StopKindAnchor:
		if req.Anchor == nil || strings.TrimSpace(req.Anchor.Name) == "" {
			h.handleValidationError(w, "anchor stops require a name")
			return
		}

		anchor := models.AnchorData{
			Name:            strings.TrimSpace(req.Anchor.Name),
			Address:         req.Anchor.Address,
			ExternalPlaceID: req.Anchor.ExternalPlaceID,
		}

		if req.Anchor.Lat != nil && req.Anchor.Lng != nil {
			anchor.Lat = *req.Anchor.Lat
			anchor.Lng = *req.Anchor.Lng
		} else {
			// Anchors must always carry coordinates, so an anchor
			// entered by address is geocoded up front
			if anchor.Address == "" {
				h.handleValidationError(w, "anchor stops require coordinates or an address")
				return
			}
			result, err := h.Geocoder.GeocodeWithRetry(r.Context(), anchor.Address, 2)
			if err != nil {
				h.handleGeocodingError(w, err)
				return
			}
			anchor.Lat = result.Coords.Lat
			anchor.Lng = result.Coords.Lng
		}

		stop := session.AddAnchorStop(anchor)
		h.writeJSON(w, http.StatusCreated, stop)

	default:
		h.handleValidationError(w, fmt.Sprintf("unknown stop kind %q", req.Kind))
	}
}

func (h *Handler) removeStop(w http.ResponseWriter, session *tour.Session, stopID string) {
	if !session.RemoveStop(stopID) {
		h.handleNotFound(w, "stop not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) optimizeSession(w http.ResponseWriter, session *tour.Session) {
	session.Optimize()
	h.writeJSON(w, http.StatusOK, sessionState(session))
}

func (h *Handler) saveSession(w http.ResponseWriter, r *http.Request, session *tour.Session) {
	var req struct {
		Name   string            `json:"name"`
		Status models.TourStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.handleValidationError(w, "name is required")
		return
	}
	if req.Status != "" {
		session.SetStatus(req.Status)
	}

	saved, err := session.Save(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request, session *tour.Session) {
	var req struct {
		TourID string `json:"tour_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "invalid request body")
		return
	}
	if req.TourID == "" {
		h.handleValidationError(w, "tour_id is required")
		return
	}

	if _, err := session.Load(r.Context(), req.TourID); err != nil {
		h.handleDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sessionState(session))
}

func (h *Handler) exportSession(w http.ResponseWriter, r *http.Request, session *tour.Session) {
	stops := session.Stops()
	if len(stops) == 0 {
		h.handleValidationError(w, "session has no stops to export")
		return
	}

	exported := &models.Tour{ID: session.ID(), Name: "Planned Tour", Status: session.Status()}
	if session.TourID() != "" {
		stored, err := h.DB.Tours().GetByID(r.Context(), session.TourID())
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			h.handleInternalError(w, err)
			return
		}
		if err == nil {
			exported = stored
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tour.ics"`)
	fmt.Fprint(w, ics.GenerateTour(exported, stops, session.StartDate()))
}
