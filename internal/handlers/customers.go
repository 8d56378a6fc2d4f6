package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"tour-planner/internal/database"
	"tour-planner/internal/models"
)

type customerRequest struct {
	Name     string   `json:"name"`
	Address  *string  `json:"address"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Category *string  `json:"category"`
	Status   *string  `json:"status"`
	Email    *string  `json:"email"`
	Phone    *string  `json:"phone"`
	Website  *string  `json:"website"`
}

func (req *customerRequest) apply(c *models.Customer) {
	c.Name = strings.TrimSpace(req.Name)
	c.Address = req.Address
	c.Lat = req.Lat
	c.Lng = req.Lng
	c.Category = req.Category
	c.Status = req.Status
	c.Email = req.Email
	c.Phone = req.Phone
	c.Website = req.Website
}

// HandleListCustomers returns the customer directory, optionally
// filtered by a search term
func (h *Handler) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")

	customers, err := h.DB.Customers().List(r.Context(), search)
	if err != nil {
		h.handleInternalError(w, err)
		return
	}
	if customers == nil {
		customers = []models.Customer{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"customers": customers,
		"count":     len(customers),
	})
}

// HandleCreateCustomer adds a directory entry. An entry with an
// address but no coordinates is geocoded best-effort; the customer is
// stored either way and stays unlocated if geocoding fails.
func (h *Handler) HandleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.handleValidationError(w, "name is required")
		return
	}

	customer := &models.Customer{}
	req.apply(customer)

	if !customer.HasCoordinates() && customer.Address != nil && *customer.Address != "" {
		result, err := h.Geocoder.GeocodeWithRetry(r.Context(), *customer.Address, 2)
		if err != nil {
			log.Printf("[GEOCODING] Customer stored without coordinates: name=%s err=%v", customer.Name, err)
		} else {
			customer.Lat = &result.Coords.Lat
			customer.Lng = &result.Coords.Lng
		}
	}

	created, err := h.DB.Customers().Create(r.Context(), customer)
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

// HandleCustomerByID dispatches /api/v1/customers/{id}
func (h *Handler) HandleCustomerByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/customers/")
	if id == "" || strings.Contains(id, "/") {
		h.handleNotFound(w, "customer not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getCustomer(w, r, id)
	case http.MethodPut:
		h.updateCustomer(w, r, id)
	case http.MethodDelete:
		h.deleteCustomer(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request, id string) {
	customer, err := h.DB.Customers().GetByID(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.handleNotFound(w, "customer not found")
		return
	}
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request, id string) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleValidationError(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.handleValidationError(w, "name is required")
		return
	}

	customer := &models.Customer{ID: id}
	req.apply(customer)

	updated, err := h.DB.Customers().Update(r.Context(), customer)
	if errors.Is(err, database.ErrNotFound) {
		h.handleNotFound(w, "customer not found")
		return
	}
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request, id string) {
	err := h.DB.Customers().Delete(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.handleNotFound(w, "customer not found")
		return
	}
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
