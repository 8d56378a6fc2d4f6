package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-planner/internal/database"
	"tour-planner/internal/geocoding"
	"tour-planner/internal/models"
	"tour-planner/internal/tour"
)

// Mock implementations for testing

type mockGeocoder struct{}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (*geocoding.Result, error) {
	return &geocoding.Result{
		Coords:      models.Coordinates{Lat: 48.137, Lng: 11.575},
		DisplayName: address,
	}, nil
}

func (m *mockGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*geocoding.Result, error) {
	return m.Geocode(ctx, address)
}

func (m *mockGeocoder) Search(ctx context.Context, query string, limit int) ([]geocoding.Result, error) {
	result, _ := m.Geocode(ctx, query)
	return []geocoding.Result{*result}, nil
}

type failingGeocoder struct{}

func (m *failingGeocoder) Geocode(ctx context.Context, address string) (*geocoding.Result, error) {
	return nil, &geocoding.ErrGeocodingFailed{Address: address, Reason: "no results found"}
}

func (m *failingGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*geocoding.Result, error) {
	return m.Geocode(ctx, address)
}

func (m *failingGeocoder) Search(ctx context.Context, query string, limit int) ([]geocoding.Result, error) {
	return nil, &geocoding.ErrGeocodingFailed{Address: query, Reason: "no results found"}
}

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &Handler{
		DB:       db,
		Geocoder: &mockGeocoder{},
		Sessions: tour.NewSessionStore(db.Tours()),
	}
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	return resp.Error.Code
}

func seedCustomer(t *testing.T, h *Handler, name string, lat, lng float64) *models.Customer {
	t.Helper()

	c, err := h.DB.Customers().Create(context.Background(), &models.Customer{
		Name: name,
		Lat:  &lat,
		Lng:  &lng,
	})
	require.NoError(t, err)
	return c
}

func createSession(t *testing.T, h *Handler) sessionResponse {
	t.Helper()

	rec := httptest.NewRecorder()
	h.HandleCreateSession(rec, jsonRequest(t, http.MethodPost, "/api/v1/sessions", map[string]string{
		"start_date": "2026-09-01",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	decodeJSON(t, rec, &resp)
	require.NotEmpty(t, resp.ID)
	return resp
}

func addStop(t *testing.T, h *Handler, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	req := jsonRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/stops", sessionID), body)
	h.HandleSessionByID(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	h := setupTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
}

func TestCustomerLifecycle(t *testing.T) {
	h := setupTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleCreateCustomer(rec, jsonRequest(t, http.MethodPost, "/api/v1/customers", map[string]interface{}{
		"name": "Acme GmbH",
		"lat":  48.1,
		"lng":  11.5,
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Customer
	decodeJSON(t, rec, &created)
	require.NotEmpty(t, created.ID)

	rec = httptest.NewRecorder()
	h.HandleCustomerByID(rec, httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleCustomerByID(rec, jsonRequest(t, http.MethodPut, "/api/v1/customers/"+created.ID, map[string]interface{}{
		"name": "Acme Renamed",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Customer
	decodeJSON(t, rec, &updated)
	assert.Equal(t, "Acme Renamed", updated.Name)

	rec = httptest.NewRecorder()
	h.HandleCustomerByID(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/customers/"+created.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleCustomerByID(rec, httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestCreateCustomerRequiresName(t *testing.T) {
	h := setupTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleCreateCustomer(rec, jsonRequest(t, http.MethodPost, "/api/v1/customers", map[string]interface{}{
		"address": "Somewhere 1",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestCreateCustomerGeocodesAddress(t *testing.T) {
	h := setupTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleCreateCustomer(rec, jsonRequest(t, http.MethodPost, "/api/v1/customers", map[string]interface{}{
		"name":    "Located by Address",
		"address": "Marienplatz 1, Munich",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Customer
	decodeJSON(t, rec, &created)
	require.NotNil(t, created.Lat)
	assert.Equal(t, 48.137, *created.Lat)
}

func TestCreateCustomerKeepsEntryWhenGeocodingFails(t *testing.T) {
	h := setupTestHandler(t)
	h.Geocoder = &failingGeocoder{}

	rec := httptest.NewRecorder()
	h.HandleCreateCustomer(rec, jsonRequest(t, http.MethodPost, "/api/v1/customers", map[string]interface{}{
		"name":    "Unlocatable Ltd",
		"address": "Nowhere 99",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Customer
	decodeJSON(t, rec, &created)
	assert.Nil(t, created.Lat)
}

func TestListCustomersWithSearch(t *testing.T) {
	h := setupTestHandler(t)
	seedCustomer(t, h, "Alpha Bau", 48.1, 11.5)
	seedCustomer(t, h, "Beta Logistik", 48.2, 11.6)

	rec := httptest.NewRecorder()
	h.HandleListCustomers(rec, httptest.NewRequest(http.MethodGet, "/api/v1/customers?search=Alpha", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Customers []models.Customer `json:"customers"`
		Count     int               `json:"count"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, "Alpha Bau", resp.Customers[0].Name)
}

func TestSessionNotFound(t *testing.T) {
	h := setupTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleSessionByID(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestCreateSessionRejectsBadStartDate(t *testing.T) {
	h := setupTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleCreateSession(rec, jsonRequest(t, http.MethodPost, "/api/v1/sessions", map[string]string{
		"start_date": "01.09.2026",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestAddStopUnknownCustomer(t *testing.T) {
	h := setupTestHandler(t)
	session := createSession(t, h)

	rec := addStop(t, h, session.ID, map[string]interface{}{
		"kind":        "customer",
		"customer_id": "no-such-customer",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestAddAnchorByAddressIsGeocoded(t *testing.T) {
	h := setupTestHandler(t)
	session := createSession(t, h)

	rec := addStop(t, h, session.ID, map[string]interface{}{
		"kind": "anchor",
		"anchor": map[string]interface{}{
			"name":    "Hotel Central",
			"address": "Old Town 1, Munich",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var stop models.Stop
	decodeJSON(t, rec, &stop)
	require.NotNil(t, stop.Anchor)
	assert.Equal(t, 48.137, stop.Anchor.Lat)
}

func TestAddAnchorGeocodingFailure(t *testing.T) {
	h := setupTestHandler(t)
	h.Geocoder = &failingGeocoder{}
	session := createSession(t, h)

	rec := addStop(t, h, session.ID, map[string]interface{}{
		"kind": "anchor",
		"anchor": map[string]interface{}{
			"name":    "Hotel Nowhere",
			"address": "Nowhere 99",
		},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "GEOCODING_FAILED", errorCode(t, rec))
}

func TestAddAnchorWithoutCoordinatesOrAddress(t *testing.T) {
	h := setupTestHandler(t)
	session := createSession(t, h)

	rec := addStop(t, h, session.ID, map[string]interface{}{
		"kind": "anchor",
		"anchor": map[string]interface{}{
			"name": "Hotel Nowhere",
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestSaveEmptySessionRejected(t *testing.T) {
	h := setupTestHandler(t)
	session := createSession(t, h)

	rec := httptest.NewRecorder()
	h.HandleSessionByID(rec, jsonRequest(t, http.MethodPost,
		"/api/v1/sessions/"+session.ID+"/save", map[string]string{"name": "Empty"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestLoadMissingTour(t *testing.T) {
	h := setupTestHandler(t)
	session := createSession(t, h)

	rec := httptest.NewRecorder()
	h.HandleSessionByID(rec, jsonRequest(t, http.MethodPost,
		"/api/v1/sessions/"+session.ID+"/load", map[string]string{"tour_id": "missing"}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestSessionPlanningFlow(t *testing.T) {
	h := setupTestHandler(t)

	far := seedCustomer(t, h, "Far Customer", 53.55, 9.99)
	near := seedCustomer(t, h, "Near Customer", 48.2, 11.6)

	session := createSession(t, h)

	// Anchor first so it acts as the route origin
	rec := addStop(t, h, session.ID, map[string]interface{}{
		"kind": "anchor",
		"anchor": map[string]interface{}{
			"name": "Hotel Central",
			"lat":  48.14,
			"lng":  11.58,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, id := range []string{far.ID, near.ID} {
		rec = addStop(t, h, session.ID, map[string]interface{}{
			"kind":        "customer",
			"customer_id": id,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	// Optimize: the near customer moves ahead of the far one
	rec = httptest.NewRecorder()
	h.HandleSessionByID(rec, jsonRequest(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/optimize", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var state sessionResponse
	decodeJSON(t, rec, &state)
	require.Len(t, state.Stops, 3)
	assert.Equal(t, "Hotel Central", state.Stops[0].Anchor.Name)
	assert.Equal(t, "Near Customer", state.Stops[1].Customer.Name)
	assert.Equal(t, "Far Customer", state.Stops[2].Customer.Name)

	// Save
	rec = httptest.NewRecorder()
	h.HandleSessionByID(rec, jsonRequest(t, http.MethodPost,
		"/api/v1/sessions/"+session.ID+"/save", map[string]string{"name": "Bavaria Week"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var saved models.Tour
	decodeJSON(t, rec, &saved)
	require.NotEmpty(t, saved.ID)

	// The tour shows up in the owner's list
	rec = httptest.NewRecorder()
	h.HandleListTours(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var tourList struct {
		Tours []models.Tour `json:"tours"`
		Count int           `json:"count"`
	}
	decodeJSON(t, rec, &tourList)
	assert.Equal(t, 1, tourList.Count)

	// Load into a fresh session
	other := createSession(t, h)
	rec = httptest.NewRecorder()
	h.HandleSessionByID(rec, jsonRequest(t, http.MethodPost,
		"/api/v1/sessions/"+other.ID+"/load", map[string]string{"tour_id": saved.ID}))
	require.Equal(t, http.StatusOK, rec.Code)

	var loaded sessionResponse
	decodeJSON(t, rec, &loaded)
	assert.Equal(t, saved.ID, loaded.TourID)
	require.Len(t, loaded.Stops, 3)
	assert.Equal(t, models.StopKindAnchor, loaded.Stops[0].Kind)

	// Export as calendar
	rec = httptest.NewRecorder()
	h.HandleSessionByID(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+other.ID+"/export.ics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VEVENT")
	assert.Contains(t, rec.Body.String(), "Visit: Near Customer")

	// Tour detail includes days and stops
	rec = httptest.NewRecorder()
	h.HandleTourByID(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours/"+saved.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Tour  models.Tour      `json:"tour"`
		Days  []models.TourDay `json:"days"`
		Stops []models.Stop    `json:"stops"`
	}
	decodeJSON(t, rec, &detail)
	assert.Equal(t, saved.ID, detail.Tour.ID)
	assert.Len(t, detail.Days, 2)
	assert.Len(t, detail.Stops, 3)
}

func TestRemoveStop(t *testing.T) {
	h := setupTestHandler(t)
	session := createSession(t, h)

	rec := addStop(t, h, session.ID, map[string]interface{}{
		"kind": "anchor",
		"anchor": map[string]interface{}{
			"name": "Hotel",
			"lat":  1.0,
			"lng":  1.0,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var stop models.Stop
	decodeJSON(t, rec, &stop)

	rec = httptest.NewRecorder()
	h.HandleSessionByID(rec, httptest.NewRequest(http.MethodDelete,
		"/api/v1/sessions/"+session.ID+"/stops/"+stop.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleSessionByID(rec, httptest.NewRequest(http.MethodDelete,
		"/api/v1/sessions/"+session.ID+"/stops/"+stop.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTour(t *testing.T) {
	h := setupTestHandler(t)
	session := createSession(t, h)

	rec := addStop(t, h, session.ID, map[string]interface{}{
		"kind": "anchor",
		"anchor": map[string]interface{}{
			"name": "Hotel",
			"lat":  1.0,
			"lng":  1.0,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleSessionByID(rec, jsonRequest(t, http.MethodPost,
		"/api/v1/sessions/"+session.ID+"/save", map[string]string{"name": "Short Trip"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var saved models.Tour
	decodeJSON(t, rec, &saved)

	rec = httptest.NewRecorder()
	h.HandleTourByID(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/tours/"+saved.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleTourByID(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/tours/"+saved.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
