// Package tour holds the working state of a tour being planned and
// synchronizes it with storage. A Session owns one flat ordered stop
// list; saving splits it into day rows at anchor stops and writes the
// whole itinerary in a single transaction.
package tour

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tour-planner/internal/database"
	"tour-planner/internal/models"
	"tour-planner/internal/routing"
)

// ErrSessionBusy is returned when a save or load is already running on
// the session. The flag is advisory and process-local: it prevents
// overlapping operations on one session, not concurrent writers to the
// same stored tour from elsewhere.
var ErrSessionBusy = errors.New("session is busy")

// Session is the in-memory planning state for one tour
type Session struct {
	id      string
	ownerID string
	tours   database.TourRepository

	mu        sync.Mutex
	busy      bool
	tourID    string
	status    models.TourStatus
	startDate time.Time
	stops     []models.Stop
}

// NewSession creates an empty planning session. The start date
// defaults to tomorrow; it shifts by one day per tour day on save.
func NewSession(id, ownerID string, tours database.TourRepository) *Session {
	now := time.Now()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	return &Session{
		id:        id,
		ownerID:   ownerID,
		tours:     tours,
		status:    models.TourStatusDraft,
		startDate: tomorrow,
	}
}

func (s *Session) ID() string      { return s.id }
func (s *Session) OwnerID() string { return s.ownerID }

// TourID returns the stored tour this session is bound to, empty
// until the first successful save or load.
func (s *Session) TourID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tourID
}

func (s *Session) Status() models.TourStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) SetStatus(status models.TourStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *Session) StartDate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startDate
}

// SetStartDate normalizes to midnight UTC; only the date part matters
func (s *Session) SetStartDate(t time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startDate = day
}

// Stops returns a snapshot of the current ordered stop list
func (s *Session) Stops() []models.Stop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() []models.Stop {
	stops := make([]models.Stop, len(s.stops))
	copy(stops, s.stops)
	return stops
}

// AddCustomerStop appends a visit to the given customer
func (s *Session) AddCustomerStop(c *models.Customer) models.Stop {
	stop := models.Stop{
		ID:       uuid.New().String(),
		Kind:     models.StopKindCustomer,
		Customer: c,
	}

	s.mu.Lock()
	s.stops = append(s.stops, stop)
	s.mu.Unlock()

	log.Printf("[SESSION] Added customer stop: session=%s customer=%s", s.id, c.ID)
	return stop
}

// AddAnchorStop appends a hotel or break stop
func (s *Session) AddAnchorStop(a models.AnchorData) models.Stop {
	anchor := a
	stop := models.Stop{
		ID:     uuid.New().String(),
		Kind:   models.StopKindAnchor,
		Anchor: &anchor,
	}

	s.mu.Lock()
	s.stops = append(s.stops, stop)
	s.mu.Unlock()

	log.Printf("[SESSION] Added anchor stop: session=%s name=%s", s.id, a.Name)
	return stop
}

// RemoveStop deletes the stop with the given ID, reporting whether it
// was present
func (s *Session) RemoveStop(stopID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, stop := range s.stops {
		if stop.ID == stopID {
			s.stops = append(s.stops[:i], s.stops[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the stop list and detaches the session from any
// stored tour
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stops = nil
	s.tourID = ""
	s.status = models.TourStatusDraft
}

// Optimize reorders the working stop list in place and returns the
// new order
func (s *Session) Optimize() []models.Stop {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stops = routing.Optimize(s.stops)
	log.Printf("[SESSION] Optimized stop order: session=%s stops=%d", s.id, len(s.stops))
	return s.snapshotLocked()
}

// Save persists the current stop list under the given tour name. The
// first save creates the tour; later saves replace its itinerary. The
// whole write is one transaction, so a failed save leaves the stored
// tour exactly as it was and the session keeps its state.
func (s *Session) Save(ctx context.Context, name string) (*models.Tour, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	s.mu.Lock()
	stops := s.snapshotLocked()
	tourID := s.tourID
	status := s.status
	start := s.startDate
	s.mu.Unlock()

	if len(stops) == 0 {
		return nil, &models.ValidationError{Reason: "tour has no stops"}
	}
	if err := validateStops(stops); err != nil {
		log.Printf("[SESSION] Save rejected: session=%s err=%v", s.id, err)
		return nil, err
	}

	days := routing.SplitDays(stops)
	plans := make([]models.DayPlan, len(days))
	for i, day := range days {
		plan := models.DayPlan{Date: start.AddDate(0, 0, i)}
		for _, stop := range day {
			plan.Stops = append(plan.Stops, encodeStop(stop))
		}
		plans[i] = plan
	}

	tour := &models.Tour{ID: tourID, OwnerID: s.ownerID, Name: name, Status: status}
	saved, err := s.tours.SaveItinerary(ctx, tour, plans)
	if err != nil {
		log.Printf("[SESSION] Save failed: session=%s tour_id=%s err=%v", s.id, tourID, err)
		return nil, fmt.Errorf("failed to save tour: %w", err)
	}

	s.mu.Lock()
	s.tourID = saved.ID
	s.status = saved.Status
	s.mu.Unlock()

	log.Printf("[SESSION] Saved tour: session=%s tour_id=%s days=%d stops=%d",
		s.id, saved.ID, len(plans), len(stops))
	return saved, nil
}

// Load replaces the session state with a stored tour's itinerary. On
// any error the session keeps its previous state.
func (s *Session) Load(ctx context.Context, tourID string) (*models.Tour, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	tour, stops, err := s.tours.LoadItinerary(ctx, tourID)
	if err != nil {
		log.Printf("[SESSION] Load failed: session=%s tour_id=%s err=%v", s.id, tourID, err)
		return nil, fmt.Errorf("failed to load tour: %w", err)
	}

	days, err := s.tours.ListDays(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tour days: %w", err)
	}

	s.mu.Lock()
	s.tourID = tour.ID
	s.status = tour.Status
	s.stops = stops
	if len(days) > 0 {
		s.startDate = days[0].Date
	}
	s.mu.Unlock()

	log.Printf("[SESSION] Loaded tour: session=%s tour_id=%s stops=%d", s.id, tour.ID, len(stops))
	return tour, nil
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return ErrSessionBusy
	}
	s.busy = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// validateStops rejects stops that are missing the data their kind
// requires, so that no row is ever written with defaulted coordinates
func validateStops(stops []models.Stop) error {
	for _, stop := range stops {
		switch stop.Kind {
		case models.StopKindCustomer:
			if stop.Customer == nil {
				return &models.ValidationError{StopID: stop.ID, Reason: "customer stop has no customer data"}
			}
		case models.StopKindAnchor:
			if stop.Anchor == nil {
				return &models.ValidationError{StopID: stop.ID, Reason: "anchor stop has no coordinates"}
			}
		default:
			return &models.ValidationError{StopID: stop.ID, Reason: fmt.Sprintf("unknown stop kind %q", stop.Kind)}
		}
	}
	return nil
}

// encodeStop maps an in-memory stop to its persisted record shape.
// Customer stops store only the reference; anchor stops inline their
// place data.
func encodeStop(stop models.Stop) models.TourStopRecord {
	rec := models.TourStopRecord{Kind: stop.Kind}

	switch stop.Kind {
	case models.StopKindCustomer:
		rec.CustomerID = &stop.Customer.ID
	case models.StopKindAnchor:
		rec.Name = &stop.Anchor.Name
		rec.Lat = &stop.Anchor.Lat
		rec.Lng = &stop.Anchor.Lng
		if stop.Anchor.Address != "" {
			rec.Address = &stop.Anchor.Address
		}
		if stop.Anchor.ExternalPlaceID != "" {
			rec.ExternalPlaceID = &stop.Anchor.ExternalPlaceID
		}
	}
	return rec
}
