package models

import "time"

// Coordinates represents a geographic location
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StopKind distinguishes the two stop variants on a tour
type StopKind string

const (
	StopKindCustomer StopKind = "customer"
	StopKindAnchor   StopKind = "anchor"
)

// TourStatus is the lifecycle state of a saved tour. It is stored and
// reported but not enforced by the planner.
type TourStatus string

const (
	TourStatusDraft     TourStatus = "draft"
	TourStatusFinalized TourStatus = "finalized"
	TourStatusCompleted TourStatus = "completed"
)

// Customer is a directory entry that can be referenced by tour stops.
// Address, coordinates and contact fields are nullable because the
// directory accepts entries before they are geocoded or enriched.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	Category  *string   `json:"category,omitempty"`
	Status    *string   `json:"status,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Website   *string   `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are set
func (c *Customer) HasCoordinates() bool {
	return c != nil && c.Lat != nil && c.Lng != nil
}

// AnchorData describes a fixed overnight or break location (hotel,
// rest stop). Anchors are always entered with coordinates.
type AnchorData struct {
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	ExternalPlaceID string  `json:"external_place_id,omitempty"`
}

// Stop is one entry in a tour's working stop list. Exactly one of
// Customer or Anchor is populated, matching Kind.
type Stop struct {
	ID       string      `json:"id"`
	Kind     StopKind    `json:"kind"`
	Customer *Customer   `json:"customer,omitempty"`
	Anchor   *AnchorData `json:"anchor,omitempty"`
}

// Location resolves the stop's coordinates. It is the single gate for
// coordinate presence: anchor stops always locate, customer stops
// locate only when the customer carries both latitude and longitude.
func (s *Stop) Location() (Coordinates, bool) {
	switch s.Kind {
	case StopKindAnchor:
		if s.Anchor != nil {
			return Coordinates{Lat: s.Anchor.Lat, Lng: s.Anchor.Lng}, true
		}
	case StopKindCustomer:
		if s.Customer.HasCoordinates() {
			return Coordinates{Lat: *s.Customer.Lat, Lng: *s.Customer.Lng}, true
		}
	}
	return Coordinates{}, false
}

// DisplayName returns a human-readable label for the stop
func (s *Stop) DisplayName() string {
	switch s.Kind {
	case StopKindAnchor:
		if s.Anchor != nil {
			return s.Anchor.Name
		}
	case StopKindCustomer:
		if s.Customer != nil {
			return s.Customer.Name
		}
	}
	return "Unknown Stop"
}

// Tour is the persisted header row of a saved itinerary
type Tour struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name"`
	Status    TourStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TourDay is one calendar day of a saved tour. DayNumber is 1-based
// and unique within the tour.
type TourDay struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tour_id"`
	DayNumber int       `json:"day_number"`
	Date      time.Time `json:"date"`
}

// TourStopRecord is the persisted form of a stop. SequenceOrder is
// 0-based and contiguous within a day. Customer rows carry only the
// customer reference; anchor rows are self-contained.
type TourStopRecord struct {
	ID              string   `json:"id"`
	TourDayID       string   `json:"tour_day_id"`
	SequenceOrder   int      `json:"sequence_order"`
	Kind            StopKind `json:"kind"`
	CustomerID      *string  `json:"customer_id,omitempty"`
	ExternalPlaceID *string  `json:"external_place_id,omitempty"`
	Name            *string  `json:"name,omitempty"`
	Lat             *float64 `json:"lat,omitempty"`
	Lng             *float64 `json:"lng,omitempty"`
	Address         *string  `json:"address,omitempty"`
}

// DayPlan is the input to an itinerary save: one day's ordered stop
// records, before storage assigns row IDs.
type DayPlan struct {
	Date  time.Time
	Stops []TourStopRecord
}
