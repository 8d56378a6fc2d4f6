package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tour-planner/internal/models"
)

const dayDateFormat = "2006-01-02"

// TourRepository handles persistence of saved tours and their
// itineraries (day and stop rows).
type TourRepository interface {
	List(ctx context.Context, ownerID string) ([]models.Tour, error)
	GetByID(ctx context.Context, id string) (*models.Tour, error)

	// SaveItinerary writes the tour header plus all day and stop rows
	// as a single transaction. An empty tour ID inserts a new tour;
	// otherwise the existing tour is updated and its previous days are
	// replaced. On failure nothing is written.
	SaveItinerary(ctx context.Context, tour *models.Tour, days []models.DayPlan) (*models.Tour, error)

	// LoadItinerary returns the tour and its stops ordered by day and
	// sequence, with referenced customers joined in. Rows that do not
	// satisfy their kind fail the load with a ValidationError.
	LoadItinerary(ctx context.Context, tourID string) (*models.Tour, []models.Stop, error)

	ListDays(ctx context.Context, tourID string) ([]models.TourDay, error)
	Delete(ctx context.Context, id string) error
}

type tourRepository struct {
	db *sql.DB
}

func (r *tourRepository) List(ctx context.Context, ownerID string) ([]models.Tour, error) {
	query := `
		SELECT id, owner_id, name, status, created_at, updated_at
		FROM tours
		WHERE owner_id = ?
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tours: %w", err)
	}
	defer rows.Close()

	var tours []models.Tour
	for rows.Next() {
		var t models.Tour
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tours, nil
}

func (r *tourRepository) GetByID(ctx context.Context, id string) (*models.Tour, error) {
	query := `SELECT id, owner_id, name, status, created_at, updated_at FROM tours WHERE id = ?`

	var t models.Tour
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.OwnerID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}

	return &t, nil
}

func (r *tourRepository) SaveItinerary(ctx context.Context, tour *models.Tour, days []models.DayPlan) (*models.Tour, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("[DB] Failed to begin itinerary save transaction: err=%v", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	saved := *tour
	if saved.Status == "" {
		saved.Status = models.TourStatusDraft
	}

	if saved.ID == "" {
		saved.ID = uuid.New().String()
		insertQuery := `
			INSERT INTO tours (id, owner_id, name, status)
			VALUES (?, ?, ?, ?)
			RETURNING created_at, updated_at
		`
		err = tx.QueryRowContext(ctx, insertQuery, saved.ID, saved.OwnerID, saved.Name, saved.Status).
			Scan(&saved.CreatedAt, &saved.UpdatedAt)
		if err != nil {
			log.Printf("[DB] Failed to create tour: name=%s err=%v", saved.Name, err)
			return nil, fmt.Errorf("failed to create tour: %w", err)
		}
	} else {
		updateQuery := `
			UPDATE tours
			SET name = ?, status = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
			RETURNING owner_id, created_at, updated_at
		`
		err = tx.QueryRowContext(ctx, updateQuery, saved.Name, saved.Status, saved.ID).
			Scan(&saved.OwnerID, &saved.CreatedAt, &saved.UpdatedAt)
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		if err != nil {
			log.Printf("[DB] Failed to update tour: id=%s err=%v", saved.ID, err)
			return nil, fmt.Errorf("failed to update tour: %w", err)
		}
	}

	// Replace the stored itinerary wholesale. Stop rows cascade with
	// their days.
	if _, err := tx.ExecContext(ctx, `DELETE FROM tour_days WHERE tour_id = ?`, saved.ID); err != nil {
		log.Printf("[DB] Failed to clear tour days: tour_id=%s err=%v", saved.ID, err)
		return nil, fmt.Errorf("failed to clear tour days: %w", err)
	}

	dayQuery := `INSERT INTO tour_days (id, tour_id, day_number, date) VALUES (?, ?, ?, ?)`
	stopQuery := `
		INSERT INTO tour_stops (id, tour_day_id, sequence_order, kind, customer_id,
		                        external_place_id, name, lat, lng, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stopCount := 0
	for i, day := range days {
		dayID := uuid.New().String()
		dayNumber := i + 1

		_, err := tx.ExecContext(ctx, dayQuery, dayID, saved.ID, dayNumber, day.Date.Format(dayDateFormat))
		if err != nil {
			log.Printf("[DB] Failed to create tour day: tour_id=%s day=%d err=%v", saved.ID, dayNumber, err)
			return nil, fmt.Errorf("failed to create tour day: %w", err)
		}

		for order, stop := range day.Stops {
			_, err := tx.ExecContext(ctx, stopQuery, uuid.New().String(), dayID, order, stop.Kind,
				stop.CustomerID, stop.ExternalPlaceID, stop.Name, stop.Lat, stop.Lng, stop.Address)
			if err != nil {
				log.Printf("[DB] Failed to create tour stop: tour_id=%s day=%d order=%d err=%v",
					saved.ID, dayNumber, order, err)
				return nil, fmt.Errorf("failed to create tour stop: %w", err)
			}
			stopCount++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[DB] Failed to commit itinerary save: tour_id=%s err=%v", saved.ID, err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[DB] Saved itinerary: tour_id=%s days=%d stops=%d", saved.ID, len(days), stopCount)
	return &saved, nil
}

func (r *tourRepository) LoadItinerary(ctx context.Context, tourID string) (*models.Tour, []models.Stop, error) {
	tour, err := r.GetByID(ctx, tourID)
	if err != nil {
		return nil, nil, err
	}

	query := `
		SELECT ts.id, ts.sequence_order, ts.kind, ts.customer_id, ts.external_place_id,
		       ts.name, ts.lat, ts.lng, ts.address,
		       c.id, c.name, c.address, c.lat, c.lng, c.category, c.status, c.email, c.phone, c.website
		FROM tour_stops ts
		JOIN tour_days td ON td.id = ts.tour_day_id
		LEFT JOIN customers c ON c.id = ts.customer_id
		WHERE td.tour_id = ?
		ORDER BY td.day_number ASC, ts.sequence_order ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tourID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query tour stops: %w", err)
	}
	defer rows.Close()

	var stops []models.Stop
	for rows.Next() {
		var rec models.TourStopRecord
		var joined joinedCustomer

		err := rows.Scan(&rec.ID, &rec.SequenceOrder, &rec.Kind, &rec.CustomerID, &rec.ExternalPlaceID,
			&rec.Name, &rec.Lat, &rec.Lng, &rec.Address,
			&joined.id, &joined.name, &joined.address, &joined.lat, &joined.lng,
			&joined.category, &joined.status, &joined.email, &joined.phone, &joined.website)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan tour stop: %w", err)
		}

		stop, err := decodeStopRow(&rec, &joined)
		if err != nil {
			log.Printf("[DB] Rejected stored stop row: tour_id=%s stop_id=%s err=%v", tourID, rec.ID, err)
			return nil, nil, err
		}
		stops = append(stops, stop)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tour, stops, nil
}

func (r *tourRepository) ListDays(ctx context.Context, tourID string) ([]models.TourDay, error) {
	query := `SELECT id, tour_id, day_number, date FROM tour_days WHERE tour_id = ? ORDER BY day_number ASC`

	rows, err := r.db.QueryContext(ctx, query, tourID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tour days: %w", err)
	}
	defer rows.Close()

	var days []models.TourDay
	for rows.Next() {
		var d models.TourDay
		var date string
		if err := rows.Scan(&d.ID, &d.TourID, &d.DayNumber, &date); err != nil {
			return nil, fmt.Errorf("failed to scan tour day: %w", err)
		}
		d.Date, err = time.Parse(dayDateFormat, date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tour day date %q: %w", date, err)
		}
		days = append(days, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return days, nil
}

func (r *tourRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tours WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tour: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	log.Printf("[DB] Deleted tour: id=%s", id)
	return nil
}

// joinedCustomer holds the nullable customer columns of the itinerary
// join. All fields are null when the stop row references no customer.
type joinedCustomer struct {
	id       sql.NullString
	name     sql.NullString
	address  sql.NullString
	lat      sql.NullFloat64
	lng      sql.NullFloat64
	category sql.NullString
	status   sql.NullString
	email    sql.NullString
	phone    sql.NullString
	website  sql.NullString
}

// decodeStopRow turns a stored stop row into an in-memory stop.
// Decoding is strict: rows that are missing the data their kind
// requires are rejected rather than patched with defaults.
func decodeStopRow(rec *models.TourStopRecord, joined *joinedCustomer) (models.Stop, error) {
	switch rec.Kind {
	case models.StopKindCustomer:
		if !joined.id.Valid {
			return models.Stop{}, &models.ValidationError{
				StopID: rec.ID,
				Reason: "customer stop row references no existing customer",
			}
		}
		customer := &models.Customer{
			ID:   joined.id.String,
			Name: joined.name.String,
		}
		customer.Address = nullableString(joined.address)
		customer.Category = nullableString(joined.category)
		customer.Status = nullableString(joined.status)
		customer.Email = nullableString(joined.email)
		customer.Phone = nullableString(joined.phone)
		customer.Website = nullableString(joined.website)
		if joined.lat.Valid {
			customer.Lat = &joined.lat.Float64
		}
		if joined.lng.Valid {
			customer.Lng = &joined.lng.Float64
		}
		return models.Stop{ID: rec.ID, Kind: models.StopKindCustomer, Customer: customer}, nil

	case models.StopKindAnchor:
		if rec.Name == nil || rec.Lat == nil || rec.Lng == nil {
			return models.Stop{}, &models.ValidationError{
				StopID: rec.ID,
				Reason: "anchor stop row is missing name or coordinates",
			}
		}
		anchor := &models.AnchorData{
			Name: *rec.Name,
			Lat:  *rec.Lat,
			Lng:  *rec.Lng,
		}
		if rec.Address != nil {
			anchor.Address = *rec.Address
		}
		if rec.ExternalPlaceID != nil {
			anchor.ExternalPlaceID = *rec.ExternalPlaceID
		}
		return models.Stop{ID: rec.ID, Kind: models.StopKindAnchor, Anchor: anchor}, nil

	default:
		return models.Stop{}, &models.ValidationError{
			StopID: rec.ID,
			Reason: fmt.Sprintf("unknown stop kind %q", rec.Kind),
		}
	}
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
