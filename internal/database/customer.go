package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"tour-planner/internal/models"
)

// CustomerRepository handles customer directory persistence
type CustomerRepository interface {
	List(ctx context.Context, search string) ([]models.Customer, error)
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Customer, error)
	Create(ctx context.Context, c *models.Customer) (*models.Customer, error)
	Update(ctx context.Context, c *models.Customer) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
}

type customerRepository struct {
	db *sql.DB
}

const customerColumns = `id, name, address, lat, lng, category, status, email, phone, website, created_at, updated_at`

func scanCustomer(row interface{ Scan(...interface{}) error }) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Lat, &c.Lng, &c.Category,
		&c.Status, &c.Email, &c.Phone, &c.Website, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepository) List(ctx context.Context, search string) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	args := []interface{}{}

	if search != "" {
		query += ` WHERE name LIKE ? OR address LIKE ?`
		args = append(args, "%"+search+"%", "%"+search+"%")
	}

	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return customers, nil
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`

	c, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return c, nil
}

func (r *customerRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Customer, error) {
	if len(ids) == 0 {
		return []models.Customer{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id IN (` +
		strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers by ids: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return customers, nil
}

func (r *customerRepository) Create(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query := `
		INSERT INTO customers (id, name, address, lat, lng, category, status, email, phone, website)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Address, c.Lat, c.Lng,
		c.Category, c.Status, c.Email, c.Phone, c.Website).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		log.Printf("[DB] Failed to create customer: name=%s err=%v", c.Name, err)
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	log.Printf("[DB] Created customer: id=%s name=%s", c.ID, c.Name)
	return c, nil
}

func (r *customerRepository) Update(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	query := `
		UPDATE customers
		SET name = ?, address = ?, lat = ?, lng = ?, category = ?, status = ?,
		    email = ?, phone = ?, website = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, c.Name, c.Address, c.Lat, c.Lng,
		c.Category, c.Status, c.Email, c.Phone, c.Website, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("[DB] Failed to update customer: id=%s err=%v", c.ID, err)
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	log.Printf("[DB] Updated customer: id=%s name=%s", c.ID, c.Name)
	return c, nil
}

func (r *customerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	log.Printf("[DB] Deleted customer: id=%s", id)
	return nil
}
