package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DataStore is the interface for data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Customers() CustomerRepository
	Tours() TourRepository
}

// DB wraps the database connection and provides access to repositories
type DB struct {
	conn               *sql.DB
	customerRepository CustomerRepository
	tourRepository     TourRepository
}

func (db *DB) Customers() CustomerRepository { return db.customerRepository }
func (db *DB) Tours() TourRepository         { return db.tourRepository }

// New creates a new database connection, applies pragmas and runs
// the schema migration
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time and the pragmas below are
	// per-connection, so the pool is capped at a single connection.
	// This also keeps :memory: databases on one shared handle.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("[DB] Opened database: path=%s", dbPath)

	db := &DB{
		conn:               conn,
		customerRepository: &customerRepository{db: conn},
		tourRepository:     &tourRepository{db: conn},
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// HealthCheck verifies the database connection is alive
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// runMigrations executes the schema SQL
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
