// Package postgres stores fleet state in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
)

// ErrPackageNotFound is returned when a delivery names an unknown package.
var ErrPackageNotFound = errors.New("postgres: package not found")

const (
	upsertTruck = `INSERT INTO trucks (truck_id, x, y, status, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (truck_id) DO UPDATE
SET x = EXCLUDED.x, y = EXCLUDED.y, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`

	markDelivered = `UPDATE packages
SET status = 'DELIVERED', delivered_at = NOW()
WHERE package_id = $1`
)

// Store implements ports.FleetStore.
type Store struct {
	db *sql.DB
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpdateTruck stores a truck's position and status.
func (s *Store) UpdateTruck(ctx context.Context, truckID, x, y int32, status domain.TruckStatus) error {
	if _, err := s.db.ExecContext(ctx, upsertTruck, truckID, x, y, status.String()); err != nil {
		return fmt.Errorf("upsert truck: %w", err)
	}
	return nil
}

// MarkPackageDelivered flags a package as delivered.
func (s *Store) MarkPackageDelivered(ctx context.Context, packageID int64) error {
	res, err := s.db.ExecContext(ctx, markDelivered, packageID)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrPackageNotFound, packageID)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
