package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tripdesk/marketplace-backend/internal/models"
)

// TripRepository handles database operations for the trips table. All status
// writes go through UpdateWithStatusCheck so a transition validated against a
// stale read cannot clobber a concurrent one.
type TripRepository struct {
	db DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripColumns = `
	id, customer_id, status, requirements, recommended_hotels,
	approved_hotel_id, rejected_hotel_ids, description, created_at, updated_at
`

// Create inserts a new trip
func (r *TripRepository) Create(trip *models.Trip) error {
	query := `
		INSERT INTO trips (
			id, customer_id, status, requirements, recommended_hotels,
			approved_hotel_id, rejected_hotel_ids, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	if trip.RejectedHotelIDs == nil {
		trip.RejectedHotelIDs = models.UUIDArray{}
	}

	err := r.db.QueryRow(
		query,
		trip.ID, trip.CustomerID, trip.Status, trip.Requirements,
		trip.RecommendedHotels, trip.ApprovedHotelID, trip.RejectedHotelIDs,
		trip.Description,
	).Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// GetByID retrieves a trip by ID
func (r *TripRepository) GetByID(id uuid.UUID) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := r.scanTrip(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "trip", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// GetByCustomerID retrieves all trips belonging to a customer
func (r *TripRepository) GetByCustomerID(customerID uuid.UUID) ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer trips: %w", err)
	}
	defer rows.Close()

	return r.scanTrips(rows)
}

// GetAll retrieves all trips, newest first
func (r *TripRepository) GetAll() ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	return r.scanTrips(rows)
}

// GetByStatus retrieves all trips in the given status, newest first
func (r *TripRepository) GetByStatus(status models.TripStatus) ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE status = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips by status: %w", err)
	}
	defer rows.Close()

	return r.scanTrips(rows)
}

// UpdateWithStatusCheck writes the trip's mutable fields with an optimistic
// precondition on status: the row is only updated if its stored status still
// matches expectedStatus (the status the caller validated the transition
// against). A lost race surfaces as ConcurrentModificationError.
func (r *TripRepository) UpdateWithStatusCheck(trip *models.Trip, expectedStatus models.TripStatus) error {
	query := `
		UPDATE trips
		SET status = $1,
			recommended_hotels = $2,
			approved_hotel_id = $3,
			rejected_hotel_ids = $4,
			description = $5,
			updated_at = NOW()
		WHERE id = $6 AND status = $7
	`

	result, err := r.db.Exec(
		query,
		trip.Status, trip.RecommendedHotels, trip.ApprovedHotelID,
		trip.RejectedHotelIDs, trip.Description, trip.ID, expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		// Either the trip vanished or its status moved under us.
		var exists bool
		if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM trips WHERE id = $1)`, trip.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check trip existence: %w", err)
		}
		if !exists {
			return &models.NotFoundError{Entity: "trip", ID: trip.ID.String()}
		}
		return &models.ConcurrentModificationError{Entity: "trip", ID: trip.ID.String()}
	}
	return nil
}

func (r *TripRepository) scanTrip(row rowScanner) (*models.Trip, error) {
	var trip models.Trip
	err := row.Scan(
		&trip.ID, &trip.CustomerID, &trip.Status, &trip.Requirements,
		&trip.RecommendedHotels, &trip.ApprovedHotelID, &trip.RejectedHotelIDs,
		&trip.Description, &trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *TripRepository) scanTrips(rows *sql.Rows) ([]models.Trip, error) {
	trips := []models.Trip{}
	for rows.Next() {
		trip, err := r.scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *trip)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return trips, nil
}
