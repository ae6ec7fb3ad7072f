package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tripdesk/marketplace-backend/internal/models"
)

// HotelRequestRepository handles database operations for the hotel_requests
// table. The (trip_id, hotel_id) pair is unique: issuing a second RFQ to the
// same hotel for the same trip is rejected at the constraint.
type HotelRequestRepository struct {
	db DB
}

// NewHotelRequestRepository creates a new HotelRequestRepository
func NewHotelRequestRepository(db DB) *HotelRequestRepository {
	return &HotelRequestRepository{db: db}
}

const hotelRequestColumns = `
	id, trip_id, hotel_id, status, round_number, system_score, deadline,
	quote, admin_notes, created_at, updated_at
`

// Create inserts a new hotel request. Fails with DuplicateRequestError when
// an RFQ already exists for the (trip, hotel) pair.
func (r *HotelRequestRepository) Create(req *models.HotelRequest) error {
	query := `
		INSERT INTO hotel_requests (
			id, trip_id, hotel_id, status, round_number, system_score,
			deadline, quote, admin_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	err := r.db.QueryRow(
		query,
		req.ID, req.TripID, req.HotelID, req.Status, req.RoundNumber,
		req.SystemScore, req.Deadline, req.Quote, req.AdminNotes,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return &models.DuplicateRequestError{
				TripID:  req.TripID.String(),
				HotelID: req.HotelID.String(),
			}
		}
		return fmt.Errorf("failed to create hotel request: %w", err)
	}
	return nil
}

// GetByID retrieves a hotel request by ID
func (r *HotelRequestRepository) GetByID(id uuid.UUID) (*models.HotelRequest, error) {
	query := `SELECT ` + hotelRequestColumns + ` FROM hotel_requests WHERE id = $1`

	req, err := r.scanRequest(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "hotel request", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hotel request: %w", err)
	}
	return req, nil
}

// GetByTripAndHotel retrieves the request for a (trip, hotel) pair
func (r *HotelRequestRepository) GetByTripAndHotel(tripID, hotelID uuid.UUID) (*models.HotelRequest, error) {
	query := `SELECT ` + hotelRequestColumns + ` FROM hotel_requests WHERE trip_id = $1 AND hotel_id = $2`

	req, err := r.scanRequest(r.db.QueryRow(query, tripID, hotelID))
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "hotel request", ID: tripID.String() + "/" + hotelID.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hotel request: %w", err)
	}
	return req, nil
}

// GetByTripID retrieves all requests issued for a trip, newest first
func (r *HotelRequestRepository) GetByTripID(tripID uuid.UUID) ([]models.HotelRequest, error) {
	query := `SELECT ` + hotelRequestColumns + ` FROM hotel_requests WHERE trip_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip requests: %w", err)
	}
	defer rows.Close()

	return r.scanRequests(rows)
}

// GetByPartnerID retrieves all requests targeting hotels owned by a partner
func (r *HotelRequestRepository) GetByPartnerID(partnerID uuid.UUID) ([]models.HotelRequest, error) {
	query := `
		SELECT ` + hotelRequestColumns + `
		FROM hotel_requests
		WHERE hotel_id IN (SELECT id FROM hotels WHERE partner_id = $1)
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list partner requests: %w", err)
	}
	defer rows.Close()

	return r.scanRequests(rows)
}

// GetExpiredActive returns requests whose deadline has passed while still
// pending or quoted, oldest deadline first.
func (r *HotelRequestRepository) GetExpiredActive(limit int) ([]models.HotelRequest, error) {
	query := `
		SELECT ` + hotelRequestColumns + `
		FROM hotel_requests
		WHERE status IN ('pending', 'quoted') AND deadline < NOW()
		ORDER BY deadline
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired requests: %w", err)
	}
	defer rows.Close()

	return r.scanRequests(rows)
}

// UpdateWithStatusCheck writes the request's mutable fields with an
// optimistic precondition on status, mirroring the trip repository's
// compare-and-swap contract.
func (r *HotelRequestRepository) UpdateWithStatusCheck(req *models.HotelRequest, expectedStatus models.HotelRequestStatus) error {
	query := `
		UPDATE hotel_requests
		SET status = $1,
			round_number = $2,
			deadline = $3,
			quote = $4,
			admin_notes = $5,
			updated_at = NOW()
		WHERE id = $6 AND status = $7
	`

	result, err := r.db.Exec(
		query,
		req.Status, req.RoundNumber, req.Deadline, req.Quote,
		req.AdminNotes, req.ID, expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update hotel request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM hotel_requests WHERE id = $1)`, req.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check hotel request existence: %w", err)
		}
		if !exists {
			return &models.NotFoundError{Entity: "hotel request", ID: req.ID.String()}
		}
		return &models.ConcurrentModificationError{Entity: "hotel request", ID: req.ID.String()}
	}
	return nil
}

// SupersedeSiblings moves every other still-open request for the trip to
// superseded and returns how many rows changed.
func (r *HotelRequestRepository) SupersedeSiblings(tripID, selectedRequestID uuid.UUID) (int64, error) {
	query := `
		UPDATE hotel_requests
		SET status = $1, updated_at = NOW()
		WHERE trip_id = $2 AND id != $3 AND status IN ('pending', 'quoted')
	`

	result, err := r.db.Exec(query, models.RequestStatusSuperseded, tripID, selectedRequestID)
	if err != nil {
		return 0, fmt.Errorf("failed to supersede sibling requests: %w", err)
	}
	return result.RowsAffected()
}

func (r *HotelRequestRepository) scanRequest(row rowScanner) (*models.HotelRequest, error) {
	var req models.HotelRequest
	err := row.Scan(
		&req.ID, &req.TripID, &req.HotelID, &req.Status, &req.RoundNumber,
		&req.SystemScore, &req.Deadline, &req.Quote, &req.AdminNotes,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *HotelRequestRepository) scanRequests(rows *sql.Rows) ([]models.HotelRequest, error) {
	requests := []models.HotelRequest{}
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hotel request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}
