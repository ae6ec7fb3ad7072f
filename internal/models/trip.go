package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TripStatus represents where a trip sits in its lifecycle
// Matches PostgreSQL ENUM: trip_status
type TripStatus string

const (
	TripStatusPending     TripStatus = "pending"     // Submitted, awaiting admin action
	TripStatusRecommended TripStatus = "recommended" // Admin approved a hotel, awaiting customer decision
	TripStatusAccepted    TripStatus = "accepted"    // Customer accepted; terminal, record is read-only
	TripStatusRejected    TripStatus = "rejected"    // Customer rejected; admin may regenerate or resend
)

// IsValid reports whether s is a known trip status.
func (s TripStatus) IsValid() bool {
	switch s {
	case TripStatusPending, TripStatusRecommended, TripStatusAccepted, TripStatusRejected:
		return true
	}
	return false
}

// TripRequirements is the customer-submitted form, stored as JSONB and never
// mutated after trip creation.
type TripRequirements struct {
	Destination       string   `json:"destination"`
	PreferredCities   string   `json:"preferred_cities"` // comma-separated
	EventPurpose      string   `json:"event_purpose"`
	Travelers         int      `json:"travelers"`
	StayNights        int      `json:"stay_nights"`
	CheckIn           string   `json:"check_in"`  // YYYY-MM-DD
	CheckOut          string   `json:"check_out"` // YYYY-MM-DD
	SingleRooms       int      `json:"single_rooms"`
	DoubleRooms       int      `json:"double_rooms"`
	TripleRooms       int      `json:"triple_rooms"`
	QuadRooms         int      `json:"quad_rooms"`
	StarCategories    []int    `json:"star_categories"`
	LocationTypes     []string `json:"location_types"`
	RequiresEventHall bool     `json:"requires_event_hall"`
	AVRequirements    []string `json:"av_requirements"`
	Meals             []string `json:"meals"`
	Description       string   `json:"description"`
}

// RequiredRooms returns the requested counts as a RoomInventory.
func (r *TripRequirements) RequiredRooms() RoomInventory {
	return RoomInventory{
		Single: r.SingleRooms,
		Double: r.DoubleRooms,
		Triple: r.TripleRooms,
		Quad:   r.QuadRooms,
	}
}

// PreferredCityList splits the comma-separated preferred cities into a
// normalized lowercase list.
func (r *TripRequirements) PreferredCityList() []string {
	var cities []string
	for _, c := range strings.Split(r.PreferredCities, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			cities = append(cities, c)
		}
	}
	return cities
}

// Validate checks the requirement fields a trip cannot be created without.
func (r *TripRequirements) Validate() error {
	if strings.TrimSpace(r.Destination) == "" && strings.TrimSpace(r.PreferredCities) == "" {
		return NewValidationError("destination", "destination or preferred cities is required")
	}
	if r.Travelers <= 0 {
		return NewValidationError("travelers", "traveler count must be positive")
	}
	if r.CheckIn == "" {
		return NewValidationError("check_in", "check-in date is required")
	}
	if r.CheckOut == "" {
		return NewValidationError("check_out", "check-out date is required")
	}
	checkIn, err := time.Parse("2006-01-02", r.CheckIn)
	if err != nil {
		return NewValidationError("check_in", "invalid date, expected YYYY-MM-DD")
	}
	checkOut, err := time.Parse("2006-01-02", r.CheckOut)
	if err != nil {
		return NewValidationError("check_out", "invalid date, expected YYYY-MM-DD")
	}
	if !checkIn.Before(checkOut) {
		return NewValidationError("check_out", "check-out must be after check-in")
	}
	if r.SingleRooms < 0 || r.DoubleRooms < 0 || r.TripleRooms < 0 || r.QuadRooms < 0 {
		return NewValidationError("rooms", "room counts cannot be negative")
	}
	for _, star := range r.StarCategories {
		if star < 1 || star > 5 {
			return NewValidationError("star_categories", "star ratings must be between 1 and 5")
		}
	}
	return nil
}

// Value implements the driver.Valuer interface
func (r TripRequirements) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface
func (r *TripRequirements) Scan(src interface{}) error {
	if src == nil {
		*r = TripRequirements{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("trip requirements: expected []byte from database")
	}
	return json.Unmarshal(b, r)
}

// Trip is a customer's submitted event/stay requirement record and its
// evolving recommendation/approval state. Trips are never deleted; accepted
// and rejected trips are retained as history.
type Trip struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	CustomerID        uuid.UUID         `db:"customer_id" json:"customer_id"`
	Status            TripStatus        `db:"status" json:"status"`
	Requirements      TripRequirements  `db:"requirements" json:"requirements"`
	RecommendedHotels HotelSnapshotList `db:"recommended_hotels" json:"recommended_hotels"`
	ApprovedHotelID   *uuid.UUID        `db:"approved_hotel_id" json:"approved_hotel_id,omitempty"`
	RejectedHotelIDs  UUIDArray         `db:"rejected_hotel_ids" json:"rejected_hotel_ids"`
	Description       *string           `db:"description" json:"description,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// IsAccepted reports whether the trip has reached its terminal read-only state.
func (t *Trip) IsAccepted() bool {
	return t.Status == TripStatusAccepted
}
