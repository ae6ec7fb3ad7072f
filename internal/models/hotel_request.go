package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// HotelRequestStatus represents where an RFQ sits in its negotiation lifecycle
// Matches PostgreSQL ENUM: hotel_request_status
type HotelRequestStatus string

const (
	RequestStatusPending    HotelRequestStatus = "pending"    // RFQ dispatched, awaiting partner quote
	RequestStatusQuoted     HotelRequestStatus = "quoted"     // Partner submitted a quote; read-only to the partner
	RequestStatusSelected   HotelRequestStatus = "selected"   // Admin chose this quote for the trip
	RequestStatusRejected   HotelRequestStatus = "rejected"   // Partner declined the RFQ
	RequestStatusExpired    HotelRequestStatus = "expired"    // Deadline lapsed before a decision
	RequestStatusSuperseded HotelRequestStatus = "superseded" // A sibling quote was selected for the trip
)

// IsTerminal reports whether no further partner or admin action applies.
func (s HotelRequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusSelected, RequestStatusRejected, RequestStatusExpired, RequestStatusSuperseded:
		return true
	}
	return false
}

// QuoteInput is the itemized pricing a hotel partner submits. Derived totals
// are computed server-side, never trusted from the caller.
type QuoteInput struct {
	RoomCost        float64 `json:"room_cost"`
	FoodCost        float64 `json:"food_cost"`
	ConferenceCost  float64 `json:"conference_cost"`
	TransportCost   float64 `json:"transport_cost"`
	ExtraCharges    float64 `json:"extra_charges"`
	DiscountOffered float64 `json:"discount_offered"`
	TaxPercent      float64 `json:"tax_percent"`
	ServicePercent  float64 `json:"service_percent"`
}

// Validate checks the submitted cost components.
func (q *QuoteInput) Validate() error {
	if q.RoomCost < 0 || q.FoodCost < 0 || q.ConferenceCost < 0 || q.TransportCost < 0 {
		return NewValidationError("costs", "itemized costs cannot be negative")
	}
	if q.ExtraCharges < 0 {
		return NewValidationError("extra_charges", "extra charges cannot be negative")
	}
	if q.DiscountOffered < 0 {
		return NewValidationError("discount_offered", "discount cannot be negative")
	}
	if q.TaxPercent < 0 || q.TaxPercent > 100 {
		return NewValidationError("tax_percent", "tax percent must be between 0 and 100")
	}
	if q.ServicePercent < 0 || q.ServicePercent > 100 {
		return NewValidationError("service_percent", "service percent must be between 0 and 100")
	}
	return nil
}

// StructuredQuote is the full quote stored on a hotel request: the partner's
// itemized costs plus the totals derived from them. Stored as JSONB.
type StructuredQuote struct {
	RoomCost        float64   `json:"room_cost"`
	FoodCost        float64   `json:"food_cost"`
	ConferenceCost  float64   `json:"conference_cost"`
	TransportCost   float64   `json:"transport_cost"`
	ExtraCharges    float64   `json:"extra_charges"`
	DiscountOffered float64   `json:"discount_offered"`
	TaxPercent      float64   `json:"tax_percent"`
	ServicePercent  float64   `json:"service_percent"`
	Subtotal        float64   `json:"subtotal"`
	Taxes           float64   `json:"taxes"`
	ServiceCharges  float64   `json:"service_charges"`
	BasePrice       float64   `json:"base_price"`
	FinalPrice      float64   `json:"final_price"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Value implements the driver.Valuer interface
func (q StructuredQuote) Value() (driver.Value, error) {
	return json.Marshal(q)
}

// Scan implements the sql.Scanner interface
func (q *StructuredQuote) Scan(src interface{}) error {
	if src == nil {
		*q = StructuredQuote{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("structured quote: expected []byte from database")
	}
	return json.Unmarshal(b, q)
}

// HotelRequest is a request-for-quote sent to one specific hotel for one
// specific trip. Exactly one exists per (trip, hotel) pair.
type HotelRequest struct {
	ID          uuid.UUID          `db:"id" json:"id"`
	TripID      uuid.UUID          `db:"trip_id" json:"trip_id"`
	HotelID     uuid.UUID          `db:"hotel_id" json:"hotel_id"`
	Status      HotelRequestStatus `db:"status" json:"status"`
	RoundNumber int                `db:"round_number" json:"round_number"`
	SystemScore float64            `db:"system_score" json:"system_score"`
	Deadline    time.Time          `db:"deadline" json:"deadline"`
	Quote       *StructuredQuote   `db:"quote" json:"quote,omitempty"`
	AdminNotes  *string            `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}
