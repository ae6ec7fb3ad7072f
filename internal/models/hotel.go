package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PriceTier represents a hotel's pricing band
// Matches PostgreSQL ENUM: price_tier
type PriceTier string

const (
	PriceTierBudget   PriceTier = "budget"
	PriceTierModerate PriceTier = "moderate"
	PriceTierLuxury   PriceTier = "luxury"
)

// RoomInventory holds per-room-type counts, stored as JSONB.
type RoomInventory struct {
	Single int `json:"single"`
	Double int `json:"double"`
	Triple int `json:"triple"`
	Quad   int `json:"quad"`
}

// Total returns the summed room count across all types.
func (r RoomInventory) Total() int {
	return r.Single + r.Double + r.Triple + r.Quad
}

// Value implements the driver.Valuer interface
func (r RoomInventory) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface
func (r *RoomInventory) Scan(src interface{}) error {
	if src == nil {
		*r = RoomInventory{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("room inventory: expected []byte from database")
	}
	return json.Unmarshal(b, r)
}

// Hotel is a catalog entity, externally managed and read-only from the
// core's perspective. The data-access layer constructs it as a single
// normalized type; the core never falls back between alternative field names.
type Hotel struct {
	ID                 uuid.UUID     `db:"id" json:"id"`
	PartnerID          *uuid.UUID    `db:"partner_id" json:"partner_id,omitempty"`
	Name               string        `db:"name" json:"name"`
	City               string        `db:"city" json:"city"`
	StarRating         int           `db:"star_rating" json:"star_rating"`
	Rating             float64       `db:"rating" json:"rating"`
	PricePerNight      float64       `db:"price_per_night" json:"price_per_night"`
	PriceTier          PriceTier     `db:"price_tier" json:"price_tier"`
	Amenities          StringArray   `db:"amenities" json:"amenities"`
	LocationTypes      StringArray   `db:"location_types" json:"location_types"`
	RoomTypes          RoomInventory `db:"room_types" json:"room_types"`
	EventHallAvailable bool          `db:"event_hall_available" json:"event_hall_available"`
	HallCapacity       int           `db:"hall_capacity" json:"hall_capacity"`
	AVEquipment        StringArray   `db:"av_equipment" json:"av_equipment"`
	MealOptions        StringArray   `db:"meal_options" json:"meal_options"`
	Description        *string       `db:"description" json:"description,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// HotelSnapshot is a denormalized copy of a hotel captured at recommendation
// time, together with the match score it earned. Later catalog edits must not
// retroactively change a trip's history, so the trip stores these copies
// rather than live references.
type HotelSnapshot struct {
	ID                 uuid.UUID     `json:"id"`
	PartnerID          *uuid.UUID    `json:"partner_id,omitempty"`
	Name               string        `json:"name"`
	City               string        `json:"city"`
	StarRating         int           `json:"star_rating"`
	Rating             float64       `json:"rating"`
	PricePerNight      float64       `json:"price_per_night"`
	PriceTier          PriceTier     `json:"price_tier"`
	Amenities          []string      `json:"amenities"`
	LocationTypes      []string      `json:"location_types"`
	RoomTypes          RoomInventory `json:"room_types"`
	EventHallAvailable bool          `json:"event_hall_available"`
	HallCapacity       int           `json:"hall_capacity"`
	AVEquipment        []string      `json:"av_equipment"`
	MealOptions        []string      `json:"meal_options"`
	MatchScore         float64       `json:"match_score"`
	MatchReasons       []string      `json:"match_reasons"`
	CapturedAt         time.Time     `json:"captured_at"`
}

// Snapshot captures an immutable copy of the hotel with its match score.
// Slices are copied so later catalog mutation cannot leak through.
func (h *Hotel) Snapshot(score float64, reasons []string, at time.Time) HotelSnapshot {
	return HotelSnapshot{
		ID:                 h.ID,
		PartnerID:          h.PartnerID,
		Name:               h.Name,
		City:               h.City,
		StarRating:         h.StarRating,
		Rating:             h.Rating,
		PricePerNight:      h.PricePerNight,
		PriceTier:          h.PriceTier,
		Amenities:          append([]string(nil), h.Amenities...),
		LocationTypes:      append([]string(nil), h.LocationTypes...),
		RoomTypes:          h.RoomTypes,
		EventHallAvailable: h.EventHallAvailable,
		HallCapacity:       h.HallCapacity,
		AVEquipment:        append([]string(nil), h.AVEquipment...),
		MealOptions:        append([]string(nil), h.MealOptions...),
		MatchScore:         score,
		MatchReasons:       append([]string(nil), reasons...),
		CapturedAt:         at,
	}
}

// HotelSnapshotList stores a trip's recommended hotels in JSONB.
type HotelSnapshotList []HotelSnapshot

// Value implements the driver.Valuer interface
func (l HotelSnapshotList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]HotelSnapshot{})
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface
func (l *HotelSnapshotList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("hotel snapshot list: expected []byte from database")
	}
	return json.Unmarshal(b, l)
}

// Find returns the snapshot for the given hotel id, if present.
func (l HotelSnapshotList) Find(hotelID uuid.UUID) (*HotelSnapshot, bool) {
	for i := range l {
		if l[i].ID == hotelID {
			return &l[i], true
		}
	}
	return nil, false
}

// Contains reports whether a snapshot for the given hotel id is present.
func (l HotelSnapshotList) Contains(hotelID uuid.UUID) bool {
	_, ok := l.Find(hotelID)
	return ok
}
