package models

import "github.com/google/uuid"

// Role identifies which side of the marketplace a caller belongs to.
// Matches PostgreSQL ENUM: user_role
type Role string

const (
	RoleCustomer     Role = "customer"
	RoleAdmin        Role = "admin"
	RoleHotelPartner Role = "hotel_partner"
)

// IsValid reports whether the role is one of the known marketplace roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleHotelPartner:
		return true
	}
	return false
}

// Principal is the authenticated caller of a core operation. It is always
// passed explicitly; the core never reads identity from ambient state.
type Principal struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsCustomer reports whether the principal holds the customer role.
func (p Principal) IsCustomer() bool {
	return p.Role == RoleCustomer
}

// IsHotelPartner reports whether the principal holds the hotel partner role.
func (p Principal) IsHotelPartner() bool {
	return p.Role == RoleHotelPartner
}
