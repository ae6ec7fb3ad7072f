package models

import "fmt"

// ValidationError indicates a malformed or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError indicates the requested entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ForbiddenError indicates the caller's role does not permit the operation.
type ForbiddenError struct {
	Role      Role
	Operation string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Operation)
}

// InvalidTransitionError indicates a state machine precondition was not met.
// Current and Requested name the states involved so callers can build a
// meaningful message.
type InvalidTransitionError struct {
	Entity    string
	ID        string
	Current   string
	Requested string
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("%s %s: cannot transition from %q to %q", e.Entity, e.ID, e.Current, e.Requested)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ConcurrentModificationError indicates the entity's status changed between
// read and write, so the optimistic precondition on the update failed.
type ConcurrentModificationError struct {
	Entity string
	ID     string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently, retry the operation", e.Entity, e.ID)
}

// CatalogUnavailableError indicates the hotel catalog could not be fetched.
type CatalogUnavailableError struct {
	Err error
}

func (e *CatalogUnavailableError) Error() string {
	return fmt.Sprintf("hotel catalog unavailable: %v", e.Err)
}

func (e *CatalogUnavailableError) Unwrap() error {
	return e.Err
}

// DuplicateRequestError indicates an RFQ already exists for a (trip, hotel) pair.
type DuplicateRequestError struct {
	TripID  string
	HotelID string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("hotel request already exists for trip %s and hotel %s", e.TripID, e.HotelID)
}
