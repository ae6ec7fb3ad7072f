package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripdesk/marketplace-backend/internal/events"
	"github.com/tripdesk/marketplace-backend/internal/models"
)

// TripStore is the persistence contract the trip lifecycle manager consumes.
type TripStore interface {
	Create(trip *models.Trip) error
	GetByID(id uuid.UUID) (*models.Trip, error)
	GetByCustomerID(customerID uuid.UUID) ([]models.Trip, error)
	GetAll() ([]models.Trip, error)
	GetByStatus(status models.TripStatus) ([]models.Trip, error)
	UpdateWithStatusCheck(trip *models.Trip, expectedStatus models.TripStatus) error
}

// EventPublisher sends domain events after successful transitions. Publish
// failures never roll a transition back.
type EventPublisher interface {
	PublishTripStatusChanged(ctx context.Context, event events.TripStatusChangedEvent) error
	PublishQuoteSubmitted(ctx context.Context, event events.QuoteSubmittedEvent) error
}

// TripService owns the trip status state machine:
//
//	pending → recommended → accepted (terminal)
//	                      → rejected → recommended (retry loop)
//
// Every mutation validates the transition against a fresh read and writes
// with a compare-and-swap on status, so two admins racing on the same trip
// cannot both win.
type TripService struct {
	trips       TripStore
	recommender *RecommendationService
	publisher   EventPublisher
	logger      *logrus.Logger
}

// NewTripService creates a new trip lifecycle service
func NewTripService(
	trips TripStore,
	recommender *RecommendationService,
	publisher EventPublisher,
	logger *logrus.Logger,
) *TripService {
	return &TripService{
		trips:       trips,
		recommender: recommender,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateTrip validates the submitted requirements, generates the initial
// recommendation set, and persists the trip in pending. Zero recommendations
// is a hard failure, not a valid empty result.
func (s *TripService) CreateTrip(ctx context.Context, principal models.Principal, req models.TripRequirements) (*models.Trip, error) {
	if !principal.IsCustomer() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "create trips"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	recommendations, err := s.recommender.Generate(ctx, &req, nil)
	if err != nil {
		return nil, err
	}
	if len(recommendations) == 0 {
		return nil, &models.CatalogUnavailableError{Err: errors.New("no hotels available to recommend")}
	}

	trip := &models.Trip{
		CustomerID:        principal.ID,
		Status:            models.TripStatusPending,
		Requirements:      req,
		RecommendedHotels: recommendations,
		RejectedHotelIDs:  models.UUIDArray{},
	}
	if req.Description != "" {
		desc := req.Description
		trip.Description = &desc
	}

	if err := s.trips.Create(trip); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":         trip.ID,
		"customer_id":     trip.CustomerID,
		"recommendations": len(recommendations),
	}).Info("Trip created")

	s.publishStatusChange(ctx, trip, "")
	return trip, nil
}

// GetTrip returns a trip. Customers can only see their own; admins see all.
func (s *TripService) GetTrip(ctx context.Context, principal models.Principal, tripID uuid.UUID) (*models.Trip, error) {
	trip, err := s.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	switch {
	case principal.IsAdmin():
		return trip, nil
	case principal.IsCustomer() && trip.CustomerID == principal.ID:
		return trip, nil
	default:
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "view this trip"}
	}
}

// ListTrips returns all trips. Admin only.
func (s *TripService) ListTrips(ctx context.Context, principal models.Principal) ([]models.Trip, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "list all trips"}
	}
	return s.trips.GetAll()
}

// ListTripsByStatus returns all trips in the given status. Admin only.
func (s *TripService) ListTripsByStatus(ctx context.Context, principal models.Principal, status models.TripStatus) ([]models.Trip, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "list trips by status"}
	}
	if !status.IsValid() {
		return nil, models.NewValidationError("status", "unknown trip status")
	}
	return s.trips.GetByStatus(status)
}

// ListCustomerTrips returns the caller's own trips. Customer only.
func (s *TripService) ListCustomerTrips(ctx context.Context, principal models.Principal) ([]models.Trip, error) {
	if !principal.IsCustomer() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "list own trips"}
	}
	return s.trips.GetByCustomerID(principal.ID)
}

// ApproveHotel moves a pending (or rejected) trip to recommended with the
// chosen hotel. The hotel must be a member of the trip's current
// recommendation snapshot and must not already have been rejected by the
// customer.
func (s *TripService) ApproveHotel(ctx context.Context, principal models.Principal, tripID, hotelID uuid.UUID, note *string) (*models.Trip, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "approve hotels"}
	}

	trip, err := s.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	if err := s.checkApprovable(trip); err != nil {
		return nil, err
	}
	return s.approve(ctx, trip, hotelID, note)
}

// ResendHotel re-offers one of the other previously recommended hotels on a
// rejected trip without regenerating the candidate set.
func (s *TripService) ResendHotel(ctx context.Context, principal models.Principal, tripID, hotelID uuid.UUID, note *string) (*models.Trip, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "resend hotels"}
	}

	trip, err := s.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusRejected {
		return nil, &models.InvalidTransitionError{
			Entity:    "trip",
			ID:        trip.ID.String(),
			Current:   string(trip.Status),
			Requested: string(models.TripStatusRecommended),
			Reason:    "only rejected trips can be resent",
		}
	}
	return s.approve(ctx, trip, hotelID, note)
}

// ApproveFromQuote binds a selected RFQ quote's hotel to the trip, entering
// recommended. If the hotel was RFQ'd outside the original recommendation
// set, its snapshot is appended first so the approved id always references a
// member of the set.
func (s *TripService) ApproveFromQuote(ctx context.Context, principal models.Principal, tripID uuid.UUID, snapshot models.HotelSnapshot, note *string) (*models.Trip, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "select quotes"}
	}

	trip, err := s.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	if err := s.checkApprovable(trip); err != nil {
		return nil, err
	}
	if !trip.RecommendedHotels.Contains(snapshot.ID) {
		trip.RecommendedHotels = append(trip.RecommendedHotels, snapshot)
	}
	return s.approve(ctx, trip, snapshot.ID, note)
}

// AcceptRecommendation is the customer's final yes. Requires status exactly
// recommended; afterwards the trip is immutable.
func (s *TripService) AcceptRecommendation(ctx context.Context, principal models.Principal, tripID uuid.UUID) (*models.Trip, error) {
	trip, err := s.ownTrip(principal, tripID, "accept recommendations")
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusRecommended {
		return nil, s.notRecommendedError(trip, models.TripStatusAccepted)
	}

	expected := trip.Status
	trip.Status = models.TripStatusAccepted
	if err := s.trips.UpdateWithStatusCheck(trip, expected); err != nil {
		return nil, err
	}

	s.logger.WithField("trip_id", trip.ID).Info("Trip accepted by customer")
	s.publishStatusChange(ctx, trip, expected)
	return trip, nil
}

// RejectRecommendation is the customer's no. Requires status exactly
// recommended; the rejected hotel is recorded so later rounds can exclude it.
func (s *TripService) RejectRecommendation(ctx context.Context, principal models.Principal, tripID uuid.UUID, reason *string) (*models.Trip, error) {
	trip, err := s.ownTrip(principal, tripID, "reject recommendations")
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusRecommended {
		return nil, s.notRecommendedError(trip, models.TripStatusRejected)
	}

	expected := trip.Status
	trip.Status = models.TripStatusRejected
	if trip.ApprovedHotelID != nil && !trip.RejectedHotelIDs.Contains(trip.ApprovedHotelID.String()) {
		trip.RejectedHotelIDs = append(trip.RejectedHotelIDs, trip.ApprovedHotelID.String())
	}
	trip.ApprovedHotelID = nil
	trip.Description = reason

	if err := s.trips.UpdateWithStatusCheck(trip, expected); err != nil {
		return nil, err
	}

	s.logger.WithField("trip_id", trip.ID).Info("Trip rejected by customer")
	s.publishStatusChange(ctx, trip, expected)
	return trip, nil
}

// RegenerateRecommendations produces a fresh candidate set for a rejected
// trip from its original requirements and re-enters recommended. Excluding
// previously rejected hotels is caller policy via excludeRejected.
func (s *TripService) RegenerateRecommendations(ctx context.Context, principal models.Principal, tripID uuid.UUID, excludeRejected bool) (*models.Trip, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "regenerate recommendations"}
	}

	trip, err := s.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	if trip.IsAccepted() {
		return nil, s.acceptedReadOnlyError(trip, models.TripStatusRecommended)
	}
	if trip.Status != models.TripStatusRejected {
		return nil, &models.InvalidTransitionError{
			Entity:    "trip",
			ID:        trip.ID.String(),
			Current:   string(trip.Status),
			Requested: string(models.TripStatusRecommended),
			Reason:    "only rejected trips can be regenerated",
		}
	}

	var exclude map[uuid.UUID]bool
	if excludeRejected && len(trip.RejectedHotelIDs) > 0 {
		exclude = make(map[uuid.UUID]bool, len(trip.RejectedHotelIDs))
		for _, id := range trip.RejectedHotelIDs {
			if parsed, err := uuid.Parse(id); err == nil {
				exclude[parsed] = true
			}
		}
	}

	recommendations, err := s.recommender.Generate(ctx, &trip.Requirements, exclude)
	if err != nil {
		return nil, err
	}
	if len(recommendations) == 0 {
		return nil, &models.CatalogUnavailableError{Err: errors.New("no hotels available to recommend")}
	}

	expected := trip.Status
	trip.Status = models.TripStatusRecommended
	trip.RecommendedHotels = recommendations
	trip.ApprovedHotelID = nil
	trip.Description = nil

	if err := s.trips.UpdateWithStatusCheck(trip, expected); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":         trip.ID,
		"recommendations": len(recommendations),
	}).Info("Trip recommendations regenerated")

	s.publishStatusChange(ctx, trip, expected)
	return trip, nil
}

// approve performs the shared recommended-entry write. The caller has
// already authorized the principal and validated the current status.
func (s *TripService) approve(ctx context.Context, trip *models.Trip, hotelID uuid.UUID, note *string) (*models.Trip, error) {
	if !trip.RecommendedHotels.Contains(hotelID) {
		return nil, &models.InvalidTransitionError{
			Entity:    "trip",
			ID:        trip.ID.String(),
			Current:   string(trip.Status),
			Requested: string(models.TripStatusRecommended),
			Reason:    "hotel " + hotelID.String() + " is not in the recommendation set",
		}
	}
	if trip.RejectedHotelIDs.Contains(hotelID.String()) {
		return nil, &models.InvalidTransitionError{
			Entity:    "trip",
			ID:        trip.ID.String(),
			Current:   string(trip.Status),
			Requested: string(models.TripStatusRecommended),
			Reason:    "hotel " + hotelID.String() + " was already rejected by the customer",
		}
	}

	expected := trip.Status
	trip.Status = models.TripStatusRecommended
	trip.ApprovedHotelID = &hotelID
	if note != nil {
		trip.Description = note
	}

	if err := s.trips.UpdateWithStatusCheck(trip, expected); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":  trip.ID,
		"hotel_id": hotelID,
	}).Info("Hotel approved for trip")

	s.publishStatusChange(ctx, trip, expected)
	return trip, nil
}

// checkApprovable guards the transitions that enter recommended from the
// admin side.
func (s *TripService) checkApprovable(trip *models.Trip) error {
	if trip.IsAccepted() {
		return s.acceptedReadOnlyError(trip, models.TripStatusRecommended)
	}
	if trip.Status != models.TripStatusPending && trip.Status != models.TripStatusRejected {
		return &models.InvalidTransitionError{
			Entity:    "trip",
			ID:        trip.ID.String(),
			Current:   string(trip.Status),
			Requested: string(models.TripStatusRecommended),
		}
	}
	return nil
}

// ownTrip fetches a trip and verifies the caller is its owning customer.
func (s *TripService) ownTrip(principal models.Principal, tripID uuid.UUID, operation string) (*models.Trip, error) {
	if !principal.IsCustomer() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: operation}
	}
	trip, err := s.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	if trip.CustomerID != principal.ID {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: operation + " on another customer's trip"}
	}
	return trip, nil
}

func (s *TripService) notRecommendedError(trip *models.Trip, requested models.TripStatus) error {
	if trip.IsAccepted() {
		return s.acceptedReadOnlyError(trip, requested)
	}
	return &models.InvalidTransitionError{
		Entity:    "trip",
		ID:        trip.ID.String(),
		Current:   string(trip.Status),
		Requested: string(requested),
		Reason:    "trip must currently be recommended",
	}
}

func (s *TripService) acceptedReadOnlyError(trip *models.Trip, requested models.TripStatus) error {
	return &models.InvalidTransitionError{
		Entity:    "trip",
		ID:        trip.ID.String(),
		Current:   string(trip.Status),
		Requested: string(requested),
		Reason:    "trip is accepted and read-only",
	}
}

func (s *TripService) publishStatusChange(ctx context.Context, trip *models.Trip, previous models.TripStatus) {
	if s.publisher == nil {
		return
	}
	event := events.TripStatusChangedEvent{
		TripID:         trip.ID.String(),
		CustomerID:     trip.CustomerID.String(),
		PreviousStatus: string(previous),
		NewStatus:      string(trip.Status),
		OccurredAt:     time.Now().UTC(),
	}
	if trip.ApprovedHotelID != nil {
		event.ApprovedHotelID = trip.ApprovedHotelID.String()
	}
	// Best effort: the publisher logs its own failures.
	_ = s.publisher.PublishTripStatusChanged(ctx, event)
}
