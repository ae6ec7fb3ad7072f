package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripdesk/marketplace-backend/internal/events"
	"github.com/tripdesk/marketplace-backend/internal/models"
	"github.com/tripdesk/marketplace-backend/pkg/pricing"
)

// HotelRequestStore is the persistence contract the RFQ manager consumes.
type HotelRequestStore interface {
	Create(req *models.HotelRequest) error
	GetByID(id uuid.UUID) (*models.HotelRequest, error)
	GetByTripAndHotel(tripID, hotelID uuid.UUID) (*models.HotelRequest, error)
	GetByTripID(tripID uuid.UUID) ([]models.HotelRequest, error)
	GetByPartnerID(partnerID uuid.UUID) ([]models.HotelRequest, error)
	GetExpiredActive(limit int) ([]models.HotelRequest, error)
	UpdateWithStatusCheck(req *models.HotelRequest, expectedStatus models.HotelRequestStatus) error
	SupersedeSiblings(tripID, selectedRequestID uuid.UUID) (int64, error)
}

// RFQService owns the per-hotel request-for-quote state machine:
//
//	pending → quoted → selected | superseded
//	pending → rejected (partner decline)
//	pending/quoted → expired (deadline lapse)
//	rejected/expired → pending (admin reopens, next negotiation round)
//
// It feeds into, but is separate from, the trip state machine: selecting a
// quote drives the trip's entry into recommended.
type RFQService struct {
	requests      HotelRequestStore
	trips         TripStore
	catalog       HotelCatalog
	tripService   *TripService
	scorer        *ScoringEngine
	publisher     EventPublisher
	quoteDeadline time.Duration
	logger        *logrus.Logger
}

// NewRFQService creates a new RFQ negotiation service
func NewRFQService(
	requests HotelRequestStore,
	trips TripStore,
	catalog HotelCatalog,
	tripService *TripService,
	scorer *ScoringEngine,
	publisher EventPublisher,
	quoteDeadline time.Duration,
	logger *logrus.Logger,
) *RFQService {
	return &RFQService{
		requests:      requests,
		trips:         trips,
		catalog:       catalog,
		tripService:   tripService,
		scorer:        scorer,
		publisher:     publisher,
		quoteDeadline: quoteDeadline,
		logger:        logger,
	}
}

// CreateHotelRequest dispatches an RFQ to one hotel for one trip. Exactly
// one request may exist per (trip, hotel) pair; duplicates fail with
// DuplicateRequestError.
func (s *RFQService) CreateHotelRequest(ctx context.Context, principal models.Principal, tripID, hotelID uuid.UUID, adminNotes *string) (*models.HotelRequest, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "create hotel requests"}
	}

	trip, err := s.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	if trip.IsAccepted() {
		return nil, &models.InvalidTransitionError{
			Entity:    "trip",
			ID:        trip.ID.String(),
			Current:   string(trip.Status),
			Requested: string(models.RequestStatusPending),
			Reason:    "trip is accepted and read-only",
		}
	}

	hotel, err := s.catalog.GetByID(ctx, hotelID)
	if err != nil {
		return nil, err
	}

	// Capture the score the hotel earned for this trip so admins can weigh
	// quotes against the system's own ranking.
	systemScore := 0.0
	if snapshot, ok := trip.RecommendedHotels.Find(hotelID); ok {
		systemScore = snapshot.MatchScore
	} else {
		systemScore = s.scorer.Score(hotel, &trip.Requirements).Score
	}

	req := &models.HotelRequest{
		TripID:      tripID,
		HotelID:     hotelID,
		Status:      models.RequestStatusPending,
		RoundNumber: 1,
		SystemScore: systemScore,
		Deadline:    time.Now().Add(s.quoteDeadline),
		AdminNotes:  adminNotes,
	}

	if err := s.requests.Create(req); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"trip_id":    tripID,
		"hotel_id":   hotelID,
		"deadline":   req.Deadline,
	}).Info("Hotel request created")

	return req, nil
}

// GetRequest returns a single request. Admins see all; a hotel partner only
// sees requests targeting their own hotels.
func (s *RFQService) GetRequest(ctx context.Context, principal models.Principal, requestID uuid.UUID) (*models.HotelRequest, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if principal.IsAdmin() {
		return req, nil
	}
	if principal.IsHotelPartner() {
		if err := s.checkPartnerOwnsHotel(ctx, principal, req.HotelID, "view this request"); err != nil {
			return nil, err
		}
		return req, nil
	}
	return nil, &models.ForbiddenError{Role: principal.Role, Operation: "view hotel requests"}
}

// ListRequestsForTrip returns all requests issued for a trip. Admin only.
func (s *RFQService) ListRequestsForTrip(ctx context.Context, principal models.Principal, tripID uuid.UUID) ([]models.HotelRequest, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "list trip requests"}
	}
	return s.requests.GetByTripID(tripID)
}

// ListRequestsForPartner returns the requests targeting the calling
// partner's hotels. Hotel partner only.
func (s *RFQService) ListRequestsForPartner(ctx context.Context, principal models.Principal) ([]models.HotelRequest, error) {
	if !principal.IsHotelPartner() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "list partner requests"}
	}
	return s.requests.GetByPartnerID(principal.ID)
}

// SubmitQuote records a partner's structured quote exactly once while the
// request is pending. Derived totals are computed server-side; once quoted,
// the quote is read-only to the partner.
func (s *RFQService) SubmitQuote(ctx context.Context, principal models.Principal, requestID uuid.UUID, input models.QuoteInput) (*models.HotelRequest, error) {
	if !principal.IsHotelPartner() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "submit quotes"}
	}

	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPartnerOwnsHotel(ctx, principal, req.HotelID, "submit a quote for this request"); err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		reason := "request is not awaiting a quote"
		if req.Status == models.RequestStatusQuoted {
			reason = "a quote was already submitted for this request"
		}
		return nil, &models.InvalidTransitionError{
			Entity:    "hotel request",
			ID:        req.ID.String(),
			Current:   string(req.Status),
			Requested: string(models.RequestStatusQuoted),
			Reason:    reason,
		}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	breakdown := pricing.Calculate(pricing.Input{
		RoomCost:        input.RoomCost,
		FoodCost:        input.FoodCost,
		ConferenceCost:  input.ConferenceCost,
		TransportCost:   input.TransportCost,
		ExtraCharges:    input.ExtraCharges,
		DiscountOffered: input.DiscountOffered,
		TaxPercent:      input.TaxPercent,
		ServicePercent:  input.ServicePercent,
	})
	if breakdown.FinalPrice < 0 {
		return nil, models.NewValidationError("discount_offered", "discount exceeds the quoted price")
	}

	req.Quote = &models.StructuredQuote{
		RoomCost:        input.RoomCost,
		FoodCost:        input.FoodCost,
		ConferenceCost:  input.ConferenceCost,
		TransportCost:   input.TransportCost,
		ExtraCharges:    input.ExtraCharges,
		DiscountOffered: input.DiscountOffered,
		TaxPercent:      input.TaxPercent,
		ServicePercent:  input.ServicePercent,
		Subtotal:        breakdown.Subtotal,
		Taxes:           breakdown.Taxes,
		ServiceCharges:  breakdown.ServiceCharges,
		BasePrice:       breakdown.BasePrice,
		FinalPrice:      breakdown.FinalPrice,
		SubmittedAt:     time.Now().UTC(),
	}
	req.Status = models.RequestStatusQuoted

	if err := s.requests.UpdateWithStatusCheck(req, models.RequestStatusPending); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":  req.ID,
		"trip_id":     req.TripID,
		"hotel_id":    req.HotelID,
		"final_price": req.Quote.FinalPrice,
	}).Info("Quote submitted")

	if s.publisher != nil {
		_ = s.publisher.PublishQuoteSubmitted(ctx, events.QuoteSubmittedEvent{
			RequestID:   req.ID.String(),
			TripID:      req.TripID.String(),
			HotelID:     req.HotelID.String(),
			FinalPrice:  req.Quote.FinalPrice,
			RoundNumber: req.RoundNumber,
			OccurredAt:  time.Now().UTC(),
		})
	}

	return req, nil
}

// DeclineRequest lets a partner turn an RFQ down while it is pending.
func (s *RFQService) DeclineRequest(ctx context.Context, principal models.Principal, requestID uuid.UUID) (*models.HotelRequest, error) {
	if !principal.IsHotelPartner() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "decline requests"}
	}

	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPartnerOwnsHotel(ctx, principal, req.HotelID, "decline this request"); err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, &models.InvalidTransitionError{
			Entity:    "hotel request",
			ID:        req.ID.String(),
			Current:   string(req.Status),
			Requested: string(models.RequestStatusRejected),
			Reason:    "only pending requests can be declined",
		}
	}

	req.Status = models.RequestStatusRejected
	if err := s.requests.UpdateWithStatusCheck(req, models.RequestStatusPending); err != nil {
		return nil, err
	}

	s.logger.WithField("request_id", req.ID).Info("Hotel request declined by partner")
	return req, nil
}

// ReopenRequest starts the next negotiation round on a declined or expired
// RFQ: back to pending with a fresh deadline and a cleared quote.
func (s *RFQService) ReopenRequest(ctx context.Context, principal models.Principal, requestID uuid.UUID) (*models.HotelRequest, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "reopen requests"}
	}

	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusRejected && req.Status != models.RequestStatusExpired {
		return nil, &models.InvalidTransitionError{
			Entity:    "hotel request",
			ID:        req.ID.String(),
			Current:   string(req.Status),
			Requested: string(models.RequestStatusPending),
			Reason:    "only declined or expired requests can be reopened",
		}
	}

	expected := req.Status
	req.Status = models.RequestStatusPending
	req.RoundNumber++
	req.Deadline = time.Now().Add(s.quoteDeadline)
	req.Quote = nil

	if err := s.requests.UpdateWithStatusCheck(req, expected); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"round":      req.RoundNumber,
	}).Info("Hotel request reopened for another round")

	return req, nil
}

// SelectQuote picks the winning quote for a trip. The selected request goes
// to selected and the trip enters recommended bound to the winning hotel.
// Still-open siblings are then superseded best-effort: a failure is logged,
// not returned, and leaves the sibling for the expiry sweep.
func (s *RFQService) SelectQuote(ctx context.Context, principal models.Principal, tripID, hotelID uuid.UUID, note *string) (*models.Trip, error) {
	if !principal.IsAdmin() {
		return nil, &models.ForbiddenError{Role: principal.Role, Operation: "select quotes"}
	}

	req, err := s.requests.GetByTripAndHotel(tripID, hotelID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusQuoted {
		return nil, &models.InvalidTransitionError{
			Entity:    "hotel request",
			ID:        req.ID.String(),
			Current:   string(req.Status),
			Requested: string(models.RequestStatusSelected),
			Reason:    "only quoted requests can be selected",
		}
	}

	hotel, err := s.catalog.GetByID(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	snapshot := hotel.Snapshot(req.SystemScore, nil, time.Now())

	req.Status = models.RequestStatusSelected
	if err := s.requests.UpdateWithStatusCheck(req, models.RequestStatusQuoted); err != nil {
		return nil, err
	}

	trip, err := s.tripService.ApproveFromQuote(ctx, principal, tripID, snapshot, note)
	if err != nil {
		// Roll the selection back so the quote stays actionable.
		req.Status = models.RequestStatusQuoted
		if rbErr := s.requests.UpdateWithStatusCheck(req, models.RequestStatusSelected); rbErr != nil {
			s.logger.WithError(rbErr).WithField("request_id", req.ID).Error("Failed to roll back quote selection")
		}
		return nil, err
	}

	if count, err := s.requests.SupersedeSiblings(tripID, req.ID); err != nil {
		s.logger.WithError(err).WithField("trip_id", tripID).Error("Failed to supersede sibling requests")
	} else if count > 0 {
		s.logger.WithFields(logrus.Fields{
			"trip_id":    tripID,
			"superseded": count,
		}).Info("Superseded sibling hotel requests")
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"trip_id":    tripID,
		"hotel_id":   hotelID,
	}).Info("Quote selected")

	return trip, nil
}

// Expire moves a request past its deadline to expired. Callable at any time
// while the request is non-terminal; driven by the background sweep.
func (s *RFQService) Expire(ctx context.Context, requestID uuid.UUID) (*models.HotelRequest, error) {
	req, err := s.requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusPending && req.Status != models.RequestStatusQuoted {
		return nil, &models.InvalidTransitionError{
			Entity:    "hotel request",
			ID:        req.ID.String(),
			Current:   string(req.Status),
			Requested: string(models.RequestStatusExpired),
			Reason:    "request is already settled",
		}
	}

	expected := req.Status
	req.Status = models.RequestStatusExpired
	if err := s.requests.UpdateWithStatusCheck(req, expected); err != nil {
		return nil, err
	}

	s.logger.WithField("request_id", req.ID).Info("Hotel request expired")
	return req, nil
}

// checkPartnerOwnsHotel verifies the principal's partner account owns the
// hotel a request targets.
func (s *RFQService) checkPartnerOwnsHotel(ctx context.Context, principal models.Principal, hotelID uuid.UUID, operation string) error {
	hotel, err := s.catalog.GetByID(ctx, hotelID)
	if err != nil {
		return err
	}
	if hotel.PartnerID == nil || *hotel.PartnerID != principal.ID {
		return &models.ForbiddenError{Role: principal.Role, Operation: operation}
	}
	return nil
}
