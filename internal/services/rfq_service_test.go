package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/marketplace-backend/internal/models"
)

// fakeRequestStore is an in-memory HotelRequestStore with the repository's
// CAS and uniqueness semantics.
type fakeRequestStore struct {
	requests map[uuid.UUID]*models.HotelRequest
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: make(map[uuid.UUID]*models.HotelRequest)}
}

func (f *fakeRequestStore) Create(req *models.HotelRequest) error {
	for _, existing := range f.requests {
		if existing.TripID == req.TripID && existing.HotelID == req.HotelID {
			return &models.DuplicateRequestError{TripID: req.TripID.String(), HotelID: req.HotelID.String()}
		}
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	copied := *req
	f.requests[req.ID] = &copied
	return nil
}

func (f *fakeRequestStore) GetByID(id uuid.UUID) (*models.HotelRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "hotel request", ID: id.String()}
	}
	copied := *req
	return &copied, nil
}

func (f *fakeRequestStore) GetByTripAndHotel(tripID, hotelID uuid.UUID) (*models.HotelRequest, error) {
	for _, req := range f.requests {
		if req.TripID == tripID && req.HotelID == hotelID {
			copied := *req
			return &copied, nil
		}
	}
	return nil, &models.NotFoundError{Entity: "hotel request", ID: tripID.String() + "/" + hotelID.String()}
}

func (f *fakeRequestStore) GetByTripID(tripID uuid.UUID) ([]models.HotelRequest, error) {
	var out []models.HotelRequest
	for _, req := range f.requests {
		if req.TripID == tripID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeRequestStore) GetByPartnerID(partnerID uuid.UUID) ([]models.HotelRequest, error) {
	// The fake has no hotel table; partner scoping is exercised at the
	// service layer through the catalog.
	var out []models.HotelRequest
	for _, req := range f.requests {
		out = append(out, *req)
	}
	return out, nil
}

func (f *fakeRequestStore) GetExpiredActive(limit int) ([]models.HotelRequest, error) {
	var out []models.HotelRequest
	now := time.Now()
	for _, req := range f.requests {
		if len(out) >= limit {
			break
		}
		open := req.Status == models.RequestStatusPending || req.Status == models.RequestStatusQuoted
		if open && req.Deadline.Before(now) {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeRequestStore) UpdateWithStatusCheck(req *models.HotelRequest, expectedStatus models.HotelRequestStatus) error {
	stored, ok := f.requests[req.ID]
	if !ok {
		return &models.NotFoundError{Entity: "hotel request", ID: req.ID.String()}
	}
	if stored.Status != expectedStatus {
		return &models.ConcurrentModificationError{Entity: "hotel request", ID: req.ID.String()}
	}
	copied := *req
	f.requests[req.ID] = &copied
	return nil
}

func (f *fakeRequestStore) SupersedeSiblings(tripID, selectedRequestID uuid.UUID) (int64, error) {
	var count int64
	for _, req := range f.requests {
		if req.TripID != tripID || req.ID == selectedRequestID {
			continue
		}
		if req.Status == models.RequestStatusPending || req.Status == models.RequestStatusQuoted {
			req.Status = models.RequestStatusSuperseded
			count++
		}
	}
	return count, nil
}

type rfqTestEnv struct {
	*tripTestEnv
	requestStore *fakeRequestStore
	rfq          *RFQService
	partner      models.Principal
	trip         *models.Trip
}

func newRFQTestEnv(t *testing.T) *rfqTestEnv {
	t.Helper()
	tripEnv := newTripTestEnv(t, 5)
	partner := models.Principal{ID: uuid.New(), Role: models.RoleHotelPartner}

	// Every catalog hotel belongs to the test partner.
	for i := range tripEnv.catalog.hotels {
		partnerID := partner.ID
		tripEnv.catalog.hotels[i].PartnerID = &partnerID
	}

	requestStore := newFakeRequestStore()
	rfq := NewRFQService(
		requestStore,
		tripEnv.store,
		tripEnv.catalog,
		tripEnv.service,
		NewScoringEngine(),
		tripEnv.publisher,
		48*time.Hour,
		testLogger(),
	)

	env := &rfqTestEnv{
		tripTestEnv:  tripEnv,
		requestStore: requestStore,
		rfq:          rfq,
		partner:      partner,
	}
	env.trip = env.createTrip(t)
	return env
}

func validQuoteInput() models.QuoteInput {
	return models.QuoteInput{
		RoomCost:        1000,
		FoodCost:        500,
		ExtraCharges:    100,
		DiscountOffered: 200,
		TaxPercent:      10,
		ServicePercent:  5,
	}
}

func (e *rfqTestEnv) createRequest(t *testing.T, hotelID uuid.UUID) *models.HotelRequest {
	t.Helper()
	req, err := e.rfq.CreateHotelRequest(context.Background(), e.admin, e.trip.ID, hotelID, nil)
	require.NoError(t, err)
	return req
}

func (e *rfqTestEnv) quotedRequest(t *testing.T, hotelID uuid.UUID) *models.HotelRequest {
	t.Helper()
	req := e.createRequest(t, hotelID)
	req, err := e.rfq.SubmitQuote(context.Background(), e.partner, req.ID, validQuoteInput())
	require.NoError(t, err)
	return req
}

func TestCreateHotelRequest(t *testing.T) {
	env := newRFQTestEnv(t)
	hotelID := env.catalog.hotels[0].ID

	req := env.createRequest(t, hotelID)

	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, 1, req.RoundNumber)
	assert.Greater(t, req.SystemScore, 0.0)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), req.Deadline, time.Minute)
}

func TestCreateHotelRequest_Duplicate(t *testing.T) {
	env := newRFQTestEnv(t)
	hotelID := env.catalog.hotels[0].ID
	env.createRequest(t, hotelID)

	_, err := env.rfq.CreateHotelRequest(context.Background(), env.admin, env.trip.ID, hotelID, nil)
	var duplicate *models.DuplicateRequestError
	require.ErrorAs(t, err, &duplicate)
}

func TestCreateHotelRequest_UnknownHotel(t *testing.T) {
	env := newRFQTestEnv(t)

	_, err := env.rfq.CreateHotelRequest(context.Background(), env.admin, env.trip.ID, uuid.New(), nil)
	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCreateHotelRequest_PartnerForbidden(t *testing.T) {
	env := newRFQTestEnv(t)

	_, err := env.rfq.CreateHotelRequest(context.Background(), env.partner, env.trip.ID, env.catalog.hotels[0].ID, nil)
	var forbidden *models.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
}

func TestCreateHotelRequest_ScoreFromTripSnapshot(t *testing.T) {
	env := newRFQTestEnv(t)
	snapshot := env.trip.RecommendedHotels[0]

	req := env.createRequest(t, snapshot.ID)
	assert.Equal(t, snapshot.MatchScore, req.SystemScore)
}

func TestSubmitQuote(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	quoted, err := env.rfq.SubmitQuote(context.Background(), env.partner, req.ID, validQuoteInput())
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusQuoted, quoted.Status)
	require.NotNil(t, quoted.Quote)
	assert.Equal(t, 1500.0, quoted.Quote.Subtotal)
	assert.Equal(t, 150.0, quoted.Quote.Taxes)
	assert.Equal(t, 75.0, quoted.Quote.ServiceCharges)
	assert.Equal(t, 1825.0, quoted.Quote.BasePrice)
	assert.Equal(t, 1625.0, quoted.Quote.FinalPrice)

	require.Len(t, env.publisher.quoteEvents, 1)
	assert.Equal(t, 1625.0, env.publisher.quoteEvents[0].FinalPrice)
}

func TestSubmitQuote_WriteOnce(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.quotedRequest(t, env.catalog.hotels[0].ID)

	_, err := env.rfq.SubmitQuote(context.Background(), env.partner, req.ID, validQuoteInput())
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Contains(t, transition.Reason, "already submitted")
}

func TestSubmitQuote_NegativeFinalPrice(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	input := validQuoteInput()
	input.DiscountOffered = 5000
	_, err := env.rfq.SubmitQuote(context.Background(), env.partner, req.ID, input)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "discount_offered", validation.Field)
}

func TestSubmitQuote_InvalidInput(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	input := validQuoteInput()
	input.TaxPercent = 150
	_, err := env.rfq.SubmitQuote(context.Background(), env.partner, req.ID, input)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestSubmitQuote_WrongPartner(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	otherPartner := models.Principal{ID: uuid.New(), Role: models.RoleHotelPartner}
	_, err := env.rfq.SubmitQuote(context.Background(), otherPartner, req.ID, validQuoteInput())
	var forbidden *models.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
}

func TestDeclineRequest(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	declined, err := env.rfq.DeclineRequest(context.Background(), env.partner, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, declined.Status)

	// A quote can no longer be submitted.
	_, err = env.rfq.SubmitQuote(context.Background(), env.partner, req.ID, validQuoteInput())
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
}

func TestReopenRequest_IncrementsRound(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	_, err := env.rfq.DeclineRequest(context.Background(), env.partner, req.ID)
	require.NoError(t, err)

	reopened, err := env.rfq.ReopenRequest(context.Background(), env.admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, reopened.Status)
	assert.Equal(t, 2, reopened.RoundNumber)
	assert.Nil(t, reopened.Quote)
	assert.True(t, reopened.Deadline.After(time.Now()))
}

func TestReopenRequest_RequiresDeclinedOrExpired(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	_, err := env.rfq.ReopenRequest(context.Background(), env.admin, req.ID)
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
}

func TestSelectQuote(t *testing.T) {
	env := newRFQTestEnv(t)
	winnerID := env.catalog.hotels[0].ID
	loserID := env.catalog.hotels[1].ID

	winner := env.quotedRequest(t, winnerID)
	loser := env.quotedRequest(t, loserID)

	trip, err := env.rfq.SelectQuote(context.Background(), env.admin, env.trip.ID, winnerID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.TripStatusRecommended, trip.Status)
	require.NotNil(t, trip.ApprovedHotelID)
	assert.Equal(t, winnerID, *trip.ApprovedHotelID)

	assert.Equal(t, models.RequestStatusSelected, env.requestStore.requests[winner.ID].Status)
	assert.Equal(t, models.RequestStatusSuperseded, env.requestStore.requests[loser.ID].Status)
}

func TestSelectQuote_HotelOutsideRecommendationSet(t *testing.T) {
	env := newRFQTestEnv(t)

	// Find a catalog hotel the generator did not pick.
	var outsideID uuid.UUID
	for _, hotel := range env.catalog.hotels {
		if !env.trip.RecommendedHotels.Contains(hotel.ID) {
			outsideID = hotel.ID
			break
		}
	}
	require.NotEqual(t, uuid.Nil, outsideID)

	env.quotedRequest(t, outsideID)

	trip, err := env.rfq.SelectQuote(context.Background(), env.admin, env.trip.ID, outsideID, nil)
	require.NoError(t, err)

	// The snapshot was appended so the approved id stays a member of the set.
	assert.True(t, trip.RecommendedHotels.Contains(outsideID))
	assert.Equal(t, outsideID, *trip.ApprovedHotelID)
}

// failingSupersedeStore simulates the sibling supersede statement failing
// after the selection already committed.
type failingSupersedeStore struct {
	*fakeRequestStore
}

func (f *failingSupersedeStore) SupersedeSiblings(tripID, selectedRequestID uuid.UUID) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestSelectQuote_SupersedeFailureDoesNotUndoSelection(t *testing.T) {
	env := newRFQTestEnv(t)
	winnerID := env.catalog.hotels[0].ID
	loserID := env.catalog.hotels[1].ID

	winner := env.quotedRequest(t, winnerID)
	loser := env.quotedRequest(t, loserID)

	rfq := NewRFQService(
		&failingSupersedeStore{env.requestStore},
		env.store,
		env.catalog,
		env.service,
		NewScoringEngine(),
		env.publisher,
		48*time.Hour,
		testLogger(),
	)

	trip, err := rfq.SelectQuote(context.Background(), env.admin, env.trip.ID, winnerID, nil)
	require.NoError(t, err)

	// The selection stands; the sibling is left quoted for the expiry
	// sweep to retire at its deadline.
	assert.Equal(t, models.TripStatusRecommended, trip.Status)
	assert.Equal(t, models.RequestStatusSelected, env.requestStore.requests[winner.ID].Status)
	assert.Equal(t, models.RequestStatusQuoted, env.requestStore.requests[loser.ID].Status)
}

func TestSelectQuote_RequiresQuotedStatus(t *testing.T) {
	env := newRFQTestEnv(t)
	hotelID := env.catalog.hotels[0].ID
	env.createRequest(t, hotelID)

	_, err := env.rfq.SelectQuote(context.Background(), env.admin, env.trip.ID, hotelID, nil)
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
}

func TestSelectQuote_RollsBackWhenTripTransitionFails(t *testing.T) {
	env := newRFQTestEnv(t)
	hotelID := env.catalog.hotels[0].ID
	req := env.quotedRequest(t, hotelID)

	// Accept the trip out from under the selection.
	recommended, err := env.service.ApproveHotel(context.Background(), env.admin, env.trip.ID, env.trip.RecommendedHotels[0].ID, nil)
	require.NoError(t, err)
	_, err = env.service.AcceptRecommendation(context.Background(), env.customer, recommended.ID)
	require.NoError(t, err)

	_, err = env.rfq.SelectQuote(context.Background(), env.admin, env.trip.ID, hotelID, nil)
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)

	// Selection was rolled back, the quote stays actionable.
	assert.Equal(t, models.RequestStatusQuoted, env.requestStore.requests[req.ID].Status)
}

func TestExpire(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	expired, err := env.rfq.Expire(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusExpired, expired.Status)

	// Terminal states cannot expire again.
	_, err = env.rfq.Expire(context.Background(), req.ID)
	var transition *models.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
}

func TestExpirySweep(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	// Force the stored deadline into the past.
	env.requestStore.requests[req.ID].Deadline = time.Now().Add(-time.Hour)

	sweep := NewRFQExpiryService(env.requestStore, env.rfq, time.Minute, testLogger())
	sweep.SweepOnce(context.Background())

	assert.Equal(t, models.RequestStatusExpired, env.requestStore.requests[req.ID].Status)
}

func TestGetRequest_PartnerScoping(t *testing.T) {
	env := newRFQTestEnv(t)
	req := env.createRequest(t, env.catalog.hotels[0].ID)

	_, err := env.rfq.GetRequest(context.Background(), env.admin, req.ID)
	assert.NoError(t, err)

	_, err = env.rfq.GetRequest(context.Background(), env.partner, req.ID)
	assert.NoError(t, err)

	otherPartner := models.Principal{ID: uuid.New(), Role: models.RoleHotelPartner}
	_, err = env.rfq.GetRequest(context.Background(), otherPartner, req.ID)
	var forbidden *models.ForbiddenError
	require.ErrorAs(t, err, &forbidden)

	_, err = env.rfq.GetRequest(context.Background(), env.customer, req.ID)
	require.ErrorAs(t, err, &forbidden)
}
