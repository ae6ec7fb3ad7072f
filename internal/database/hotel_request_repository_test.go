package database

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/marketplace-backend/internal/models"
)

func sampleRequest() *models.HotelRequest {
	return &models.HotelRequest{
		ID:          uuid.New(),
		TripID:      uuid.New(),
		HotelID:     uuid.New(),
		Status:      models.RequestStatusPending,
		RoundNumber: 1,
		SystemScore: 85,
		Deadline:    time.Now().Add(48 * time.Hour),
	}
}

func TestHotelRequestRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHotelRequestRepository(db)
	req := sampleRequest()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO hotel_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	err := repo.Create(req)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHotelRequestRepository_Create_Duplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHotelRequestRepository(db)
	req := sampleRequest()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO hotel_requests")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_hotel_requests_trip_hotel"})

	err := repo.Create(req)
	var duplicate *models.DuplicateRequestError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, req.TripID.String(), duplicate.TripID)
}

func requestRows(req *models.HotelRequest, t *testing.T) *sqlmock.Rows {
	t.Helper()
	var quote interface{}
	if req.Quote != nil {
		raw, err := json.Marshal(req.Quote)
		require.NoError(t, err)
		quote = raw
	}
	return sqlmock.NewRows([]string{
		"id", "trip_id", "hotel_id", "status", "round_number", "system_score",
		"deadline", "quote", "admin_notes", "created_at", "updated_at",
	}).AddRow(
		req.ID.String(), req.TripID.String(), req.HotelID.String(), string(req.Status),
		req.RoundNumber, req.SystemScore, req.Deadline, quote, nil,
		time.Now(), time.Now(),
	)
}

func TestHotelRequestRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHotelRequestRepository(db)
	req := sampleRequest()
	req.Quote = &models.StructuredQuote{
		RoomCost:   1000,
		Subtotal:   1000,
		FinalPrice: 1100,
	}

	mock.ExpectQuery("SELECT (.+) FROM hotel_requests WHERE id").
		WithArgs(req.ID).
		WillReturnRows(requestRows(req, t))

	got, err := repo.GetByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	require.NotNil(t, got.Quote)
	assert.Equal(t, 1100.0, got.Quote.FinalPrice)
}

func TestHotelRequestRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHotelRequestRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM hotel_requests WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(id)
	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestHotelRequestRepository_GetByTripAndHotel(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHotelRequestRepository(db)
	req := sampleRequest()

	mock.ExpectQuery("SELECT (.+) FROM hotel_requests WHERE trip_id").
		WithArgs(req.TripID, req.HotelID).
		WillReturnRows(requestRows(req, t))

	got, err := repo.GetByTripAndHotel(req.TripID, req.HotelID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Nil(t, got.Quote)
}

func TestHotelRequestRepository_GetExpiredActive(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHotelRequestRepository(db)
	req := sampleRequest()
	req.Deadline = time.Now().Add(-time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM hotel_requests").
		WithArgs(100).
		WillReturnRows(requestRows(req, t))

	overdue, err := repo.GetExpiredActive(100)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, req.ID, overdue[0].ID)
}

func TestHotelRequestRepository_UpdateWithStatusCheck_Conflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHotelRequestRepository(db)
	req := sampleRequest()
	req.Status = models.RequestStatusQuoted

	mock.ExpectExec(regexp.QuoteMeta("UPDATE hotel_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(req.ID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.UpdateWithStatusCheck(req, models.RequestStatusPending)
	var concurrent *models.ConcurrentModificationError
	require.ErrorAs(t, err, &concurrent)
}

func TestHotelRequestRepository_SupersedeSiblings(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewHotelRequestRepository(db)
	tripID := uuid.New()
	selectedID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE hotel_requests")).
		WithArgs(models.RequestStatusSuperseded, tripID, selectedID).
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.SupersedeSiblings(tripID, selectedID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
