package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tripdesk/marketplace-backend/internal/models"
)

const catalogCacheKey = "catalog:hotels"

// HotelRepository reads hotel records from the catalog. The catalog is
// externally managed and read-only from this service's perspective, so a
// short-TTL Redis cache sits in front of the full-catalog read. A nil cache
// client or any cache failure falls through to the database.
type HotelRepository struct {
	db       DB
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *logrus.Logger
}

// NewHotelRepository creates a new HotelRepository. cache may be nil.
func NewHotelRepository(db DB, cache *redis.Client, cacheTTL time.Duration, logger *logrus.Logger) *HotelRepository {
	return &HotelRepository{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

const hotelColumns = `
	id, partner_id, name, city, star_rating, rating, price_per_night,
	price_tier, amenities, location_types, room_types,
	event_hall_available, hall_capacity, av_equipment, meal_options,
	description, created_at, updated_at
`

// FetchAll returns the full hotel catalog as a single consistent snapshot.
// Fails with CatalogUnavailableError when the database cannot serve the read.
func (r *HotelRepository) FetchAll(ctx context.Context) ([]models.Hotel, error) {
	if hotels, ok := r.readCache(ctx); ok {
		return hotels, nil
	}

	query := `SELECT ` + hotelColumns + ` FROM hotels ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, &models.CatalogUnavailableError{Err: err}
	}
	defer rows.Close()

	hotels, err := r.scanHotels(rows)
	if err != nil {
		return nil, &models.CatalogUnavailableError{Err: err}
	}

	r.writeCache(ctx, hotels)
	return hotels, nil
}

// GetByID returns a single hotel from the catalog.
func (r *HotelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Hotel, error) {
	query := `SELECT ` + hotelColumns + ` FROM hotels WHERE id = $1`

	hotel, err := r.scanHotel(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "hotel", ID: id.String()}
	}
	if err != nil {
		return nil, &models.CatalogUnavailableError{Err: err}
	}
	return hotel, nil
}

// GetByPartnerID returns the hotels owned by a partner account.
func (r *HotelRepository) GetByPartnerID(ctx context.Context, partnerID uuid.UUID) ([]models.Hotel, error) {
	query := `SELECT ` + hotelColumns + ` FROM hotels WHERE partner_id = $1 ORDER BY name`

	rows, err := r.db.Query(query, partnerID)
	if err != nil {
		return nil, &models.CatalogUnavailableError{Err: err}
	}
	defer rows.Close()

	return r.scanHotels(rows)
}

func (r *HotelRepository) readCache(ctx context.Context) ([]models.Hotel, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, catalogCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.WithError(err).Debug("Catalog cache read failed")
		}
		return nil, false
	}
	var hotels []models.Hotel
	if err := json.Unmarshal(raw, &hotels); err != nil {
		r.logger.WithError(err).Warn("Discarding malformed catalog cache entry")
		return nil, false
	}
	return hotels, true
}

func (r *HotelRepository) writeCache(ctx context.Context, hotels []models.Hotel) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(hotels)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, catalogCacheKey, raw, r.cacheTTL).Err(); err != nil {
		r.logger.WithError(err).Debug("Catalog cache write failed")
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *HotelRepository) scanHotel(row rowScanner) (*models.Hotel, error) {
	var hotel models.Hotel
	err := row.Scan(
		&hotel.ID, &hotel.PartnerID, &hotel.Name, &hotel.City,
		&hotel.StarRating, &hotel.Rating, &hotel.PricePerNight,
		&hotel.PriceTier, &hotel.Amenities, &hotel.LocationTypes,
		&hotel.RoomTypes, &hotel.EventHallAvailable, &hotel.HallCapacity,
		&hotel.AVEquipment, &hotel.MealOptions, &hotel.Description,
		&hotel.CreatedAt, &hotel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &hotel, nil
}

func (r *HotelRepository) scanHotels(rows *sql.Rows) ([]models.Hotel, error) {
	hotels := []models.Hotel{}
	for rows.Next() {
		hotel, err := r.scanHotel(rows)
		if err != nil {
			return nil, err
		}
		hotels = append(hotels, *hotel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hotels, nil
}
