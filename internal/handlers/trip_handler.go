package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripdesk/marketplace-backend/internal/middleware"
	"github.com/tripdesk/marketplace-backend/internal/models"
	"github.com/tripdesk/marketplace-backend/internal/services"
)

type TripHandler struct {
	tripService *services.TripService
	logger      *logrus.Logger
}

func NewTripHandler(tripService *services.TripService, logger *logrus.Logger) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		logger:      logger,
	}
}

// CreateTrip submits trip requirements and returns the created trip with its
// initial recommendation set.
// POST /api/v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.TripRequirements
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}

// ListTrips returns all trips for admins, or the caller's own trips for
// customers. Admins may filter with ?status=.
// GET /api/v1/trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var (
		trips []models.Trip
		err   error
	)
	switch {
	case principal.IsAdmin():
		if status := c.Query("status"); status != "" {
			trips, err = h.tripService.ListTripsByStatus(c.Request.Context(), principal, models.TripStatus(status))
		} else {
			trips, err = h.tripService.ListTrips(c.Request.Context(), principal)
		}
	default:
		trips, err = h.tripService.ListCustomerTrips(c.Request.Context(), principal)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if trips == nil {
		trips = []models.Trip{}
	}
	c.JSON(http.StatusOK, trips)
}

// GetTrip returns a single trip.
// GET /api/v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tripID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	trip, err := h.tripService.GetTrip(c.Request.Context(), principal, tripID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

type approveHotelRequest struct {
	HotelID uuid.UUID `json:"hotel_id" binding:"required"`
	Note    *string   `json:"note"`
}

// ApproveHotel sends one recommended hotel to the customer.
// POST /api/v1/trips/:id/approve
func (h *TripHandler) ApproveHotel(c *gin.Context) {
	h.approveVia(c, h.tripService.ApproveHotel)
}

// ResendHotel re-offers another previously recommended hotel on a rejected trip.
// POST /api/v1/trips/:id/resend
func (h *TripHandler) ResendHotel(c *gin.Context) {
	h.approveVia(c, h.tripService.ResendHotel)
}

// AcceptRecommendation records the customer's final acceptance.
// POST /api/v1/trips/:id/accept
func (h *TripHandler) AcceptRecommendation(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tripID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	trip, err := h.tripService.AcceptRecommendation(c.Request.Context(), principal, tripID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

type rejectRecommendationRequest struct {
	Reason *string `json:"reason"`
}

// RejectRecommendation records the customer's rejection of the offered hotel.
// POST /api/v1/trips/:id/reject
func (h *TripHandler) RejectRecommendation(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tripID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var body rejectRecommendationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": "Invalid request body: " + err.Error(),
			})
			return
		}
	}

	trip, err := h.tripService.RejectRecommendation(c.Request.Context(), principal, tripID, body.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

type regenerateRequest struct {
	ExcludeRejected bool `json:"exclude_rejected"`
}

// RegenerateRecommendations builds a fresh candidate set for a rejected trip.
// POST /api/v1/trips/:id/regenerate
func (h *TripHandler) RegenerateRecommendations(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tripID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	// Exclusion of previously rejected hotels is opt-in; the default
	// regenerates over the full catalog.
	var body regenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": "Invalid request body: " + err.Error(),
			})
			return
		}
	}

	trip, err := h.tripService.RegenerateRecommendations(c.Request.Context(), principal, tripID, body.ExcludeRejected)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

type approveFunc func(ctx context.Context, principal models.Principal, tripID, hotelID uuid.UUID, note *string) (*models.Trip, error)

func (h *TripHandler) approveVia(c *gin.Context, op approveFunc) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tripID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var body approveHotelRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": "Invalid request body: hotel_id is required",
		})
		return
	}

	trip, err := op(c.Request.Context(), principal, tripID, body.HotelID, body.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

// pathUUID parses a UUID path parameter, answering 400 itself on failure.
func (h *TripHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": "Invalid " + name + ": must be a UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}
