package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripdesk/marketplace-backend/internal/middleware"
	"github.com/tripdesk/marketplace-backend/internal/models"
	"github.com/tripdesk/marketplace-backend/internal/services"
)

type HotelRequestHandler struct {
	rfqService *services.RFQService
	logger     *logrus.Logger
}

func NewHotelRequestHandler(rfqService *services.RFQService, logger *logrus.Logger) *HotelRequestHandler {
	return &HotelRequestHandler{
		rfqService: rfqService,
		logger:     logger,
	}
}

type createRequestBody struct {
	HotelID uuid.UUID `json:"hotel_id" binding:"required"`
	Note    *string   `json:"note"`
}

// CreateRequest dispatches an RFQ to a hotel for a trip.
// POST /api/v1/trips/:id/requests
func (h *HotelRequestHandler) CreateRequest(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tripID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": "Invalid request body: hotel_id is required",
		})
		return
	}

	req, err := h.rfqService.CreateHotelRequest(c.Request.Context(), principal, tripID, body.HotelID, body.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, req)
}

// ListForTrip returns every request issued for a trip.
// GET /api/v1/trips/:id/requests
func (h *HotelRequestHandler) ListForTrip(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tripID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	requests, err := h.rfqService.ListRequestsForTrip(c.Request.Context(), principal, tripID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if requests == nil {
		requests = []models.HotelRequest{}
	}
	c.JSON(http.StatusOK, requests)
}

// ListForPartner returns the requests targeting the caller's hotels.
// GET /api/v1/partner/requests
func (h *HotelRequestHandler) ListForPartner(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requests, err := h.rfqService.ListRequestsForPartner(c.Request.Context(), principal)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if requests == nil {
		requests = []models.HotelRequest{}
	}
	c.JSON(http.StatusOK, requests)
}

// GetRequest returns a single request.
// GET /api/v1/requests/:id
func (h *HotelRequestHandler) GetRequest(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requestID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	req, err := h.rfqService.GetRequest(c.Request.Context(), principal, requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// SubmitQuote records the partner's structured quote for a pending request.
// POST /api/v1/requests/:id/quote
func (h *HotelRequestHandler) SubmitQuote(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requestID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var input models.QuoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	req, err := h.rfqService.SubmitQuote(c.Request.Context(), principal, requestID, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// DeclineRequest lets a partner turn a pending RFQ down.
// POST /api/v1/requests/:id/decline
func (h *HotelRequestHandler) DeclineRequest(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requestID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	req, err := h.rfqService.DeclineRequest(c.Request.Context(), principal, requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// ReopenRequest starts the next negotiation round on a declined or expired RFQ.
// POST /api/v1/requests/:id/reopen
func (h *HotelRequestHandler) ReopenRequest(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requestID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	req, err := h.rfqService.ReopenRequest(c.Request.Context(), principal, requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

type selectQuoteBody struct {
	HotelID uuid.UUID `json:"hotel_id" binding:"required"`
	Note    *string   `json:"note"`
}

// SelectQuote picks the winning quote for a trip and moves the trip to
// recommended.
// POST /api/v1/trips/:id/select-quote
func (h *HotelRequestHandler) SelectQuote(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tripID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var body selectQuoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": "Invalid request body: hotel_id is required",
		})
		return
	}

	trip, err := h.rfqService.SelectQuote(c.Request.Context(), principal, tripID, body.HotelID, body.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

func (h *HotelRequestHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
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
