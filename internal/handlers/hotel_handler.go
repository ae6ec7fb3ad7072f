package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripdesk/marketplace-backend/internal/middleware"
	"github.com/tripdesk/marketplace-backend/internal/models"
	"github.com/tripdesk/marketplace-backend/internal/services"
)

type HotelHandler struct {
	catalog     services.HotelCatalog
	recommender *services.RecommendationService
	logger      *logrus.Logger
}

func NewHotelHandler(catalog services.HotelCatalog, recommender *services.RecommendationService, logger *logrus.Logger) *HotelHandler {
	return &HotelHandler{
		catalog:     catalog,
		recommender: recommender,
		logger:      logger,
	}
}

// ListHotels returns the full hotel catalog.
// GET /api/v1/hotels
func (h *HotelHandler) ListHotels(c *gin.Context) {
	hotels, err := h.catalog.FetchAll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if hotels == nil {
		hotels = []models.Hotel{}
	}
	c.JSON(http.StatusOK, hotels)
}

// DetailedScores scores the whole catalog against a requirement set and
// returns every hotel with its score and reasons, highest first.
// POST /api/v1/recommendations/scores
func (h *HotelHandler) DetailedScores(c *gin.Context) {
	if _, exists := middleware.GetPrincipal(c); !exists {
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

	scores, err := h.recommender.DetailedScores(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, scores)
}
