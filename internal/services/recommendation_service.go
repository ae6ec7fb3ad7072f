package services

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripdesk/marketplace-backend/internal/models"
)

// jitter bounds: each score is multiplied by a factor in [0.95, 1.05) before
// the final sort, so two structurally identical requirement sets do not
// always resolve to byte-identical rankings.
const (
	jitterBase = 0.95
	jitterSpan = 0.10
)

// HotelCatalog is the read-only catalog accessor the generator consumes.
type HotelCatalog interface {
	FetchAll(ctx context.Context) ([]models.Hotel, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Hotel, error)
}

// RecommendationService orchestrates recommendation generation: fetch one
// consistent catalog snapshot, score every hotel, perturb, rank, and return
// the top candidates as immutable snapshots.
type RecommendationService struct {
	catalog    HotelCatalog
	scorer     *ScoringEngine
	maxResults int
	logger     *logrus.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRecommendationService creates a new recommendation service. The
// randomness source is injected so rankings are reproducible under a fixed
// seed in tests.
func NewRecommendationService(
	catalog HotelCatalog,
	scorer *ScoringEngine,
	rng *rand.Rand,
	maxResults int,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		catalog:    catalog,
		scorer:     scorer,
		rng:        rng,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Generate returns up to maxResults hotel snapshots ranked for the given
// requirements. Hotel ids in exclude are skipped; callers apply rejection
// history as policy, the generator itself does not. An empty catalog yields
// an empty list — callers decide whether that is fatal.
func (s *RecommendationService) Generate(
	ctx context.Context,
	req *models.TripRequirements,
	exclude map[uuid.UUID]bool,
) ([]models.HotelSnapshot, error) {
	hotels, err := s.catalog.FetchAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch hotel catalog")
		return nil, err
	}

	type perturbedScore struct {
		HotelScore
		perturbed float64
	}

	scored := make([]perturbedScore, 0, len(hotels))
	for i := range hotels {
		if exclude[hotels[i].ID] {
			continue
		}
		hs := s.scorer.Score(&hotels[i], req)
		scored = append(scored, perturbedScore{
			HotelScore: hs,
			perturbed:  hs.Score * s.jitter(),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].perturbed > scored[j].perturbed
	})

	limit := s.maxResults
	if limit > len(scored) {
		limit = len(scored)
	}

	now := time.Now()
	snapshots := make([]models.HotelSnapshot, 0, limit)
	for _, item := range scored[:limit] {
		snapshots = append(snapshots, item.Hotel.Snapshot(item.Score, item.Reasons, now))
	}

	s.logger.WithFields(logrus.Fields{
		"catalog_size": len(hotels),
		"excluded":     len(exclude),
		"returned":     len(snapshots),
	}).Info("Generated hotel recommendations")

	return snapshots, nil
}

// DetailedScores returns every hotel in the catalog with its unperturbed
// score and reasons, highest first. Admin-facing debugging aid.
func (s *RecommendationService) DetailedScores(ctx context.Context, req *models.TripRequirements) ([]HotelScore, error) {
	hotels, err := s.catalog.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	scores := make([]HotelScore, 0, len(hotels))
	for i := range hotels {
		scores = append(scores, s.scorer.Score(&hotels[i], req))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}

func (s *RecommendationService) jitter() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return jitterBase + jitterSpan*s.rng.Float64()
}
