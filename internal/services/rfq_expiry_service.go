package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// expiryBatchSize bounds one sweep pass so a large backlog cannot hold the
// ticker loop for a full interval.
const expiryBatchSize = 100

// RFQExpiryService periodically expires open hotel requests whose quote
// deadline has lapsed.
type RFQExpiryService struct {
	requests HotelRequestStore
	rfq      *RFQService
	interval time.Duration
	logger   *logrus.Logger
	stopCh   chan struct{}
}

// NewRFQExpiryService creates a new RFQ expiry sweep service
func NewRFQExpiryService(requests HotelRequestStore, rfq *RFQService, interval time.Duration, logger *logrus.Logger) *RFQExpiryService {
	return &RFQExpiryService{
		requests: requests,
		rfq:      rfq,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (s *RFQExpiryService) Start() {
	go s.run()
	s.logger.WithField("interval", s.interval).Info("RFQ expiry sweep started")
}

// Stop terminates the background sweep loop.
func (s *RFQExpiryService) Stop() {
	close(s.stopCh)
	s.logger.Info("RFQ expiry sweep stopped")
}

func (s *RFQExpiryService) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// SweepOnce expires one batch of overdue requests. Exposed so callers can
// trigger a pass outside the ticker.
func (s *RFQExpiryService) SweepOnce(ctx context.Context) {
	overdue, err := s.requests.GetExpiredActive(expiryBatchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch overdue hotel requests")
		return
	}
	if len(overdue) == 0 {
		return
	}

	expired := 0
	for i := range overdue {
		if _, err := s.rfq.Expire(ctx, overdue[i].ID); err != nil {
			// Likely settled between fetch and write; the next pass
			// will not see it again.
			s.logger.WithError(err).WithField("request_id", overdue[i].ID).Warn("Failed to expire hotel request")
			continue
		}
		expired++
	}

	s.logger.WithFields(logrus.Fields{
		"overdue": len(overdue),
		"expired": expired,
	}).Info("RFQ expiry sweep completed")
}
