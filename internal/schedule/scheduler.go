// Package schedule wires up the cron jobs that trigger full extraction runs
// per country.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
)

// Submitter hands a trigger message to the extraction pipeline; scheduled
// runs share the path API-triggered runs take.
type Submitter interface {
	Submit(ctx context.Context, msg harvest.TriggerMessage) error
}

// IDGenerator mints correlation ids for scheduled runs.
type IDGenerator interface {
	NewID() (string, error)
}

// Config maps countries to cron expressions and carries the standing search
// parameters scheduled runs use.
type Config struct {
	Countries   map[string]string
	Keywords    []string
	OffersLimit int
}

// Scheduler wraps robfig/cron and fires one full run per configured country.
type Scheduler struct {
	cron      *cron.Cron
	submitter Submitter
	ids       IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New creates a Scheduler.
func New(submitter Submitter, ids IDGenerator, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(),
		submitter: submitter,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start registers one cron entry per country and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	for country, spec := range s.cfg.Countries {
		country := country
		if _, err := s.cron.AddFunc(spec, func() {
			s.trigger(ctx, country)
		}); err != nil {
			return fmt.Errorf("cron entry for country %q: %w", country, err)
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("countries", len(s.cfg.Countries)))
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) trigger(ctx context.Context, country string) {
	correlationID, err := s.ids.NewID()
	if err != nil {
		s.logger.Error("correlation id", zap.Error(err))
		return
	}
	msg := harvest.TriggerMessage{
		CorrelationID: correlationID,
		Parameters: harvest.SearchParameters{
			Keywords:    s.cfg.Keywords,
			Country:     country,
			OffersLimit: s.cfg.OffersLimit,
		},
	}
	if err := s.submitter.Submit(ctx, msg); err != nil {
		s.logger.Error("scheduled run submit failed",
			zap.String("country", country), zap.Error(err))
		return
	}
	s.logger.Info("scheduled run submitted",
		zap.String("country", country),
		zap.String("correlation_id", correlationID))
}
