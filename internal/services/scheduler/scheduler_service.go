package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/services/crawler"
)

// Service drives periodic catalog crawler runs from a cron schedule. The
// crawler itself decides whether a run does any work (its enabled flag), so
// the scheduler fires unconditionally once started.
type Service struct {
	crawlerService *crawler.Service
	cron           *cron.Cron
	logger         arbor.ILogger

	mu        sync.Mutex
	running   bool
	lastRun   *time.Time
	lastError string
}

// NewService creates a new scheduler service
func NewService(crawlerService *crawler.Service, logger arbor.ILogger) *Service {
	return &Service{
		crawlerService: crawlerService,
		cron:           cron.New(),
		logger:         logger,
	}
}

// Start begins firing crawler runs on the given cron expression
func (s *Service) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if cronExpr == "" {
		cronExpr = "*/5 * * * *"
	}

	if _, err := s.cron.AddFunc(cronExpr, s.runCrawler); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Msg("Scheduler started")

	return nil
}

// Stop halts the scheduler, waiting for an in-flight run to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Scheduled run did not finish within shutdown timeout")
	}
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runCrawler executes one crawler invocation with panic recovery so a bad
// run never kills the cron loop
func (s *Service) runCrawler() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Panic recovered in scheduled crawler run")
		}
	}()

	summary, err := s.crawlerService.Run(context.Background())

	s.mu.Lock()
	now := time.Now()
	s.lastRun = &now
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled crawler run failed")
		return
	}
	if !summary.Ran {
		s.logger.Debug().Msg("Scheduled crawler run skipped (crawler disabled)")
	}
}
