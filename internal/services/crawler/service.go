package crawler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/interfaces"
	"github.com/ternarybob/meeple/internal/models"
	"github.com/ternarybob/meeple/internal/services/parser"
)

// Service sweeps the external identifier space to populate the reference
// catalog. Each invocation runs a bounded number of fixed-size batches from
// the persisted cursor; the cursor advances by the batch size whether or not
// the batch succeeded, so a permanently failing id range never blocks the
// sweep.
type Service struct {
	config  *common.CrawlerConfig
	source  interfaces.CatalogSource
	catalog interfaces.CatalogStorage
	state   interfaces.CrawlerStateStorage
	events  interfaces.EventService
	retry   *RetryPolicy
	logger  arbor.ILogger

	// One run at a time; the scheduler may fire while a manual run is active
	runMu sync.Mutex
}

// NewService creates a new catalog crawler service
func NewService(
	config *common.CrawlerConfig,
	source interfaces.CatalogSource,
	storage interfaces.StorageManager,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:  config,
		source:  source,
		catalog: storage.CatalogStorage(),
		state:   storage.CrawlerStateStorage(),
		events:  events,
		retry:   NewRetryPolicy(config.MaxRetries, config.RetryDelay, config.ProcessingWait),
		logger:  logger,
	}
}

// Status reports the persisted crawler state plus the derived catalog size
func (s *Service) Status(ctx context.Context) (*models.CrawlerState, int, error) {
	state, err := s.state.GetState(ctx)
	if err != nil {
		return nil, 0, err
	}
	size, err := s.catalog.CountEntries(ctx)
	if err != nil {
		return nil, 0, err
	}
	return state, size, nil
}

// SetEnabled toggles whether runs perform any work. Toggling never moves
// the cursor.
func (s *Service) SetEnabled(ctx context.Context, enabled bool) (*models.CrawlerState, error) {
	return s.state.UpdateState(ctx, func(state *models.CrawlerState) error {
		state.IsEnabled = enabled
		return nil
	})
}

// ResetCursor explicitly sets the cursor, the only sanctioned way to move
// it backwards
func (s *Service) ResetCursor(ctx context.Context, nextExternalID int) (*models.CrawlerState, error) {
	if nextExternalID < 1 {
		return nil, fmt.Errorf("cursor must be at least 1, got %d", nextExternalID)
	}
	return s.state.UpdateState(ctx, func(state *models.CrawlerState) error {
		state.NextExternalID = nextExternalID
		return nil
	})
}

// Run executes one bounded crawler invocation. Intended to be triggered by
// the scheduler on a fixed period, or manually via the control API.
func (s *Service) Run(ctx context.Context) (*models.CrawlRunSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	state, err := s.state.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load crawler state: %w", err)
	}

	summary := &models.CrawlRunSummary{NextCursor: state.NextExternalID}
	if !state.IsEnabled {
		s.logger.Debug().Msg("Crawler disabled - skipping run")
		return summary, nil
	}
	summary.Ran = true

	cursor := state.NextExternalID
	for batch := 0; batch < s.config.BatchesPerRun; batch++ {
		added, skipped, processed, batchErr := s.runBatch(ctx, cursor)
		summary.Batches++
		summary.Added += added
		summary.Skipped += skipped
		summary.Processed += processed
		if batchErr != nil {
			summary.Errors++
			summary.LastError = batchErr.Error()
			s.logger.Warn().
				Err(batchErr).
				Int("cursor", cursor).
				Msg("Batch abandoned")
		}

		// Forward progress over exhaustiveness: the cursor advances by the
		// batch size whether or not the batch succeeded
		cursor += s.config.BatchSize

		if ctx.Err() != nil {
			break
		}
	}

	updated, err := s.state.UpdateState(ctx, func(st *models.CrawlerState) error {
		if cursor > st.NextExternalID {
			if err := st.Advance(cursor - st.NextExternalID); err != nil {
				return err
			}
		}
		st.TotalProcessed += summary.Processed
		st.TotalAdded += summary.Added
		st.TotalSkipped += summary.Skipped
		st.TotalErrors += summary.Errors
		now := time.Now()
		st.LastRunAt = &now
		st.LastError = summary.LastError
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("failed to persist crawler state: %w", err)
	}
	summary.NextCursor = updated.NextExternalID

	s.logger.Info().
		Int("batches", summary.Batches).
		Int("added", summary.Added).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Int("next_cursor", summary.NextCursor).
		Msg("Crawler run complete")

	if s.events != nil {
		_ = s.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventCrawlerRun,
			Payload: summary,
		})
	}

	return summary, nil
}

// runBatch processes one fixed-size id batch starting at the given cursor
func (s *Service) runBatch(ctx context.Context, cursor int) (added, skipped, processed int, err error) {
	ids := make([]string, s.config.BatchSize)
	for i := 0; i < s.config.BatchSize; i++ {
		ids[i] = strconv.Itoa(cursor + i)
	}

	// Skip-existing: the external source is never queried for ids already
	// known locally
	known, err := s.catalog.ExistingExternalIDs(ctx, ids)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("skip-existing check failed: %w", err)
	}

	toFetch := make([]string, 0, len(ids))
	for _, id := range ids {
		if known[id] {
			skipped++
		} else {
			toFetch = append(toFetch, id)
		}
	}
	if len(toFetch) == 0 {
		return 0, skipped, 0, nil
	}

	var entries []*models.SourceEntry
	err = s.retry.Execute(ctx, s.logger, func() error {
		var fetchErr error
		entries, fetchErr = s.source.FetchByIDs(ctx, toFetch)
		return fetchErr
	})
	if err != nil {
		return 0, skipped, 0, err
	}
	processed = len(toFetch)

	for _, entry := range entries {
		if err := s.storeEntry(ctx, entry); err != nil {
			s.logger.Warn().
				Err(err).
				Str("external_id", entry.ExternalID).
				Msg("Failed to store catalog entry")
			continue
		}
		added++
	}

	return added, skipped, processed, nil
}

// storeEntry upserts one catalog entry and its auxiliary reference links,
// idempotent across repeat runs
func (s *Service) storeEntry(ctx context.Context, source *models.SourceEntry) error {
	entry := &models.CatalogEntry{
		ExternalID:  source.ExternalID,
		Title:       source.Title,
		ImageURL:    source.ImageURL,
		Description: source.Description,
		YearMade:    source.YearMade,
		MinPlayers:  source.MinPlayers,
		MaxPlayers:  source.MaxPlayers,
		IsExpansion: source.IsExpansion,
	}
	if source.PlaytimeMin > 0 {
		entry.Playtime = parser.PlaytimeBucket(source.PlaytimeMin)
	}
	if source.Weight > 0 {
		entry.Difficulty = parser.DifficultyBucket(source.Weight)
	}

	stored, err := s.catalog.UpsertEntry(ctx, entry)
	if err != nil {
		return err
	}

	for _, name := range source.Mechanics {
		mechanic, err := s.catalog.UpsertMechanic(ctx, name)
		if err != nil {
			return err
		}
		if err := s.catalog.LinkMechanic(ctx, stored.ID, mechanic.ID); err != nil {
			return err
		}
	}
	for _, name := range source.Designers {
		designer, err := s.catalog.UpsertDesigner(ctx, name)
		if err != nil {
			return err
		}
		if err := s.catalog.LinkDesigner(ctx, stored.ID, designer.ID); err != nil {
			return err
		}
	}
	return nil
}

func atoiOrZero(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func atofOrZero(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}
