package importer

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/interfaces"
	"github.com/ternarybob/meeple/internal/models"
	"github.com/ternarybob/meeple/internal/services/parser"
)

// ImportRequest describes one upload submitted for import.
type ImportRequest struct {
	Content  []byte `json:"-"`
	Filename string `json:"filename"`

	// Enrich enables the post-import lookup and description rewrite stage.
	Enrich bool `json:"enrich"`

	// UpdateExistingPlays overwrites duplicate play records instead of
	// skipping them.
	UpdateExistingPlays bool `json:"update_existing_plays"`
}

// Service coordinates asynchronous collection imports. Each import parses
// synchronously so the caller gets a job with a known total, then runs the
// item pipeline in a detached goroutine. A client disconnect never cancels
// a running job.
type Service struct {
	config     *common.Config
	parser     *parser.Service
	jobs       interfaces.JobStorage
	catalog    interfaces.CatalogStorage
	events     interfaces.EventService
	completion interfaces.CompletionService
	source     interfaces.CatalogSource
	logger     arbor.ILogger
}

// NewService creates a new import coordinator. The completion service and
// catalog source may be nil; enrichment degrades gracefully without them.
func NewService(
	config *common.Config,
	parserService *parser.Service,
	storage interfaces.StorageManager,
	events interfaces.EventService,
	completion interfaces.CompletionService,
	source interfaces.CatalogSource,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:     config,
		parser:     parserService,
		jobs:       storage.JobStorage(),
		catalog:    storage.CatalogStorage(),
		events:     events,
		completion: completion,
		source:     source,
		logger:     logger,
	}
}

// StartImport parses the upload, creates the job, and launches the pipeline
// in the background. The returned job is in running state with its total set.
func (s *Service) StartImport(ctx context.Context, req *ImportRequest) (*models.ImportJob, error) {
	parsed, err := s.parser.Parse(req.Content, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}
	if len(parsed.Games) == 0 {
		return nil, fmt.Errorf("no importable records found in upload")
	}

	job := models.NewImportJob(len(parsed.Games))
	job.MarkStarted()
	job.Phase = models.PhaseImporting
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist import job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("format", string(parsed.Format)).
		Int("games", len(parsed.Games)).
		Int("plays", len(parsed.Plays)).
		Int("skipped", parsed.Skipped).
		Msg("Import started")

	// Detached from the request context: the pipeline outlives the caller
	go s.runJob(context.Background(), job.ID, parsed, req)

	return job, nil
}

// GetJob returns the current snapshot of an import job
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.ImportJob, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// ListJobs returns job snapshots matching the given filter
func (s *Service) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.ImportJob, error) {
	return s.jobs.ListJobs(ctx, opts)
}

// runJob executes the full pipeline: import, optional enrichment, plays
func (s *Service) runJob(ctx context.Context, jobID string, parsed *parser.ParseResult, req *ImportRequest) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_id", jobID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Import pipeline panicked")
			s.failJob(ctx, jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	s.publish(ctx, interfaces.EventImportStarted, models.StartFrame(jobID, len(parsed.Games)))

	result := models.NewImportResult()
	imported := s.importGames(ctx, jobID, parsed.Games, result)

	if req.Enrich {
		s.setPhase(ctx, jobID, models.PhaseEnriching)
		s.enrichEntries(ctx, jobID, imported, result)
	}

	if len(parsed.Plays) > 0 {
		s.setPhase(ctx, jobID, models.PhasePlays)
		s.importPlays(ctx, parsed.Plays, req.UpdateExistingPlays, result)
	}

	result.Success = result.Imported > 0 || result.Failed == 0

	err := s.jobs.UpdateJob(ctx, jobID, func(job *models.ImportJob) error {
		job.MarkCompleted(result)
		return nil
	})
	if err != nil {
		s.logger.Error().Str("job_id", jobID).Err(err).Msg("Failed to finalize import job")
		return
	}

	// Delivered synchronously so every subscriber sees the final frame
	// before the pipeline goroutine exits
	if s.events != nil {
		_ = s.events.PublishSync(ctx, interfaces.Event{
			Type:    interfaces.EventImportCompleted,
			Payload: models.CompleteFrame(jobID, result),
		})
	}

	s.logger.Info().
		Str("job_id", jobID).
		Int("imported", result.Imported).
		Int("failed", result.Failed).
		Int("plays_imported", result.PlaysImported).
		Int("unmatched_plays", len(result.UnmatchedPlays)).
		Msg("Import completed")
}

// importGames processes every canonical record, classifying per-item
// failures without ever aborting the batch. Returns the stored entries for
// the enrichment stage, keyed to their source records.
func (s *Service) importGames(ctx context.Context, jobID string, games []models.CanonicalGameRecord, result *models.ImportResult) []*models.CatalogEntry {
	imported := make([]*models.CatalogEntry, 0, len(games))
	// Parser-assigned id -> stored id, for expansion link resolution
	storedByGenerated := make(map[string]string, len(games))

	for i := range games {
		record := &games[i]
		entry, reason, err := s.importOne(ctx, record, storedByGenerated)

		succeeded := reason == ""
		if succeeded {
			result.Imported++
			imported = append(imported, entry)
			if record.GeneratedID != "" {
				storedByGenerated[record.GeneratedID] = entry.ID
			}
		} else {
			msg := ""
			if err != nil {
				msg = fmt.Sprintf("%s: %v", record.Title, err)
			}
			result.RecordFailure(reason, msg)
		}

		s.recordProgress(ctx, jobID, succeeded, record.Title, i+1, len(games))
	}

	return imported
}

// importOne imports a single record, returning the failure classification
// when it did not import.
func (s *Service) importOne(ctx context.Context, record *models.CanonicalGameRecord, storedByGenerated map[string]string) (entry *models.CatalogEntry, reason models.FailureReason, err error) {
	defer func() {
		if r := recover(); r != nil {
			entry, reason, err = nil, models.FailureException, fmt.Errorf("panic: %v", r)
		}
	}()

	if record.Title == "" {
		return nil, models.FailureMissingTitle, nil
	}

	// Identity: external id when present, normalized title otherwise
	existing, lookupErr := s.findExisting(ctx, record)
	if lookupErr != nil {
		return nil, models.FailureException, lookupErr
	}
	if existing != nil {
		return nil, models.FailureAlreadyExists, nil
	}

	entry = &models.CatalogEntry{
		ExternalID:  record.ExternalID,
		Title:       record.Title,
		ImageURL:    record.ImageURL,
		MinPlayers:  record.MinPlayers,
		MaxPlayers:  record.MaxPlayers,
		Playtime:    record.Playtime,
		Difficulty:  record.Difficulty,
		IsExpansion: record.IsExpansion,
	}
	if record.ParentGameID != "" {
		entry.ParentGameID = storedByGenerated[record.ParentGameID]
	}
	// The parent may predate this upload (or classify already_exists in it);
	// resolve against the catalog so the expansion link survives re-imports
	if entry.ParentGameID == "" && record.ParentTitle != "" {
		if parent, err := s.catalog.FindByTitleKey(ctx, models.NormalizeTitle(record.ParentTitle)); err == nil && parent != nil {
			entry.ParentGameID = parent.ID
		}
	}

	stored, storeErr := s.catalog.UpsertEntry(ctx, entry)
	if storeErr != nil {
		return nil, models.FailureCreateFailed, storeErr
	}

	for _, name := range record.Mechanics {
		mechanic, mErr := s.catalog.UpsertMechanic(ctx, name)
		if mErr != nil {
			continue
		}
		_ = s.catalog.LinkMechanic(ctx, stored.ID, mechanic.ID)
	}

	return stored, "", nil
}

// findExisting resolves a record against the catalog using the identity rule
func (s *Service) findExisting(ctx context.Context, record *models.CanonicalGameRecord) (*models.CatalogEntry, error) {
	if record.ExternalID != "" {
		return s.catalog.FindByExternalID(ctx, record.ExternalID)
	}
	return s.catalog.FindByTitleKey(ctx, models.NormalizeTitle(record.Title))
}

// recordProgress applies one item to the job counters and emits a frame at
// the configured cadence. Frames always carry the authoritative persisted
// counters, never locally incremented values.
func (s *Service) recordProgress(ctx context.Context, jobID string, succeeded bool, title string, done, total int) {
	var snapshot *models.ImportJob
	err := s.jobs.UpdateJob(ctx, jobID, func(job *models.ImportJob) error {
		if err := job.RecordItem(succeeded, title); err != nil {
			return err
		}
		copied := *job
		snapshot = &copied
		return nil
	})
	if err != nil {
		s.logger.Warn().Str("job_id", jobID).Err(err).Msg("Failed to record item progress")
		return
	}

	cadence := s.config.Importer.ProgressCadence
	if cadence <= 0 {
		cadence = 1
	}
	if done%cadence == 0 || done == total {
		s.publish(ctx, interfaces.EventImportProgress, models.ProgressFrameFromJob(snapshot))
	}
}

// setPhase moves the job to a new pipeline phase and emits a frame so
// observers see the transition
func (s *Service) setPhase(ctx context.Context, jobID string, phase models.ImportPhase) {
	var snapshot *models.ImportJob
	err := s.jobs.UpdateJob(ctx, jobID, func(job *models.ImportJob) error {
		job.Phase = phase
		copied := *job
		snapshot = &copied
		return nil
	})
	if err != nil {
		s.logger.Warn().Str("job_id", jobID).Err(err).Msg("Failed to update job phase")
		return
	}
	s.publish(ctx, interfaces.EventImportProgress, models.ProgressFrameFromJob(snapshot))
}

func (s *Service) failJob(ctx context.Context, jobID string, message string) {
	err := s.jobs.UpdateJob(ctx, jobID, func(job *models.ImportJob) error {
		job.MarkFailed(message)
		return nil
	})
	if err != nil {
		s.logger.Error().Str("job_id", jobID).Err(err).Msg("Failed to mark job failed")
	}
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, frame models.ProgressFrame) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: frame}); err != nil {
		s.logger.Warn().Str("event", string(eventType)).Err(err).Msg("Failed to publish import event")
	}
}
