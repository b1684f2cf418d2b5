package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/meeple/internal/models"
	"github.com/ternarybob/meeple/internal/services/llm"
)

// enrichEntries fills gaps in freshly imported entries from the external
// reference source and rewrites their descriptions through the completion
// service. Lookup misses are recorded as not-found and the entry keeps its
// imported data. A rate-limited completion stops the remaining batch; the
// entries already enriched keep their rewrites.
func (s *Service) enrichEntries(ctx context.Context, jobID string, entries []*models.CatalogEntry, result *models.ImportResult) {
	if s.source == nil {
		s.logger.Debug().Str("job_id", jobID).Msg("No catalog source configured - skipping enrichment")
		return
	}

	rateLimited := false
	for _, entry := range entries {
		source, err := s.lookupSource(ctx, entry)
		if err != nil {
			s.logger.Warn().
				Str("title", entry.Title).
				Err(err).
				Msg("Enrichment lookup failed")
			continue
		}
		if source == nil {
			result.RecordNotFound(entry.Title)
			result.FailureBreakdown[models.FailureNotFound]++
			continue
		}

		s.applySourceData(ctx, entry, source)

		if rateLimited || s.completion == nil || source.Description == "" {
			continue
		}

		rewritten, err := s.rewriteDescription(ctx, entry.Title, source.Description)
		if err != nil {
			if errors.Is(err, llm.ErrRateLimited) {
				s.logger.Warn().
					Str("job_id", jobID).
					Msg("Completion provider rate limited - stopping description rewrites")
				rateLimited = true
				continue
			}
			s.logger.Warn().Str("title", entry.Title).Err(err).Msg("Description rewrite failed")
			continue
		}

		entry.Description = rewritten
		if _, err := s.catalog.UpsertEntry(ctx, entry); err != nil {
			s.logger.Warn().Str("title", entry.Title).Err(err).Msg("Failed to store rewritten description")
		}

		if delay := s.config.Enrichment.CallDelay; delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

// lookupSource resolves an entry against the external source, by id when one
// is known and by exact title otherwise
func (s *Service) lookupSource(ctx context.Context, entry *models.CatalogEntry) (*models.SourceEntry, error) {
	if entry.ExternalID != "" {
		found, err := s.source.FetchByIDs(ctx, []string{entry.ExternalID})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, nil
		}
		return found[0], nil
	}
	return s.source.FindByTitle(ctx, entry.Title)
}

// applySourceData fills fields the upload did not provide. Upload values win;
// the source only supplements.
func (s *Service) applySourceData(ctx context.Context, entry *models.CatalogEntry, source *models.SourceEntry) {
	changed := false
	if entry.ExternalID == "" && source.ExternalID != "" {
		entry.ExternalID = source.ExternalID
		changed = true
	}
	if entry.ImageURL == "" && source.ImageURL != "" {
		entry.ImageURL = source.ImageURL
		changed = true
	}
	if entry.Description == "" && source.Description != "" {
		entry.Description = source.Description
		changed = true
	}
	if entry.YearMade == 0 && source.YearMade > 0 {
		entry.YearMade = source.YearMade
		changed = true
	}
	if entry.MinPlayers == 0 && source.MinPlayers > 0 {
		entry.MinPlayers = source.MinPlayers
		entry.MaxPlayers = source.MaxPlayers
		changed = true
	}

	if !changed {
		return
	}
	if _, err := s.catalog.UpsertEntry(ctx, entry); err != nil {
		s.logger.Warn().Str("title", entry.Title).Err(err).Msg("Failed to store enriched entry")
	}
}

// rewriteDescription asks the completion service for a concise rewrite of
// the source's raw marketing copy
func (s *Service) rewriteDescription(ctx context.Context, title, raw string) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite the following board game description for %q in 150-250 words. "+
			"Keep it factual and engaging, drop marketing superlatives, and do not "+
			"invent details that are not in the source text.\n\n%s",
		title, raw)
	return s.completion.Complete(ctx, prompt)
}
