package importer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/meeple/internal/models"
)

// importPlays stores bundled play records against their games. Plays are
// matched by external id first, then normalized title. A play whose game
// cannot be found goes on the unmatched list; it is never counted as a
// failed item.
func (s *Service) importPlays(ctx context.Context, plays []models.CanonicalPlayRecord, updateExisting bool, result *models.ImportResult) {
	for _, play := range plays {
		entry, err := s.matchPlayGame(ctx, &play)
		if err != nil {
			s.logger.Warn().Str("title", play.Title).Err(err).Msg("Play match lookup failed")
			result.UnmatchedPlays = append(result.UnmatchedPlays, play)
			continue
		}
		if entry == nil {
			result.UnmatchedPlays = append(result.UnmatchedPlays, play)
			continue
		}

		record := &models.PlayRecord{
			ID:      uuid.New().String(),
			GameID:  entry.ID,
			Date:    play.Date,
			Players: play.Players,
			Result:  play.Result,
			Created: time.Now(),
		}

		existing, err := s.catalog.FindPlay(ctx, record.PlayKey())
		if err != nil {
			s.logger.Warn().Str("title", play.Title).Err(err).Msg("Play duplicate check failed")
			continue
		}
		if existing != nil {
			if !updateExisting {
				result.PlaysSkipped++
				continue
			}
			// Overwrite in place, keeping the original record identity
			record.ID = existing.ID
			record.Created = existing.Created
		}

		if err := s.catalog.SavePlay(ctx, record); err != nil {
			s.logger.Warn().Str("title", play.Title).Err(err).Msg("Failed to store play record")
			continue
		}
		result.PlaysImported++
	}

	s.logger.Debug().
		Int("imported", result.PlaysImported).
		Int("skipped", result.PlaysSkipped).
		Int("unmatched", len(result.UnmatchedPlays)).
		Msg("Play history processed")
}

// matchPlayGame resolves the game a play belongs to: external id first,
// normalized title second
func (s *Service) matchPlayGame(ctx context.Context, play *models.CanonicalPlayRecord) (*models.CatalogEntry, error) {
	if play.ExternalID != "" {
		entry, err := s.catalog.FindByExternalID(ctx, play.ExternalID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return entry, nil
		}
	}
	if play.Title == "" {
		return nil, nil
	}
	return s.catalog.FindByTitleKey(ctx, models.NormalizeTitle(play.Title))
}
