package interfaces

import (
	"context"

	"github.com/ternarybob/meeple/internal/models"
)

// AuthService gates who may start imports or control the crawler
type AuthService interface {
	Authorize(token string) bool
}

// CompletionService is the text-completion collaborator used by the
// enrichment stage to rewrite descriptions.
type CompletionService interface {
	// Complete returns generated text for a prompt. Implementations return
	// ErrRateLimited (detectable via errors.Is) when the upstream signals
	// a rate limit so callers can stop the remaining batch.
	Complete(ctx context.Context, prompt string) (string, error)
}

// CatalogSource is the external reference-data lookup, batchable by id.
type CatalogSource interface {
	// FetchByIDs fetches zero or more structured entries for the given
	// external ids in one multi-id request.
	FetchByIDs(ctx context.Context, externalIDs []string) ([]*models.SourceEntry, error)

	// FindByTitle resolves a single entry by title, used by enrichment when
	// no external id is available. Returns nil when the source has no match.
	FindByTitle(ctx context.Context, title string) (*models.SourceEntry, error)
}
