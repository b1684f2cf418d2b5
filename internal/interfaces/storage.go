package interfaces

import (
	"context"

	"github.com/ternarybob/meeple/internal/models"
)

// JobStorage - interface for import job persistence.
// All mutation is an atomic update keyed by job id.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.ImportJob) error
	GetJob(ctx context.Context, jobID string) (*models.ImportJob, error)
	UpdateJob(ctx context.Context, jobID string, mutate func(*models.ImportJob) error) error
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.ImportJob, error)
	MarkRunningJobsFailed(ctx context.Context, reason string) (int, error)
	CountJobs(ctx context.Context) (int, error)
}

// JobListOptions filters and pages job listings
type JobListOptions struct {
	Status   models.JobStatus
	Limit    int
	Offset   int
	OrderBy  string
	OrderDir string
}

// CatalogStorage - interface for the reference catalog (games, mechanics,
// designers, plays). Writes are idempotent upserts keyed by external id or
// normalized title.
type CatalogStorage interface {
	UpsertEntry(ctx context.Context, entry *models.CatalogEntry) (*models.CatalogEntry, error)
	GetEntry(ctx context.Context, id string) (*models.CatalogEntry, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.CatalogEntry, error)
	FindByTitleKey(ctx context.Context, titleKey string) (*models.CatalogEntry, error)
	ExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]bool, error)
	CountEntries(ctx context.Context) (int, error)

	UpsertMechanic(ctx context.Context, name string) (*models.Mechanic, error)
	UpsertDesigner(ctx context.Context, name string) (*models.Designer, error)
	LinkMechanic(ctx context.Context, entryID, mechanicID string) error
	LinkDesigner(ctx context.Context, entryID, designerID string) error

	SavePlay(ctx context.Context, play *models.PlayRecord) error
	FindPlay(ctx context.Context, playKey string) (*models.PlayRecord, error)
}

// CrawlerStateStorage - interface for the singleton crawler state row.
// SaveState must verify via read-back; a zero-effect primary write falls
// back to a lower-level direct write.
type CrawlerStateStorage interface {
	GetState(ctx context.Context) (*models.CrawlerState, error)
	SaveState(ctx context.Context, state *models.CrawlerState) error
	UpdateState(ctx context.Context, mutate func(*models.CrawlerState) error) (*models.CrawlerState, error)
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	JobStorage() JobStorage
	CatalogStorage() CatalogStorage
	CrawlerStateStorage() CrawlerStateStorage
	Close() error
}
