package crawler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/interfaces"
	"github.com/ternarybob/meeple/internal/models"
)

// fakeSource serves canned entries and records which ids were requested
type fakeSource struct {
	entries map[string]*models.SourceEntry
	fetched [][]string
	errs    []error // popped per FetchByIDs call
}

func (f *fakeSource) FetchByIDs(ctx context.Context, ids []string) ([]*models.SourceEntry, error) {
	f.fetched = append(f.fetched, ids)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	var out []*models.SourceEntry
	for _, id := range ids {
		if entry, ok := f.entries[id]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeSource) FindByTitle(ctx context.Context, title string) (*models.SourceEntry, error) {
	for _, entry := range f.entries {
		if entry.Title == title {
			return entry, nil
		}
	}
	return nil, nil
}

// fakeCatalog is a minimal in-memory CatalogStorage
type fakeCatalog struct {
	mu      sync.Mutex
	byID    map[string]*models.CatalogEntry
	byExtID map[string]*models.CatalogEntry
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		byID:    make(map[string]*models.CatalogEntry),
		byExtID: make(map[string]*models.CatalogEntry),
	}
}

func (f *fakeCatalog) UpsertEntry(ctx context.Context, entry *models.CatalogEntry) (*models.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.TitleKey = models.NormalizeTitle(entry.Title)
	f.byID[entry.ID] = entry
	if entry.ExternalID != "" {
		f.byExtID[entry.ExternalID] = entry
	}
	return entry, nil
}

func (f *fakeCatalog) GetEntry(ctx context.Context, id string) (*models.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id], nil
}

func (f *fakeCatalog) FindByExternalID(ctx context.Context, externalID string) (*models.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byExtID[externalID], nil
}

func (f *fakeCatalog) FindByTitleKey(ctx context.Context, titleKey string) (*models.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.byID {
		if entry.TitleKey == titleKey {
			return entry, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	known := make(map[string]bool)
	for _, id := range ids {
		if _, ok := f.byExtID[id]; ok {
			known[id] = true
		}
	}
	return known, nil
}

func (f *fakeCatalog) CountEntries(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID), nil
}

func (f *fakeCatalog) UpsertMechanic(ctx context.Context, name string) (*models.Mechanic, error) {
	return &models.Mechanic{ID: "mechanic:" + models.NormalizeTitle(name), Name: name}, nil
}

func (f *fakeCatalog) UpsertDesigner(ctx context.Context, name string) (*models.Designer, error) {
	return &models.Designer{ID: "designer:" + models.NormalizeTitle(name), Name: name}, nil
}

func (f *fakeCatalog) LinkMechanic(ctx context.Context, entryID, mechanicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry, ok := f.byID[entryID]; ok {
		entry.MechanicIDs = append(entry.MechanicIDs, mechanicID)
	}
	return nil
}

func (f *fakeCatalog) LinkDesigner(ctx context.Context, entryID, designerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry, ok := f.byID[entryID]; ok {
		entry.DesignerIDs = append(entry.DesignerIDs, designerID)
	}
	return nil
}

func (f *fakeCatalog) SavePlay(ctx context.Context, play *models.PlayRecord) error { return nil }

func (f *fakeCatalog) FindPlay(ctx context.Context, playKey string) (*models.PlayRecord, error) {
	return nil, nil
}

// fakeStateStorage keeps the singleton state in memory
type fakeStateStorage struct {
	mu    sync.Mutex
	state *models.CrawlerState
}

func (f *fakeStateStorage) GetState(ctx context.Context) (*models.CrawlerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		f.state = models.NewCrawlerState()
	}
	copied := *f.state
	return &copied, nil
}

func (f *fakeStateStorage) SaveState(ctx context.Context, state *models.CrawlerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *state
	f.state = &copied
	return nil
}

func (f *fakeStateStorage) UpdateState(ctx context.Context, mutate func(*models.CrawlerState) error) (*models.CrawlerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		f.state = models.NewCrawlerState()
	}
	if err := mutate(f.state); err != nil {
		return nil, err
	}
	copied := *f.state
	return &copied, nil
}

// fakeStorage bundles the fakes into a StorageManager
type fakeStorage struct {
	catalog *fakeCatalog
	state   *fakeStateStorage
}

func (f *fakeStorage) JobStorage() interfaces.JobStorage                  { return nil }
func (f *fakeStorage) CatalogStorage() interfaces.CatalogStorage          { return f.catalog }
func (f *fakeStorage) CrawlerStateStorage() interfaces.CrawlerStateStorage { return f.state }
func (f *fakeStorage) Close() error                                       { return nil }

func testCrawlerConfig() *common.CrawlerConfig {
	return &common.CrawlerConfig{
		BatchSize:      5,
		BatchesPerRun:  2,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		ProcessingWait: time.Millisecond,
	}
}

func newTestCrawler(source interfaces.CatalogSource, storage *fakeStorage) *Service {
	return NewService(testCrawlerConfig(), source, storage, nil, arbor.NewLogger())
}

func sourceEntry(id, title string) *models.SourceEntry {
	return &models.SourceEntry{ExternalID: id, Title: title}
}

func TestCrawler_DisabledRunDoesNothing(t *testing.T) {
	source := &fakeSource{entries: map[string]*models.SourceEntry{}}
	storage := &fakeStorage{catalog: newFakeCatalog(), state: &fakeStateStorage{}}
	svc := newTestCrawler(source, storage)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Ran)
	assert.Empty(t, source.fetched)

	state, _ := storage.state.GetState(context.Background())
	assert.Equal(t, 1, state.NextExternalID)
}

func TestCrawler_RunAdvancesCursorAndStoresEntries(t *testing.T) {
	source := &fakeSource{entries: map[string]*models.SourceEntry{
		"1": sourceEntry("1", "Catan"),
		"7": sourceEntry("7", "Wingspan"),
	}}
	storage := &fakeStorage{catalog: newFakeCatalog(), state: &fakeStateStorage{}}
	svc := newTestCrawler(source, storage)

	_, err := svc.SetEnabled(context.Background(), true)
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Ran)
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, 2, summary.Added)
	// 2 batches * 5 ids, starting at cursor 1
	assert.Equal(t, 11, summary.NextCursor)

	count, _ := storage.catalog.CountEntries(context.Background())
	assert.Equal(t, 2, count)

	state, _ := storage.state.GetState(context.Background())
	assert.Equal(t, 11, state.NextExternalID)
	assert.NotNil(t, state.LastRunAt)
}

func TestCrawler_SkipsExistingIDs(t *testing.T) {
	source := &fakeSource{entries: map[string]*models.SourceEntry{
		"1": sourceEntry("1", "Catan"),
		"2": sourceEntry("2", "Wingspan"),
	}}
	storage := &fakeStorage{catalog: newFakeCatalog(), state: &fakeStateStorage{}}

	// Pre-seed id 1 so the run must not re-fetch it
	_, err := storage.catalog.UpsertEntry(context.Background(), &models.CatalogEntry{
		ExternalID: "1",
		Title:      "Catan",
	})
	require.NoError(t, err)

	svc := newTestCrawler(source, storage)
	_, err = svc.SetEnabled(context.Background(), true)
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Added)

	for _, batch := range source.fetched {
		for _, id := range batch {
			assert.NotEqual(t, "1", id, "existing id must not be fetched")
		}
	}
}

func TestCrawler_CursorAdvancesDespiteErrors(t *testing.T) {
	source := &fakeSource{
		entries: map[string]*models.SourceEntry{},
		errs:    []error{fmt.Errorf("boom"), fmt.Errorf("boom")},
	}
	storage := &fakeStorage{catalog: newFakeCatalog(), state: &fakeStateStorage{}}
	svc := newTestCrawler(source, storage)

	_, err := svc.SetEnabled(context.Background(), true)
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, 0, summary.Added)
	assert.Equal(t, 11, summary.NextCursor)
	assert.NotEmpty(t, summary.LastError)

	state, _ := storage.state.GetState(context.Background())
	assert.Equal(t, 11, state.NextExternalID)
	assert.Equal(t, 2, state.TotalErrors)
	assert.Equal(t, "boom", state.LastError)
}

func TestCrawler_RateLimitRetriesThenAdvances(t *testing.T) {
	source := &fakeSource{
		entries: map[string]*models.SourceEntry{"3": sourceEntry("3", "Root")},
		errs:    []error{ErrTooManyRequests}, // first attempt 429s, retry succeeds
	}
	storage := &fakeStorage{catalog: newFakeCatalog(), state: &fakeStateStorage{}}
	svc := newTestCrawler(source, storage)

	_, err := svc.SetEnabled(context.Background(), true)
	require.NoError(t, err)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 11, summary.NextCursor)
	// First batch fetched twice (429 then retry), second batch once
	assert.Len(t, source.fetched, 3)
}

func TestCrawler_ResetCursor(t *testing.T) {
	storage := &fakeStorage{catalog: newFakeCatalog(), state: &fakeStateStorage{}}
	svc := newTestCrawler(&fakeSource{}, storage)

	state, err := svc.ResetCursor(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 500, state.NextExternalID)

	_, err = svc.ResetCursor(context.Background(), 0)
	assert.Error(t, err)
}
