package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/interfaces"
	"github.com/ternarybob/meeple/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CatalogStorage implements the CatalogStorage interface for Badger
type CatalogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCatalogStorage creates a new CatalogStorage instance
func NewCatalogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CatalogStorage {
	return &CatalogStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertEntry writes a catalog entry keyed by external id when present,
// otherwise by normalized title. Repeat writes for the same key update the
// existing record in place, preserving its ID and CreatedAt.
func (s *CatalogStorage) UpsertEntry(ctx context.Context, entry *models.CatalogEntry) (*models.CatalogEntry, error) {
	if entry.Title == "" {
		return nil, fmt.Errorf("catalog entry title is required")
	}
	entry.TitleKey = models.NormalizeTitle(entry.Title)

	existing, err := s.findExisting(ctx, entry)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if existing != nil {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
		// Links accumulate across upserts rather than being replaced
		entry.MechanicIDs = mergeIDs(existing.MechanicIDs, entry.MechanicIDs)
		entry.DesignerIDs = mergeIDs(existing.DesignerIDs, entry.DesignerIDs)
	} else {
		entry.ID = uuid.New().String()
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if err := s.db.Store().Upsert(entry.ID, entry); err != nil {
		return nil, fmt.Errorf("failed to upsert catalog entry: %w", err)
	}
	return entry, nil
}

func (s *CatalogStorage) findExisting(ctx context.Context, entry *models.CatalogEntry) (*models.CatalogEntry, error) {
	if entry.ExternalID != "" {
		return s.FindByExternalID(ctx, entry.ExternalID)
	}
	return s.FindByTitleKey(ctx, entry.TitleKey)
}

func (s *CatalogStorage) GetEntry(ctx context.Context, id string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	if err := s.db.Store().Get(id, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("catalog entry not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	return &entry, nil
}

// FindByExternalID returns the entry with the given external id, or nil
func (s *CatalogStorage) FindByExternalID(ctx context.Context, externalID string) (*models.CatalogEntry, error) {
	if externalID == "" {
		return nil, nil
	}
	var entries []models.CatalogEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("ExternalID").Eq(externalID).Index("ExternalID").Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to find by external id: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// FindByTitleKey returns the entry with the given normalized title, or nil
func (s *CatalogStorage) FindByTitleKey(ctx context.Context, titleKey string) (*models.CatalogEntry, error) {
	if titleKey == "" {
		return nil, nil
	}
	var entries []models.CatalogEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("TitleKey").Eq(titleKey).Index("TitleKey").Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to find by title key: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// ExistingExternalIDs reports which of the given external ids are already in
// the catalog. Used by the crawler's skip-existing filter.
func (s *CatalogStorage) ExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]bool, error) {
	known := make(map[string]bool)
	if len(externalIDs) == 0 {
		return known, nil
	}

	ids := make([]interface{}, len(externalIDs))
	for i, id := range externalIDs {
		ids[i] = id
	}

	var entries []models.CatalogEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("ExternalID").In(ids...).Index("ExternalID")); err != nil {
		return nil, fmt.Errorf("failed to check existing external ids: %w", err)
	}
	for i := range entries {
		known[entries[i].ExternalID] = true
	}
	return known, nil
}

func (s *CatalogStorage) CountEntries(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.CatalogEntry{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// UpsertMechanic writes a mechanic keyed by its normalized name, idempotent
// across repeat runs
func (s *CatalogStorage) UpsertMechanic(ctx context.Context, name string) (*models.Mechanic, error) {
	if name == "" {
		return nil, fmt.Errorf("mechanic name is required")
	}
	mechanic := &models.Mechanic{
		ID:   "mechanic:" + models.NormalizeTitle(name),
		Name: name,
	}
	if err := s.db.Store().Upsert(mechanic.ID, mechanic); err != nil {
		return nil, fmt.Errorf("failed to upsert mechanic: %w", err)
	}
	return mechanic, nil
}

// UpsertDesigner writes a designer keyed by its normalized name
func (s *CatalogStorage) UpsertDesigner(ctx context.Context, name string) (*models.Designer, error) {
	if name == "" {
		return nil, fmt.Errorf("designer name is required")
	}
	designer := &models.Designer{
		ID:   "designer:" + models.NormalizeTitle(name),
		Name: name,
	}
	if err := s.db.Store().Upsert(designer.ID, designer); err != nil {
		return nil, fmt.Errorf("failed to upsert designer: %w", err)
	}
	return designer, nil
}

// LinkMechanic attaches a mechanic to an entry. Linking twice is a no-op.
func (s *CatalogStorage) LinkMechanic(ctx context.Context, entryID, mechanicID string) error {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	for _, id := range entry.MechanicIDs {
		if id == mechanicID {
			return nil
		}
	}
	entry.MechanicIDs = append(entry.MechanicIDs, mechanicID)
	return s.db.Store().Upsert(entry.ID, entry)
}

// LinkDesigner attaches a designer to an entry. Linking twice is a no-op.
func (s *CatalogStorage) LinkDesigner(ctx context.Context, entryID, designerID string) error {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	for _, id := range entry.DesignerIDs {
		if id == designerID {
			return nil
		}
	}
	entry.DesignerIDs = append(entry.DesignerIDs, designerID)
	return s.db.Store().Upsert(entry.ID, entry)
}

func (s *CatalogStorage) SavePlay(ctx context.Context, play *models.PlayRecord) error {
	if play.ID == "" {
		play.ID = uuid.New().String()
	}
	if play.Created.IsZero() {
		play.Created = time.Now()
	}
	if err := s.db.Store().Upsert(play.ID, play); err != nil {
		return fmt.Errorf("failed to save play: %w", err)
	}
	return nil
}

// FindPlay returns a stored play matching the duplicate-detection key, or nil.
// The key's leading segment is the game id, so the lookup only scans that
// game's plays.
func (s *CatalogStorage) FindPlay(ctx context.Context, playKey string) (*models.PlayRecord, error) {
	gameID, _, ok := strings.Cut(playKey, "|")
	if !ok {
		return nil, fmt.Errorf("invalid play key: %s", playKey)
	}
	var plays []models.PlayRecord
	if err := s.db.Store().Find(&plays, badgerhold.Where("GameID").Eq(gameID).Index("GameID")); err != nil {
		return nil, fmt.Errorf("failed to scan plays: %w", err)
	}
	for i := range plays {
		if plays[i].PlayKey() == playKey {
			return &plays[i], nil
		}
	}
	return nil, nil
}

// mergeIDs unions two id slices preserving first-seen order
func mergeIDs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range append(append([]string{}, a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
