package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/interfaces"
)

// Manager bundles all badger-backed storage implementations
type Manager struct {
	db           *BadgerDB
	jobStorage   interfaces.JobStorage
	catalog      interfaces.CatalogStorage
	crawlerState interfaces.CrawlerStateStorage
	logger       arbor.ILogger
}

// NewManager opens the database and wires up all storage implementations
func NewManager(config *common.BadgerConfig, logger arbor.ILogger) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	return &Manager{
		db:           db,
		jobStorage:   NewJobStorage(db, logger),
		catalog:      NewCatalogStorage(db, logger),
		crawlerState: NewCrawlerStateStorage(db, logger),
		logger:       logger,
	}, nil
}

func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.jobStorage
}

func (m *Manager) CatalogStorage() interfaces.CatalogStorage {
	return m.catalog
}

func (m *Manager) CrawlerStateStorage() interfaces.CrawlerStateStorage {
	return m.crawlerState
}

func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing storage manager")
	return m.db.Close()
}
