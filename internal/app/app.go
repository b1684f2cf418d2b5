package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/handlers"
	"github.com/ternarybob/meeple/internal/interfaces"
	"github.com/ternarybob/meeple/internal/services/auth"
	"github.com/ternarybob/meeple/internal/services/crawler"
	"github.com/ternarybob/meeple/internal/services/events"
	"github.com/ternarybob/meeple/internal/services/importer"
	"github.com/ternarybob/meeple/internal/services/llm"
	"github.com/ternarybob/meeple/internal/services/parser"
	"github.com/ternarybob/meeple/internal/services/scheduler"
	"github.com/ternarybob/meeple/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService
	AuthService    interfaces.AuthService

	ParserService    *parser.Service
	ImporterService  *importer.Service
	CrawlerService   *crawler.Service
	SchedulerService *scheduler.Service

	ImportHandler  *handlers.ImportHandler
	CrawlerHandler *handlers.CrawlerHandler
	WSHandler      *handlers.WebSocketHandler
}

// New wires up all services and handlers
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(&config.Storage.Badger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	a.EventService = events.NewService(logger)
	a.AuthService = auth.NewService(&config.Auth, logger)
	a.ParserService = parser.NewService(logger)

	// Optional: enrichment degrades gracefully without an API key
	var completion interfaces.CompletionService
	if config.Enrichment.APIKey != "" {
		claudeService, err := llm.NewClaudeService(&config.Enrichment, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize completion service: %w", err)
		}
		completion = claudeService
	} else {
		logger.Warn().Msg("No Anthropic API key configured - description enrichment disabled")
	}

	catalogSource := crawler.NewClient(&config.Crawler, logger)

	a.ImporterService = importer.NewService(
		config,
		a.ParserService,
		storageManager,
		a.EventService,
		completion,
		catalogSource,
		logger,
	)
	a.CrawlerService = crawler.NewService(
		&config.Crawler,
		catalogSource,
		storageManager,
		a.EventService,
		logger,
	)
	a.SchedulerService = scheduler.NewService(a.CrawlerService, logger)

	a.ImportHandler = handlers.NewImportHandler(a.ImporterService, logger)
	a.CrawlerHandler = handlers.NewCrawlerHandler(a.CrawlerService, logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, &config.WebSocket, logger)

	return a, nil
}

// Start performs startup recovery and launches background services
func (a *App) Start(ctx context.Context) error {
	// Jobs left running by a previous process can never finish
	recovered, err := a.StorageManager.JobStorage().MarkRunningJobsFailed(ctx, "service restarted while job was running")
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Startup job recovery failed")
	} else if recovered > 0 {
		a.Logger.Info().Int("count", recovered).Msg("Marked orphaned running jobs as failed")
	}

	if a.Config.Scheduler.Enabled {
		if err := a.SchedulerService.Start(a.Config.Scheduler.Schedule); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		a.Logger.Info().Msg("Scheduler disabled by configuration")
	}

	return nil
}

// Close shuts down all components in reverse dependency order
func (a *App) Close() {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduler shutdown failed")
		}
	}
	if a.WSHandler != nil {
		a.WSHandler.Close()
	}
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Event service shutdown failed")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage shutdown failed")
		}
	}
}
