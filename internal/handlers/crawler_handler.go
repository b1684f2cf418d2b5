package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/services/crawler"
)

// CrawlerHandler exposes control operations for the catalog crawler.
type CrawlerHandler struct {
	crawlerService *crawler.Service
	logger         arbor.ILogger
}

// NewCrawlerHandler creates a new crawler handler
func NewCrawlerHandler(crawlerService *crawler.Service, logger arbor.ILogger) *CrawlerHandler {
	return &CrawlerHandler{
		crawlerService: crawlerService,
		logger:         logger,
	}
}

// HandleStatus handles GET /api/crawler/status
func (h *CrawlerHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	state, catalogSize, err := h.crawlerService.Status(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"state":        state,
		"catalog_size": catalogSize,
	})
}

// HandleEnable handles POST /api/crawler/enable
func (h *CrawlerHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// HandleDisable handles POST /api/crawler/disable
func (h *CrawlerHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *CrawlerHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	state, err := h.crawlerService.SetEnabled(r.Context(), enabled)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, state)
}

// HandleReset handles POST /api/crawler/reset with {"next_external_id": N}
func (h *CrawlerHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body struct {
		NextExternalID int `json:"next_external_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.crawlerService.ResetCursor(r.Context(), body.NextExternalID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().
		Int("next_external_id", state.NextExternalID).
		Msg("Crawler cursor reset")
	WriteJSON(w, http.StatusOK, state)
}

// HandleRun handles POST /api/crawler/run, triggering one run in the
// background
func (h *CrawlerHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	go func() {
		if _, err := h.crawlerService.Run(context.Background()); err != nil {
			h.logger.Error().Err(err).Msg("Manual crawler run failed")
		}
	}()

	WriteStarted(w, "crawler run triggered")
}
