package server

import (
	"net/http"
	"time"

	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/handlers"
)

// handleStatus handles GET /api/status with a health and version summary
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !handlers.RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobCount, err := s.app.StorageManager.JobStorage().CountJobs(r.Context())
	if err != nil {
		handlers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	catalogSize, err := s.app.StorageManager.CatalogStorage().CountEntries(r.Context())
	if err != nil {
		handlers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"version":      common.Version,
		"build":        common.Build,
		"environment":  s.app.Config.Environment,
		"jobs":         jobCount,
		"catalog_size": catalogSize,
		"scheduler":    s.app.SchedulerService.IsRunning(),
		"time":         time.Now().Format(time.RFC3339),
	})
}
