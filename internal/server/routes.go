package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Import pipeline
	mux.HandleFunc("/api/import", s.app.ImportHandler.HandleImport)      // POST, ?stream=true for NDJSON
	mux.HandleFunc("/api/jobs", s.app.ImportHandler.HandleListJobs)      // GET
	mux.HandleFunc("/api/jobs/{id}", s.app.ImportHandler.HandleJob)      // GET
	mux.HandleFunc("/api/status", s.handleStatus)                        // GET

	// API routes - Catalog crawler control
	mux.HandleFunc("/api/crawler/status", s.app.CrawlerHandler.HandleStatus)
	mux.HandleFunc("/api/crawler/enable", s.app.CrawlerHandler.HandleEnable)
	mux.HandleFunc("/api/crawler/disable", s.app.CrawlerHandler.HandleDisable)
	mux.HandleFunc("/api/crawler/reset", s.app.CrawlerHandler.HandleReset)
	mux.HandleFunc("/api/crawler/run", s.app.CrawlerHandler.HandleRun)

	return mux
}
