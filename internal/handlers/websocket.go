package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/interfaces"
	"github.com/ternarybob/meeple/internal/models"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsClient is one connected websocket consumer. An empty jobID receives
// every frame; otherwise frames are filtered to the subscribed job.
type wsClient struct {
	conn  *websocket.Conn
	jobID string
	mu    sync.Mutex // Serializes writes to conn
}

// WebSocketHandler broadcasts import progress frames and crawler run
// summaries to connected clients.
type WebSocketHandler struct {
	logger  arbor.ILogger
	clients map[*wsClient]bool
	mu      sync.RWMutex

	// progressThrottlers rate-limits intermediate progress frames per job.
	// Start, complete, and crawler events always pass through.
	progressThrottlers map[string]*rate.Limiter
	throttleMu         sync.Mutex
	throttleInterval   rate.Limit
}

// NewWebSocketHandler creates the handler and subscribes it to the event bus
func NewWebSocketHandler(eventService interfaces.EventService, config *common.WebSocketConfig, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:             logger,
		clients:            make(map[*wsClient]bool),
		progressThrottlers: make(map[string]*rate.Limiter),
	}
	if config != nil && config.ThrottleInterval > 0 {
		h.throttleInterval = rate.Every(config.ThrottleInterval)
	}

	if eventService != nil {
		for _, eventType := range []interfaces.EventType{
			interfaces.EventImportStarted,
			interfaces.EventImportProgress,
			interfaces.EventImportCompleted,
		} {
			_ = eventService.Subscribe(eventType, h.onImportEvent)
		}
		_ = eventService.Subscribe(interfaces.EventCrawlerRun, h.onCrawlerEvent)
	}

	return h
}

// HandleWebSocket handles GET /ws, with an optional job_id query filter
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, jobID: r.URL.Query().Get("job_id")}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("job_id", client.jobID).
		Int("clients", count).
		Msg("WebSocket client connected")

	// Reader loop exists only to detect disconnect; clients do not send
	go func() {
		defer h.removeClient(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) removeClient(client *wsClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	_ = client.conn.Close()
}

// onImportEvent forwards progress frames to matching clients
func (h *WebSocketHandler) onImportEvent(ctx context.Context, event interfaces.Event) error {
	frame, ok := event.Payload.(models.ProgressFrame)
	if !ok {
		return nil
	}

	if frame.Type == models.FrameProgress && !h.allowProgress(frame.JobID) {
		return nil
	}
	if frame.Type == models.FrameComplete {
		h.dropThrottler(frame.JobID)
	}

	h.broadcast(frame.JobID, map[string]interface{}{
		"event": string(event.Type),
		"frame": frame,
	})
	return nil
}

// onCrawlerEvent forwards crawler run summaries to every client
func (h *WebSocketHandler) onCrawlerEvent(ctx context.Context, event interfaces.Event) error {
	h.broadcast("", map[string]interface{}{
		"event":   string(event.Type),
		"summary": event.Payload,
	})
	return nil
}

// allowProgress applies the per-job throttle. Frames carry authoritative
// values so dropping intermediate ones loses nothing.
func (h *WebSocketHandler) allowProgress(jobID string) bool {
	if h.throttleInterval == 0 {
		return true
	}
	h.throttleMu.Lock()
	limiter, ok := h.progressThrottlers[jobID]
	if !ok {
		limiter = rate.NewLimiter(h.throttleInterval, 1)
		h.progressThrottlers[jobID] = limiter
	}
	h.throttleMu.Unlock()
	return limiter.Allow()
}

func (h *WebSocketHandler) dropThrottler(jobID string) {
	h.throttleMu.Lock()
	delete(h.progressThrottlers, jobID)
	h.throttleMu.Unlock()
}

// broadcast writes a message to every client subscribed to the given job.
// An empty jobID broadcasts to everyone.
func (h *WebSocketHandler) broadcast(jobID string, message interface{}) {
	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		if jobID == "" || client.jobID == "" || client.jobID == jobID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.mu.Lock()
		err := client.conn.WriteJSON(message)
		client.mu.Unlock()
		if err != nil {
			h.removeClient(client)
		}
	}
}

// Close disconnects every client
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	for client := range h.clients {
		_ = client.conn.Close()
	}
	h.clients = make(map[*wsClient]bool)
	h.mu.Unlock()
}
