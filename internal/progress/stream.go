package progress

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/models"
)

// wsEnvelope is the hub's broadcast shape. Frame is nil for non-import
// events such as crawler run summaries.
type wsEnvelope struct {
	Event string                `json:"event"`
	Frame *models.ProgressFrame `json:"frame"`
}

// StreamObserver consumes progress frames over a websocket connection.
type StreamObserver struct {
	baseURL string // ws:// or wss:// endpoint base
	dialer  *websocket.Dialer
	logger  arbor.ILogger
}

// NewStreamObserver creates a stream observer for the given websocket base
// URL, e.g. "ws://localhost:8085"
func NewStreamObserver(baseURL string, logger arbor.ILogger) *StreamObserver {
	return &StreamObserver{
		baseURL: baseURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Stream connects and delivers frames for the given job until a complete
// frame arrives, the connection drops, or ctx is cancelled. The bool result
// reports whether the terminal frame was seen.
func (o *StreamObserver) Stream(ctx context.Context, jobID string, handle func(models.ProgressFrame)) (bool, error) {
	endpoint := fmt.Sprintf("%s/ws?job_id=%s", o.baseURL, url.QueryEscape(jobID))

	conn, _, err := o.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to connect to progress stream: %w", err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the caller gives up
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var envelope wsEnvelope
		if err := conn.ReadJSON(&envelope); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, fmt.Errorf("progress stream read failed: %w", err)
		}
		if envelope.Frame == nil {
			continue
		}
		frame := *envelope.Frame
		if frame.JobID != "" && frame.JobID != jobID {
			continue
		}

		handle(frame)

		if frame.Type == models.FrameComplete {
			return true, nil
		}
	}
}
