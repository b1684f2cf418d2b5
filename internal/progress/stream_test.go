package progress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/models"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestStreamObserver_ReadsFramesToCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ws", r.URL.Path)
		require.Equal(t, "job-1", r.URL.Query().Get("job_id"))

		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		frames := []models.ProgressFrame{
			models.StartFrame("job-1", 2),
			{Type: models.FrameProgress, JobID: "job-1", Current: 1, Total: 2},
			{Type: models.FrameProgress, JobID: "other-job", Current: 9, Total: 9},
			{Type: models.FrameComplete, JobID: "job-1", Result: &models.ImportResult{Imported: 2}},
		}
		for i := range frames {
			require.NoError(t, conn.WriteJSON(wsEnvelope{Event: "import", Frame: &frames[i]}))
		}
		// Non-import broadcasts carry no frame and must be skipped
		require.NoError(t, conn.WriteJSON(wsEnvelope{Event: "crawler:run"}))
	}))
	defer server.Close()

	baseURL := strings.Replace(server.URL, "http://", "ws://", 1)
	observer := NewStreamObserver(baseURL, arbor.NewLogger())

	var received []models.ProgressFrame
	complete, err := observer.Stream(context.Background(), "job-1", func(frame models.ProgressFrame) {
		received = append(received, frame)
	})
	require.NoError(t, err)
	assert.True(t, complete)

	// The other job's frame is filtered out
	require.Len(t, received, 3)
	assert.Equal(t, models.FrameStart, received[0].Type)
	assert.Equal(t, models.FrameComplete, received[2].Type)
	require.NotNil(t, received[2].Result)
	assert.Equal(t, 2, received[2].Result.Imported)
}

func TestStreamObserver_ServerDropsBeforeComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		frame := models.ProgressFrame{Type: models.FrameProgress, JobID: "job-1", Current: 1, Total: 5}
		require.NoError(t, conn.WriteJSON(wsEnvelope{Event: "import", Frame: &frame}))
		conn.Close()
	}))
	defer server.Close()

	baseURL := strings.Replace(server.URL, "http://", "ws://", 1)
	observer := NewStreamObserver(baseURL, arbor.NewLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var received []models.ProgressFrame
	complete, err := observer.Stream(ctx, "job-1", func(frame models.ProgressFrame) {
		received = append(received, frame)
	})
	assert.False(t, complete)
	assert.Error(t, err)
	assert.Len(t, received, 1)
}
