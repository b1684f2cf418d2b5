package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/models"
)

func TestPollObserver_RunsToCompletion(t *testing.T) {
	var hits atomic.Int32

	job := models.NewImportJob(3)
	job.MarkStarted()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/jobs/"+job.ID, r.URL.Path)

		// Advance the job one item per poll until it completes
		switch hits.Add(1) {
		case 1:
			_ = job.RecordItem(true, "Catan")
		case 2:
			_ = job.RecordItem(true, "Wingspan")
		default:
			if !job.IsTerminal() {
				_ = job.RecordItem(false, "Root")
				result := models.NewImportResult()
				result.Imported = 2
				result.RecordFailure(models.FailureCreateFailed, "root: boom")
				job.MarkCompleted(result)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(job)
	}))
	defer server.Close()

	observer := NewPollObserver(server.URL, 5*time.Millisecond, arbor.NewLogger())

	var frames []models.ProgressFrame
	wake := make(chan struct{}, 1)
	err := observer.Poll(context.Background(), job.ID, wake, func(frame models.ProgressFrame) {
		frames = append(frames, frame)
	})
	require.NoError(t, err)

	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.Equal(t, models.FrameComplete, last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, 2, last.Result.Imported)

	// Frames carry authoritative values: counters never move backwards
	current := 0
	for _, frame := range frames {
		if frame.Type != models.FrameProgress {
			continue
		}
		assert.GreaterOrEqual(t, frame.Current, current)
		current = frame.Current
	}
}

func TestPollObserver_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		job := models.NewImportJob(10)
		job.MarkStarted()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(job)
	}))
	defer server.Close()

	observer := NewPollObserver(server.URL, 5*time.Millisecond, arbor.NewLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := observer.Poll(ctx, "some-job", make(chan struct{}), func(models.ProgressFrame) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
