package progress

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/models"
)

// DefaultPollInterval is the fallback cadence when none is configured.
const DefaultPollInterval = 3 * time.Second

// PollObserver fetches job snapshots over HTTP and synthesizes progress
// frames from them. Used when the stream transport is unavailable.
type PollObserver struct {
	http     *resty.Client
	interval time.Duration
	logger   arbor.ILogger
}

// NewPollObserver creates a poll observer against the given HTTP base URL,
// e.g. "http://localhost:8085"
func NewPollObserver(baseURL string, interval time.Duration, logger arbor.ILogger) *PollObserver {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollObserver{
		http:     resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		interval: interval,
		logger:   logger,
	}
}

// Poll fetches the job on a fixed cadence until it reaches a terminal
// status. A signal on wake triggers an immediate fetch. Synthesized frames
// carry the same authoritative values a stream would.
func (o *PollObserver) Poll(ctx context.Context, jobID string, wake <-chan struct{}, handle func(models.ProgressFrame)) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		job, err := o.fetchJob(ctx, jobID)
		if err != nil {
			o.logger.Warn().Str("job_id", jobID).Err(err).Msg("Poll fetch failed")
		} else {
			handle(models.ProgressFrameFromJob(job))
			if job.IsTerminal() {
				handle(models.CompleteFrame(job.ID, job.Result))
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-wake:
		}
	}
}

func (o *PollObserver) fetchJob(ctx context.Context, jobID string) (*models.ImportJob, error) {
	var job models.ImportJob
	resp, err := o.http.R().
		SetContext(ctx).
		SetResult(&job).
		Get("/api/jobs/" + jobID)
	if err != nil {
		return nil, fmt.Errorf("job status request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("job status returned %d", resp.StatusCode())
	}
	return &job, nil
}
