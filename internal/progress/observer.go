package progress

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/models"
	"golang.org/x/time/rate"
)

// State is the observer's connection lifecycle state.
type State string

const (
	StateStarting     State = "starting"
	StateStreaming    State = "streaming"
	StateDisconnected State = "disconnected"
	StatePolling      State = "polling"
	StateComplete     State = "complete"
)

// Callbacks receives observed progress. Frames carry authoritative counter
// values; consumers replace their local state with each frame rather than
// incrementing, so duplicated frames across the stream/poll transition are
// harmless.
type Callbacks struct {
	OnFrame       func(frame models.ProgressFrame)
	OnStateChange func(state State)

	// Refresh is a coarse "something changed" signal for consumers that
	// re-render from scratch. It is throttled by the supervisor.
	Refresh func()
}

// Supervisor drives observation of one import job: it streams frames until
// the job completes, and falls back to polling when the stream drops before
// a terminal frame arrives.
type Supervisor struct {
	streamer  *StreamObserver
	poller    *PollObserver
	callbacks Callbacks
	logger    arbor.ILogger

	refreshLimiter *rate.Limiter

	mu    sync.Mutex
	state State
	wake  chan struct{}
}

// NewSupervisor creates a supervisor over the given transports. refreshRate
// bounds how often Callbacks.Refresh fires; zero disables throttling.
func NewSupervisor(streamer *StreamObserver, poller *PollObserver, callbacks Callbacks, refreshRate rate.Limit, logger arbor.ILogger) *Supervisor {
	var limiter *rate.Limiter
	if refreshRate > 0 {
		limiter = rate.NewLimiter(refreshRate, 1)
	}
	return &Supervisor{
		streamer:       streamer,
		poller:         poller,
		callbacks:      callbacks,
		logger:         logger,
		refreshLimiter: limiter,
		state:          StateStarting,
		wake:           make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WakeUp nudges the observer to check for progress immediately instead of
// waiting for the next poll tick. No-op while streaming.
func (s *Supervisor) WakeUp() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Observe runs until the job reaches a terminal frame or ctx is cancelled.
func (s *Supervisor) Observe(ctx context.Context, jobID string) error {
	s.setState(StateStreaming)

	complete, err := s.streamer.Stream(ctx, jobID, s.handleFrame)
	if complete {
		s.setState(StateComplete)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Stream dropped before the terminal frame: poll to completion
	s.logger.Debug().
		Str("job_id", jobID).
		Err(err).
		Msg("Stream interrupted - falling back to polling")
	s.setState(StateDisconnected)
	s.setState(StatePolling)

	if err := s.poller.Poll(ctx, jobID, s.wake, s.handleFrame); err != nil {
		return err
	}
	s.setState(StateComplete)
	return nil
}

func (s *Supervisor) handleFrame(frame models.ProgressFrame) {
	if s.callbacks.OnFrame != nil {
		s.callbacks.OnFrame(frame)
	}
	if s.callbacks.Refresh == nil {
		return
	}
	// Terminal frames always refresh; intermediate ones respect the throttle
	if frame.Type == models.FrameComplete || s.refreshLimiter == nil || s.refreshLimiter.Allow() {
		s.callbacks.Refresh()
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed && s.callbacks.OnStateChange != nil {
		s.callbacks.OnStateChange(state)
	}
}
