// Package scheduler implements the background iteration loop (SPEC_FULL.md
// §4.8), grounded on the reference tree's registry/cmd main's
// signal-and-waitgroup shutdown idiom and the engine/inmem package's
// ticker-driven worker loop, adapted to a single cancellable goroutine
// that owns one Engine.
package scheduler

import (
	"context"
	"sync"
	"time"

	looperrors "github.com/loopercore/looper/internal/looper/errors"
	"github.com/loopercore/looper/internal/looper/model"
	"github.com/loopercore/looper/runtime/agent/telemetry"
)

// DefaultInterval is the steady-state tick period between iterations
// (§4.8).
const DefaultInterval = 200 * time.Millisecond

// ErrorRecoveryDelay is the fixed sleep applied after an iteration returns
// an error, before the next tick is attempted (§4.8).
const ErrorRecoveryDelay = 500 * time.Millisecond

// Engine is the narrow surface the scheduler drives.
type Engine interface {
	State() model.AgentState
	SetState(model.AgentState)
	Stop(reason string)
	Configured() bool
	RunIteration(ctx context.Context) (model.IterationReport, error)
}

// Scheduler runs Engine.RunIteration on a fixed tick from a single
// background goroutine (§4.8). It is the sole background consumer of the
// Engine: in-flight iterations are never aborted, Stop only prevents the
// *next* tick from starting a new one.
type Scheduler struct {
	engine   Engine
	interval time.Duration
	logger   telemetry.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New returns a Scheduler with the default 200ms interval. Pass a
// non-zero interval via WithInterval to override it (tests use a much
// shorter one).
func New(engine Engine, opts ...Option) *Scheduler {
	s := &Scheduler{engine: engine, interval: DefaultInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the default tick interval.
func WithInterval(d time.Duration) Option { return func(s *Scheduler) { s.interval = d } }

// WithLogger attaches a structured logger.
func WithLogger(logger telemetry.Logger) Option { return func(s *Scheduler) { s.logger = logger } }

// Start begins the background tick loop. Idempotent: a second call while
// already running is a no-op (§4.8). Requires the Engine to have both
// reasoners configured.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if !s.engine.Configured() {
		return looperrors.ErrNotConfigured
	}

	s.engine.SetState(model.AgentRunning)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
	return nil
}

// Stop signals the loop to exit after its current tick (or immediately if
// idle between ticks) and blocks until the goroutine has exited. An
// iteration already in flight is allowed to finish; Stop never aborts it
// mid-iteration (§4.8, §5).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	s.engine.Stop("manually stopped")
}

// Running reports whether the background loop is currently active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Stop cancels ctx; the iteration gets a context that Stop cannot cancel.
			if _, err := s.engine.RunIteration(context.WithoutCancel(ctx)); err != nil {
				if s.logger != nil {
					s.logger.Error(ctx, "iteration failed", "error", err)
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(ErrorRecoveryDelay):
				}
			}
			if s.engine.State() == model.AgentStopped {
				return
			}
		}
	}
}
