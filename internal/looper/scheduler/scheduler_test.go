package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	looperrors "github.com/loopercore/looper/internal/looper/errors"
	"github.com/loopercore/looper/internal/looper/model"
	"github.com/loopercore/looper/internal/looper/scheduler"
)

type fakeEngine struct {
	mu          sync.Mutex
	state       model.AgentState
	stopReason  string
	configured  bool
	iterations  int64
	errorOnce   bool
	erroredYet  bool
	blockDoneCh chan struct{}
}

func (e *fakeEngine) State() model.AgentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *fakeEngine) SetState(s model.AgentState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

func (e *fakeEngine) Stop(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = model.AgentStopped
	e.stopReason = reason
}

func (e *fakeEngine) StopReason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopReason
}

func (e *fakeEngine) Configured() bool { return e.configured }

func (e *fakeEngine) RunIteration(ctx context.Context) (model.IterationReport, error) {
	atomic.AddInt64(&e.iterations, 1)
	if e.blockDoneCh != nil {
		<-e.blockDoneCh
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.errorOnce && !e.erroredYet {
		e.erroredYet = true
		return model.IterationReport{}, assert.AnError
	}
	return model.IterationReport{}, nil
}

func TestStart_RequiresConfiguredEngine(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{configured: false}
	s := scheduler.New(eng)
	err := s.Start()
	assert.ErrorIs(t, err, looperrors.ErrNotConfigured)
	assert.False(t, s.Running())
}

func TestStart_IsIdempotent(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{configured: true}
	s := scheduler.New(eng, scheduler.WithInterval(5*time.Millisecond))
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	s.Stop()
}

func TestStart_TransitionsEngineToRunning(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{configured: true}
	s := scheduler.New(eng, scheduler.WithInterval(5*time.Millisecond))
	require.NoError(t, s.Start())
	assert.Equal(t, model.AgentRunning, eng.State())
	s.Stop()
}

func TestLoop_RunsIterationsOnTick(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{configured: true}
	s := scheduler.New(eng, scheduler.WithInterval(2*time.Millisecond))
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&eng.iterations) >= 3
	}, time.Second, 2*time.Millisecond)

	s.Stop()
}

// Stop drains the current tick, never aborting it mid-flight, and only
// then transitions the Engine to Stopped (§4.8, §5).
func TestStop_WaitsForInFlightIterationThenMarksStopped(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	eng := &fakeEngine{configured: true, blockDoneCh: block}
	s := scheduler.New(eng, scheduler.WithInterval(2*time.Millisecond))
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&eng.iterations) >= 1
	}, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight iteration was released")
	case <-time.After(20 * time.Millisecond):
	}

	close(block)
	<-stopped
	assert.Equal(t, model.AgentStopped, eng.State())
	assert.Equal(t, "manually stopped", eng.StopReason())
	assert.False(t, s.Running())
}

// Stop records the §4.8 stop reason verbatim, distinct from any reason a
// RunIteration failure (e.g. a frontier communication error) might set.
func TestStop_RecordsManuallyStoppedReason(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{configured: true}
	s := scheduler.New(eng, scheduler.WithInterval(5*time.Millisecond))
	require.NoError(t, s.Start())
	s.Stop()
	assert.Equal(t, "manually stopped", eng.StopReason())
}

func TestStop_WithoutStartIsANoOp(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{configured: true}
	s := scheduler.New(eng)
	s.Stop()
	assert.False(t, s.Running())
}

func TestLoop_SleepsAfterErrorThenContinues(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{configured: true, errorOnce: true}
	s := scheduler.New(eng, scheduler.WithInterval(2*time.Millisecond))
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&eng.iterations) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
}
