// Package observability implements the Engine's counters and derived
// metrics (SPEC_FULL.md §4.9).
package observability

import (
	"sync"
	"time"

	"github.com/loopercore/looper/internal/looper/model"
)

// Phase names the three counted dispatch phases.
type Phase string

const (
	PhaseSurpriseDetection Phase = "surprise_detection"
	PhaseReasoning         Phase = "reasoning"
	PhasePerformActions    Phase = "perform_actions"
)

// Snapshot is the read-only view returned by GET /metrics (§6).
type Snapshot struct {
	PhaseExecutionCounts        map[Phase]int64
	TotalIterations             int64
	LocalTokenUsage             model.TokenUsage
	FrontierTokenUsage          model.TokenUsage
	FalsePositiveSurprises      int64
	FailedToolExecutions        int64
	LoopsPerMinute              float64
	FailedToolExecutionPercent  float64
	FalsePositiveSurprisePercent float64
	ProcessStartUnix            int64
	Visualisation               model.LoopVisualisationState
}

// Observability accumulates counters across the process lifetime. All
// mutating methods are called while the Engine's lock is held (§5); the
// internal mutex exists only so Observability remains safe to reuse
// standalone in tests.
type Observability struct {
	mu sync.Mutex

	phaseCounts            map[Phase]int64
	totalIterations        int64
	localUsage             model.TokenUsage
	frontierUsage          model.TokenUsage
	falsePositiveSurprises int64
	failedToolExecutions   int64
	processStart           time.Time
	visualisation          model.LoopVisualisationState
}

// New returns a fresh Observability with its process-start clock set to
// now.
func New() *Observability {
	return &Observability{
		phaseCounts:  make(map[Phase]int64),
		processStart: time.Now(),
	}
}

// RecordPhase increments the named phase counter.
func (o *Observability) RecordPhase(p Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phaseCounts[p]++
}

// RecordIterationCompleted increments total iterations.
func (o *Observability) RecordIterationCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.totalIterations++
}

// RecordFalsePositiveSurprise increments the false-positive counter
// (surprise found but empty plan, §4.6).
func (o *Observability) RecordFalsePositiveSurprise() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.falsePositiveSurprises++
}

// RecordFailedToolExecution increments the failed-tool-execution counter
// (one Denied result, §4.6).
func (o *Observability) RecordFailedToolExecution() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failedToolExecutions++
}

// AddTokenUsage accumulates local and frontier token usage irrespective
// of whether the iteration terminated early (§4.6).
func (o *Observability) AddTokenUsage(local, frontier model.TokenUsage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.localUsage.Add(local)
	o.frontierUsage.Add(frontier)
}

// SetVisualisation overwrites the current visualisation snapshot.
func (o *Observability) SetVisualisation(v model.LoopVisualisationState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visualisation = v
}

// Snapshot renders the current observable state with derived metrics.
func (o *Observability) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	counts := make(map[Phase]int64, len(o.phaseCounts))
	for k, v := range o.phaseCounts {
		counts[k] = v
	}

	elapsed := time.Since(o.processStart).Minutes()
	var loopsPerMinute float64
	if elapsed > 0.000001 {
		loopsPerMinute = float64(o.totalIterations) / elapsed
	}

	var failedPct, fpPct float64
	if o.totalIterations > 0 {
		failedPct = float64(o.failedToolExecutions) / float64(o.totalIterations) * 100
		fpPct = float64(o.falsePositiveSurprises) / float64(o.totalIterations) * 100
	}

	return Snapshot{
		PhaseExecutionCounts:         counts,
		TotalIterations:              o.totalIterations,
		LocalTokenUsage:              o.localUsage,
		FrontierTokenUsage:           o.frontierUsage,
		FalsePositiveSurprises:       o.falsePositiveSurprises,
		FailedToolExecutions:         o.failedToolExecutions,
		LoopsPerMinute:               loopsPerMinute,
		FailedToolExecutionPercent:   failedPct,
		FalsePositiveSurprisePercent: fpPct,
		ProcessStartUnix:             o.processStart.Unix(),
		Visualisation:                o.visualisation,
	}
}
