// Package engine implements the Iteration Engine (SPEC_FULL.md §4.6), the
// single orchestrator that owns the sensor map, actuator map, executor
// map, approval registry, observability, and visualisation state (§3,
// "Ownership"). Reasoners are held as replaceable strategy values, not
// owned state.
//
// The phase state machine and its early-termination semantics are
// grounded on the original Rust source's runtime.rs run_iteration
// function; the single engine-wide mutex serialising mutating
// operations (including long-running reasoner/executor calls held
// across the lock) is grounded on SPEC_FULL.md §5 and on the reference
// tree's engine/inmem package, which holds its own lock across
// workflow-step execution for the same "in-flight work is never
// aborted mid-iteration" reason.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loopercore/looper/internal/looper/approval"
	looperrors "github.com/loopercore/looper/internal/looper/errors"
	"github.com/loopercore/looper/internal/looper/journal"
	"github.com/loopercore/looper/internal/looper/model"
	"github.com/loopercore/looper/internal/looper/observability"
	"github.com/loopercore/looper/internal/looper/policy"
	"github.com/loopercore/looper/internal/looper/reasoner"
	"github.com/loopercore/looper/internal/looper/sensor"
	"github.com/loopercore/looper/runtime/agent/telemetry"
)

// phaseEventCap bounds the in-memory phase transition log (§4.6).
const phaseEventCap = 512

// forceSurpriseSensitivity is the sensor sensitivity threshold at or above
// which every unread percept from that sensor is treated as surprising
// regardless of what the LocalReasoner decided (§4.6).
const forceSurpriseSensitivity = 90

// frontierFailureMarkers are matched case-insensitively against the
// formatted frontier reasoner error chain; a match transitions the
// Engine's AgentState to Stopped (§4.6, §7).
var frontierFailureMarkers = []string{"rate", "token", "timeout", "network", "transport", "429"}

// Approvals is the subset of the approval registry the Engine needs.
type Approvals interface {
	policy.Approvals
	Pending() []model.PendingApproval
	Approve(id int64, actuators approval.Dispatcher, executors policy.ExecutorTable, approvals policy.Approvals) (model.ExecutionResult, error)
	Deny(id int64) bool
}

// Engine is the Iteration Engine. All mutating operations acquire mu for
// their entire duration, including calls into the configured reasoners
// and executors (§5) — an in-flight iteration is never aborted by a
// concurrent Stop.
type Engine struct {
	mu sync.Mutex

	sensors   *sensor.Store
	actuators *policy.Registry
	executors policy.ExecutorTable
	approvals Approvals
	journal   journal.Store
	obs       *observability.Observability
	logger    telemetry.Logger

	local    reasoner.LocalReasoner
	frontier reasoner.FrontierReasoner

	state         model.AgentState
	visualisation model.LoopVisualisationState
	phaseEvents   []model.PhaseTransitionEvent
	phaseSeq      int64
	stopReason    string
}

// Option configures a new Engine.
type Option func(*Engine)

// WithJournal attaches a Journal store. Without this option the Engine
// runs with journaling disabled (append/lookup calls are skipped, §4.4).
func WithJournal(store journal.Store) Option { return func(e *Engine) { e.journal = store } }

// WithLogger attaches a structured logger. Defaults to a no-op.
func WithLogger(logger telemetry.Logger) Option { return func(e *Engine) { e.logger = logger } }

// WithLocalReasoner preconfigures the local reasoner at construction time.
func WithLocalReasoner(r reasoner.LocalReasoner) Option { return func(e *Engine) { e.local = r } }

// WithFrontierReasoner preconfigures the frontier reasoner at construction
// time.
func WithFrontierReasoner(r reasoner.FrontierReasoner) Option {
	return func(e *Engine) { e.frontier = r }
}

// New constructs an Engine in AgentSetup state with empty sensor/actuator
// maps (chat sensor pre-seeded). Reasoners are attached only by
// WithLocalReasoner/WithFrontierReasoner or a later Configure call.
func New(executors policy.ExecutorTable, approvals Approvals, opts ...Option) *Engine {
	e := &Engine{
		sensors:   sensor.New(),
		actuators: policy.New(),
		executors: executors,
		approvals: approvals,
		obs:       observability.New(),
		state:     model.AgentSetup,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State reports the current AgentState.
func (e *Engine) State() model.AgentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// StopReason reports why the Engine transitioned to Stopped, if it has
// (empty string otherwise).
func (e *Engine) StopReason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopReason
}

// SetState transitions the Engine's lifecycle state directly (used by the
// scheduler's Start, §4.8).
func (e *Engine) SetState(s model.AgentState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

// Stop transitions the Engine to Stopped and records why, atomically
// (§4.8 — e.g. the scheduler's Stop records reason "manually stopped").
func (e *Engine) Stop(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = model.AgentStopped
	e.stopReason = reason
}

// Configure attaches both reasoners at once, transitioning out of
// AgentSetup readiness checks in RunIteration/scheduler.Start (§4.6, §4.8).
func (e *Engine) Configure(local reasoner.LocalReasoner, frontier reasoner.FrontierReasoner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.local = local
	e.frontier = frontier
}

// Configured reports whether both reasoners have been attached.
func (e *Engine) Configured() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.local != nil && e.frontier != nil
}

// AddSensor registers or replaces a sensor by name. It is safe to call
// at any time, before or after the scheduler starts, since every call is
// serialised by the Engine's lock.
func (e *Engine) AddSensor(s model.Sensor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sensors.AddOrReplace(s)
}

// Enqueue appends a percept to the named sensor's queue.
func (e *Engine) Enqueue(sensorName, content, chatID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sensors.Enqueue(sensorName, content, chatID)
}

// Sensors returns a snapshot of registered sensors.
func (e *Engine) Sensors() []model.Sensor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sensors.Sensors()
}

// AddActuator registers or overwrites an actuator.
func (e *Engine) AddActuator(a model.Actuator) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actuators.AddOrReplace(a)
}

// Actuators returns a snapshot of registered actuators.
func (e *Engine) Actuators() []model.Actuator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actuators.Actuators()
}

// PendingApprovals returns the current HITL queue.
func (e *Engine) PendingApprovals() []model.PendingApproval {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.approvals.Pending()
}

// Approve resumes a suspended recommendation, bypassing only the HITL
// gate (§4.7).
func (e *Engine) Approve(id int64) (model.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.approvals.Approve(id, e.actuators, e.executors, e.approvals)
}

// Deny discards a suspended recommendation without executing it (§4.7).
func (e *Engine) Deny(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.approvals.Deny(id)
}

// Observability returns a snapshot of the Engine's counters (§4.9).
func (e *Engine) Observability() observability.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.obs.Snapshot()
}

// Visualisation returns the current loop visualisation state (§3).
func (e *Engine) Visualisation() model.LoopVisualisationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visualisation.Clone()
}

// PhaseEvents returns a copy of the phase transition log (§4.6), oldest
// first, capped at the last 512 entries.
func (e *Engine) PhaseEvents() []model.PhaseTransitionEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.PhaseTransitionEvent, len(e.phaseEvents))
	copy(out, e.phaseEvents)
	return out
}

// Journal exposes the attached journal store, if any, for the HTTP
// surface's read endpoints (§6). Returns (nil, false) when journaling is
// disabled.
func (e *Engine) Journal() (journal.Store, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.journal == nil {
		return nil, false
	}
	return e.journal, true
}

// RunIteration executes one pass of the state machine described in §4.6:
//
//	GatherPercepts -> CheckSurprises -> [Idle | DeeperPerceptInvestigation
//	  -> PlanActions -> [Idle | ExecuteActions -> Idle]]
//
// It holds the Engine's lock for its entire duration (§5): reasoner and
// executor calls are made while the lock is held, so no concurrent
// mutation can interleave with an in-flight iteration.
func (e *Engine) RunIteration(ctx context.Context) (model.IterationReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != model.AgentRunning {
		return model.IterationReport{}, looperrors.ErrNotRunning
	}
	if e.local == nil || e.frontier == nil {
		return model.IterationReport{}, looperrors.ErrNotConfigured
	}

	report := model.IterationReport{CorrelationID: uuid.NewString()}

	// --- GatherPercepts ---
	e.transitionPhase(model.PhaseGatherNewPercepts, false, false)
	percepts := e.sensors.SenseUnread()
	report.SensedPercepts = percepts

	// --- CheckSurprises ---
	e.transitionPhase(model.PhaseCheckForSurprises, false, false)
	e.obs.RecordPhase(observability.PhaseSurpriseDetection)
	e.visualisation.LocalLoopCount++

	previousWindows, _ := e.latestPerceptWindows(10)
	localResult, err := e.local.Detect(ctx, percepts, previousWindows)
	if err != nil {
		return model.IterationReport{}, fmt.Errorf("local reasoner: %w", err)
	}
	e.obs.AddTokenUsage(localResult.Usage, model.TokenUsage{})

	surprising := e.composeSurpriseSet(percepts, localResult.SurprisingIndices)
	report.SurprisingPercepts = surprising

	if len(surprising) == 0 {
		report.EndedAfterSurpriseDetection = true
		e.transitionPhase(model.PhaseIdle, false, false)
		e.finishIteration(&report)
		return report, nil
	}

	// --- DeeperPerceptInvestigation (display-only, §9 Open Question) ---
	e.transitionPhase(model.PhaseDeeperPerceptInvestigation, true, false)

	// --- PlanActions ---
	e.transitionPhase(model.PhasePlanActions, true, false)
	e.obs.RecordPhase(observability.PhaseReasoning)
	e.visualisation.FrontierLoopCount++

	frontierResult, err := e.frontier.Plan(ctx, surprising)
	if err != nil {
		if isFrontierCommunicationFailure(err) {
			e.stopReason = fmt.Sprintf("frontier communication failure: %v", err)
			e.state = model.AgentStopped
			e.transitionPhase(model.PhaseIdle, true, false)
		}
		return model.IterationReport{}, fmt.Errorf("frontier reasoner: %w", err)
	}
	e.obs.AddTokenUsage(model.TokenUsage{}, frontierResult.Usage)
	report.PlannedActions = frontierResult.Actions

	if len(frontierResult.Actions) == 0 {
		report.EndedAfterReasoning = true
		e.obs.RecordFalsePositiveSurprise()
		e.transitionPhase(model.PhaseIdle, true, false)
		e.finishIteration(&report)
		return report, nil
	}

	// --- ExecuteActions ---
	e.transitionPhase(model.PhaseExecuteActions, true, true)
	e.obs.RecordPhase(observability.PhasePerformActions)

	results := make([]model.ExecutionResult, 0, len(frontierResult.Actions))
	for _, rec := range frontierResult.Actions {
		result, err := e.actuators.Dispatch(rec, e.executors, e.approvals, false)
		if err != nil {
			return model.IterationReport{}, fmt.Errorf("dispatch %s: %w", rec.ActuatorName, err)
		}
		if result.Outcome == model.OutcomeDenied {
			e.obs.RecordFailedToolExecution()
		}
		results = append(results, result)
	}
	report.ActionResults = results

	e.transitionPhase(model.PhaseIdle, true, false)
	e.finishIteration(&report)
	return report, nil
}

// finishIteration journals the completed iteration (if a journal is
// attached) and records the process-wide iteration counter. Token usage
// has already been recorded regardless of early termination (§4.6).
func (e *Engine) finishIteration(report *model.IterationReport) {
	e.obs.RecordIterationCompleted()
	e.obs.SetVisualisation(e.visualisation.Clone())

	if e.journal == nil {
		return
	}
	id, err := e.journal.Append(model.PersistedIteration{
		CreatedAtUnix:      time.Now().Unix(),
		SensedPercepts:     report.SensedPercepts,
		SurprisingPercepts: report.SurprisingPercepts,
		PlannedActions:     report.PlannedActions,
		ActionResults:      report.ActionResults,
	})
	if err != nil {
		if e.logger != nil {
			e.logger.Error(context.Background(), "journal append failed", "error", err)
		}
		return
	}
	report.IterationID = id
}

// composeSurpriseSet maps the reasoner's surprising indices back onto the
// percept slice (silently dropping any out-of-range index, §4.6), then
// force-adds every percept from a sensor whose sensitivity score is >= 90
// (§4.6), deduplicating while preserving first-seen order.
func (e *Engine) composeSurpriseSet(percepts []model.Percept, indices []int) []model.Percept {
	seen := make(map[int]struct{}, len(indices))
	var out []model.Percept

	for _, idx := range indices {
		if idx < 0 || idx >= len(percepts) {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, percepts[idx])
	}

	for i, p := range percepts {
		if _, ok := seen[i]; ok {
			continue
		}
		s, ok := e.sensors.Get(p.SensorName)
		if !ok || s.SensitivityScore < forceSurpriseSensitivity {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, p)
	}

	if out == nil {
		out = []model.Percept{}
	}
	return out
}

// latestPerceptWindows reads the last n journaled windows, tolerating an
// absent journal (returns nil, nil).
func (e *Engine) latestPerceptWindows(n int) ([][]string, error) {
	if e.journal == nil {
		return nil, nil
	}
	return e.journal.LatestPerceptWindows(n)
}

// transitionPhase updates the visualisation snapshot and appends a phase
// event, evicting the oldest entry once the log exceeds phaseEventCap.
func (e *Engine) transitionPhase(phase model.LoopPhase, surpriseFound, actionRequired bool) {
	e.visualisation.CurrentPhase = phase
	e.visualisation.SurpriseFound = surpriseFound
	e.visualisation.ActionRequired = actionRequired

	e.phaseSeq++
	event := model.PhaseTransitionEvent{
		Sequence:    e.phaseSeq,
		Phase:       phase,
		Snapshot:    e.visualisation.Clone(),
		EmittedAtMs: time.Now().UnixMilli(),
	}
	e.phaseEvents = append(e.phaseEvents, event)
	if len(e.phaseEvents) > phaseEventCap {
		e.phaseEvents = e.phaseEvents[len(e.phaseEvents)-phaseEventCap:]
	}
}

// isFrontierCommunicationFailure reports whether err's formatted chain
// contains one of the fixed substrings that signal an unrecoverable
// provider-communication problem (§4.6, §7), matched case-insensitively.
func isFrontierCommunicationFailure(err error) bool {
	lower := strings.ToLower(err.Error())
	for _, marker := range frontierFailureMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
