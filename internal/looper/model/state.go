package model

// AgentState is the Engine's coarse lifecycle state (§3).
type AgentState string

const (
	AgentSetup   AgentState = "setup"
	AgentRunning AgentState = "running"
	AgentStopped AgentState = "stopped"
)

// LoopPhase names the coarse visualisation phases of one iteration (§3,
// §4.6).
type LoopPhase string

const (
	PhaseGatherNewPercepts          LoopPhase = "gather_new_percepts"
	PhaseCheckForSurprises          LoopPhase = "check_for_surprises"
	PhaseDeeperPerceptInvestigation LoopPhase = "deeper_percept_investigation"
	PhasePlanActions                LoopPhase = "plan_actions"
	PhaseExecuteActions             LoopPhase = "execute_actions"
	PhaseIdle                       LoopPhase = "idle"
)

// LoopVisualisationState tracks the current coarse phase and counters
// exposed to external consumers (§3).
type LoopVisualisationState struct {
	CurrentPhase      LoopPhase
	SurpriseFound     bool
	ActionRequired    bool
	LocalLoopCount    int64
	FrontierLoopCount int64
}

// Clone returns a value copy safe to hand to callers outside the Engine's
// lock.
func (v LoopVisualisationState) Clone() LoopVisualisationState { return v }

// PhaseTransitionEvent is one entry of the phase event log (§4.6).
type PhaseTransitionEvent struct {
	Sequence     int64
	Phase        LoopPhase
	Snapshot     LoopVisualisationState
	EmittedAtMs  int64
}
