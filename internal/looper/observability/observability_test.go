package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loopercore/looper/internal/looper/model"
)

func TestSnapshot_ZeroValueAvoidsDivisionByZero(t *testing.T) {
	t.Parallel()
	obs := New()
	snap := obs.Snapshot()
	assert.Zero(t, snap.TotalIterations)
	assert.Zero(t, snap.FailedToolExecutionPercent)
	assert.Zero(t, snap.FalsePositiveSurprisePercent)
	assert.Zero(t, snap.LoopsPerMinute)
}

func TestSnapshot_DerivedPercentagesReflectCounters(t *testing.T) {
	t.Parallel()
	obs := New()
	obs.RecordIterationCompleted()
	obs.RecordIterationCompleted()
	obs.RecordIterationCompleted()
	obs.RecordIterationCompleted()
	obs.RecordFailedToolExecution()
	obs.RecordFalsePositiveSurprise()

	snap := obs.Snapshot()
	assert.EqualValues(t, 4, snap.TotalIterations)
	assert.InDelta(t, 25.0, snap.FailedToolExecutionPercent, 0.001)
	assert.InDelta(t, 25.0, snap.FalsePositiveSurprisePercent, 0.001)
}

func TestRecordPhase_CountsPerPhase(t *testing.T) {
	t.Parallel()
	obs := New()
	obs.RecordPhase(PhaseSurpriseDetection)
	obs.RecordPhase(PhaseSurpriseDetection)
	obs.RecordPhase(PhaseReasoning)

	snap := obs.Snapshot()
	assert.EqualValues(t, 2, snap.PhaseExecutionCounts[PhaseSurpriseDetection])
	assert.EqualValues(t, 1, snap.PhaseExecutionCounts[PhaseReasoning])
	assert.Zero(t, snap.PhaseExecutionCounts[PhasePerformActions])
}

// Token usage is accumulated regardless of whether the iteration that
// produced it ended early (§4.6, §8).
func TestAddTokenUsage_AccumulatesAcrossCalls(t *testing.T) {
	t.Parallel()
	obs := New()
	obs.AddTokenUsage(model.TokenUsage{InputTokens: 10, OutputTokens: 2}, model.TokenUsage{})
	obs.AddTokenUsage(model.TokenUsage{InputTokens: 5, OutputTokens: 1}, model.TokenUsage{InputTokens: 20, OutputTokens: 8})

	snap := obs.Snapshot()
	assert.Equal(t, model.TokenUsage{InputTokens: 15, OutputTokens: 3}, snap.LocalTokenUsage)
	assert.Equal(t, model.TokenUsage{InputTokens: 20, OutputTokens: 8}, snap.FrontierTokenUsage)
}

func TestSetVisualisation_ReflectedInSnapshot(t *testing.T) {
	t.Parallel()
	obs := New()
	obs.SetVisualisation(model.LoopVisualisationState{LocalLoopCount: 3, FrontierLoopCount: 1})
	snap := obs.Snapshot()
	assert.EqualValues(t, 3, snap.Visualisation.LocalLoopCount)
	assert.EqualValues(t, 1, snap.Visualisation.FrontierLoopCount)
}
