package model

// TokenUsage reports reasoner token consumption, if the reasoner provides
// it (rule-based implementations return zero values).
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates usage into a running total.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// PersistedIteration is the structured, journaled record of one completed
// iteration (§3, §4.4). ID is assigned by the journal on append.
type PersistedIteration struct {
	ID               int64
	CreatedAtUnix    int64
	SensedPercepts   []Percept
	SurprisingPercepts []Percept
	PlannedActions   []RecommendedAction
	ActionResults    []ExecutionResult
}

// IterationReport is the per-call return value of RunIteration (§4.6).
type IterationReport struct {
	IterationID                  int64 // 0 when no journal is attached
	SensedPercepts                []Percept
	SurprisingPercepts             []Percept
	PlannedActions                []RecommendedAction
	ActionResults                  []ExecutionResult
	EndedAfterSurpriseDetection   bool
	EndedAfterReasoning            bool
	CorrelationID                  string
}
