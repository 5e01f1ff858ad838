package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInternalActuator_DerivesPerceptNamesAndValidatesPolicy(t *testing.T) {
	t.Parallel()
	act, err := NewInternalActuator("Sensor", InternalGrep, SafetyPolicy{})
	require.NoError(t, err)
	assert.Equal(t, ActuatorInternal, act.Kind)
	assert.Equal(t, "sensor", act.PerceptSingular)
	assert.Equal(t, "sensors", act.PerceptPlural)

	_, err = NewInternalActuator("bad", InternalChat, SafetyPolicy{
		AllowKeywords: []string{"a"}, DenyKeywords: []string{"b"},
	})
	assert.Error(t, err)
}

func TestNewMcpActuator_RequiresServerAndToolName(t *testing.T) {
	t.Parallel()
	_, err := NewMcpActuator("x", McpDetails{}, SafetyPolicy{})
	assert.ErrorContains(t, err, "server_name and tool_name")

	act, err := NewMcpActuator("x", McpDetails{ServerName: "srv", ToolName: "tool"}, SafetyPolicy{})
	require.NoError(t, err)
	assert.Equal(t, ActuatorMcp, act.Kind)
	assert.Equal(t, "srv", act.Mcp.ServerName)
}

func TestNewWorkflowActuator_RequiresWorkflowName(t *testing.T) {
	t.Parallel()
	_, err := NewWorkflowActuator("x", WorkflowDetails{}, SafetyPolicy{})
	assert.ErrorContains(t, err, "workflow_name")

	act, err := NewWorkflowActuator("x", WorkflowDetails{WorkflowName: "wf"}, SafetyPolicy{})
	require.NoError(t, err)
	assert.Equal(t, ActuatorWorkflow, act.Kind)
	assert.Equal(t, "wf", act.Workflow.WorkflowName)
}

func TestActuator_CompatibleWith(t *testing.T) {
	t.Parallel()
	internal, err := NewInternalActuator("shell", InternalShell, SafetyPolicy{})
	require.NoError(t, err)
	assert.True(t, internal.CompatibleWith(NewShell("ls")))
	assert.False(t, internal.CompatibleWith(NewChatResponse("hi")))

	mcp, err := NewMcpActuator("mcp", McpDetails{ServerName: "s", ToolName: "t"}, SafetyPolicy{})
	require.NoError(t, err)
	assert.True(t, mcp.CompatibleWith(NewChatResponse("anything")))

	workflow, err := NewWorkflowActuator("wf", WorkflowDetails{WorkflowName: "w"}, SafetyPolicy{})
	require.NoError(t, err)
	assert.True(t, workflow.CompatibleWith(NewShell("anything")))
}

func TestAction_KeywordAndInternalKindOf(t *testing.T) {
	t.Parallel()
	cases := []struct {
		action   Action
		keyword  string
		internal InternalKind
	}{
		{NewChatResponse("hi"), "chat", InternalChat},
		{NewGrep("p", "."), "grep", InternalGrep},
		{NewGlob("p", "."), "glob", InternalGlob},
		{NewShell("ls"), "shell", InternalShell},
		{NewWebSearch("q"), "web_search", InternalWebSearch},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.keyword, tc.action.Keyword())
		assert.Equal(t, tc.internal, tc.action.InternalKindOf())
	}
	assert.Equal(t, InternalKind(""), Action{Kind: ActionKind("bogus")}.InternalKindOf())
}

func TestAction_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `chat("hi")`, NewChatResponse("hi").String())
	assert.Equal(t, `grep(pattern="p", path=".")`, NewGrep("p", ".").String())
	assert.Equal(t, `glob(pattern="p", path=".")`, NewGlob("p", ".").String())
	assert.Equal(t, `shell("ls")`, NewShell("ls").String())
	assert.Equal(t, `web_search("q")`, NewWebSearch("q").String())
	assert.Equal(t, "action(unknown)", Action{Kind: ActionKind("bogus")}.String())
}

func TestSafetyPolicy_Validate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, SafetyPolicy{}.Validate())
	assert.NoError(t, SafetyPolicy{AllowKeywords: []string{"a"}}.Validate())
	assert.NoError(t, SafetyPolicy{DenyKeywords: []string{"b"}}.Validate())

	err := SafetyPolicy{AllowKeywords: []string{"a"}, DenyKeywords: []string{"b"}}.Validate()
	assert.ErrorContains(t, err, "mutually exclusive")

	err = SafetyPolicy{RateLimit: &RateLimit{Max: 0}}.Validate()
	assert.ErrorContains(t, err, "rate_limit.max")

	assert.NoError(t, SafetyPolicy{RateLimit: &RateLimit{Max: 1}}.Validate())
}

func TestNewSensorWithSensitivity_ClampsToValidRange(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, NewSensorWithSensitivity("s", "d", -10).SensitivityScore)
	assert.Equal(t, 100, NewSensorWithSensitivity("s", "d", 150).SensitivityScore)
	assert.Equal(t, 50, NewSensor("s", "d").SensitivityScore)
}

func TestNewSensorWithSensitivity_DerivesPerceptPluralUnlessAlreadyPlural(t *testing.T) {
	t.Parallel()
	s := NewSensorWithSensitivity("Alert", "d", 10)
	assert.Equal(t, "alert", s.PerceptSingular)
	assert.Equal(t, "alerts", s.PerceptPlural)

	already := NewSensorWithSensitivity("news", "d", 10)
	assert.Equal(t, "news", already.PerceptPlural)
}

func TestExecutionResult_Constructors(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ExecutionResult{Outcome: OutcomeExecuted, Output: "ok"}, Executed("ok"))
	assert.Equal(t, ExecutionResult{Outcome: OutcomeDenied, Reason: "nope"}, Denied("nope"))
	assert.Equal(t, ExecutionResult{Outcome: OutcomeRequiresHITL, ApprovalID: 7}, RequiresHITL(7))
}

func TestLoopVisualisationState_CloneIsValueCopy(t *testing.T) {
	t.Parallel()
	original := LoopVisualisationState{CurrentPhase: PhaseIdle, LocalLoopCount: 3}
	clone := original.Clone()
	clone.LocalLoopCount = 99
	assert.EqualValues(t, 3, original.LocalLoopCount)
}
