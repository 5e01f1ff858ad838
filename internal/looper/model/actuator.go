package model

import (
	"fmt"

	looperrors "github.com/loopercore/looper/internal/looper/errors"
)

// ActuatorKind discriminates the three actuator variants (§3).
type ActuatorKind string

const (
	ActuatorInternal  ActuatorKind = "internal"
	ActuatorMcp       ActuatorKind = "mcp"
	ActuatorWorkflow  ActuatorKind = "workflow"
)

// McpDetails describes a named MCP tool endpoint.
type McpDetails struct {
	ServerName string
	ToolName   string
}

// WorkflowDetails describes a named workflow endpoint.
type WorkflowDetails struct {
	WorkflowName string
}

// Actuator is the named, policy-bearing endpoint for Actions (§3).
type Actuator struct {
	Name            string
	Kind            ActuatorKind
	InternalKind    InternalKind // meaningful only when Kind == ActuatorInternal
	Mcp             McpDetails   // meaningful only when Kind == ActuatorMcp
	Workflow        WorkflowDetails
	Policy          SafetyPolicy
	PerceptSingular string
	PerceptPlural   string
}

// NewInternalActuator builds an Internal actuator bound to kind, validating
// the policy first.
func NewInternalActuator(name string, kind InternalKind, policy SafetyPolicy) (Actuator, error) {
	if err := policy.Validate(); err != nil {
		return Actuator{}, err
	}
	singular, plural := perceptNames(name)
	return Actuator{
		Name: name, Kind: ActuatorInternal, InternalKind: kind, Policy: policy,
		PerceptSingular: singular, PerceptPlural: plural,
	}, nil
}

// NewMcpActuator builds an Mcp actuator, validating the policy and the
// non-empty descriptor fields first.
func NewMcpActuator(name string, details McpDetails, policy SafetyPolicy) (Actuator, error) {
	if err := policy.Validate(); err != nil {
		return Actuator{}, err
	}
	if details.ServerName == "" || details.ToolName == "" {
		return Actuator{}, fmt.Errorf("%w: mcp server_name and tool_name are required", looperrors.ErrValidation)
	}
	singular, plural := perceptNames(name)
	return Actuator{
		Name: name, Kind: ActuatorMcp, Mcp: details, Policy: policy,
		PerceptSingular: singular, PerceptPlural: plural,
	}, nil
}

// NewWorkflowActuator builds a Workflow actuator, validating the policy and
// the non-empty descriptor field first.
func NewWorkflowActuator(name string, details WorkflowDetails, policy SafetyPolicy) (Actuator, error) {
	if err := policy.Validate(); err != nil {
		return Actuator{}, err
	}
	if details.WorkflowName == "" {
		return Actuator{}, fmt.Errorf("%w: workflow_name is required", looperrors.ErrValidation)
	}
	singular, plural := perceptNames(name)
	return Actuator{
		Name: name, Kind: ActuatorWorkflow, Workflow: details, Policy: policy,
		PerceptSingular: singular, PerceptPlural: plural,
	}, nil
}

// CompatibleWith reports whether the actuator can execute the given
// action: an Internal actuator is only compatible with actions whose
// internal kind matches; Mcp/Workflow actuators accept any action (they
// never reach the executor registry; dispatch instead produces a
// descriptive string, §4.3).
func (a Actuator) CompatibleWith(action Action) bool {
	if a.Kind != ActuatorInternal {
		return true
	}
	return a.InternalKind == action.InternalKindOf()
}
