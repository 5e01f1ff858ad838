// Package errors defines the error taxonomy for the Looper runtime (see
// SPEC_FULL.md §7/§10). Each taxonomy entry is a base sentinel that call
// sites wrap with context via fmt.Errorf's %w verb, so callers can test
// the taxonomy with errors.Is while still getting a descriptive message.
package errors

import "errors"

var (
	// ErrValidation marks a request that failed structural validation
	// (policy conflict, empty MCP/workflow fields, empty API key, bad
	// regex). Validation errors never mutate state.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRegex marks a Grep action whose pattern does not compile.
	ErrInvalidRegex = errors.New("invalid regex")

	// ErrUnknownSensor is returned when an operation names a sensor that
	// has not been registered.
	ErrUnknownSensor = errors.New("unknown sensor")

	// ErrUnknownActuator is returned when a recommended action names an
	// actuator that has not been registered.
	ErrUnknownActuator = errors.New("unknown actuator")

	// ErrNoExecutor is returned when an Internal actuator has no bound
	// executor for its kind.
	ErrNoExecutor = errors.New("no executor bound for action kind")

	// ErrNotRunning marks an attempt to run an iteration while the Engine's
	// AgentState is not Running.
	ErrNotRunning = errors.New("agent is not running")

	// ErrNotConfigured marks an attempt to run an iteration (or start the
	// scheduler) before both reasoners have been configured.
	ErrNotConfigured = errors.New("agent is not configured")

	// ErrUnknownApproval is returned when approve/deny names an id that is
	// not present in the approval registry.
	ErrUnknownApproval = errors.New("unknown approval")

	// ErrUnknownIteration is returned when a journal lookup names an id
	// that was never appended.
	ErrUnknownIteration = errors.New("unknown iteration")
)
