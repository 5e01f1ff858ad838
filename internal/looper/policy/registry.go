// Package policy implements the Actuator registry and the deterministic
// dispatch order of SPEC_FULL.md §4.2. The dispatch precedence is a fresh
// implementation grounded on the reference tree's features/policy/basic
// engine (allow/deny-set idiom, block-before-allow precedence; keyword
// membership here is a linear scan in denyContains) but re-ordered to
// match the spec's exact seven-step sequence instead of the teacher's
// two-step one.
package policy

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	looperrors "github.com/loopercore/looper/internal/looper/errors"
	"github.com/loopercore/looper/internal/looper/model"
)

// Executor runs an Action for an Internal actuator and returns its output
// text, or an error that propagates unmodified out of dispatch (§4.3,
// §7 — ExecutorFailure is never swallowed).
type Executor interface {
	Execute(action model.Action) (string, error)
}

// ExecutorTable maps InternalKind to the bound Executor (§4.3).
type ExecutorTable map[model.InternalKind]Executor

// Approvals is the narrow slice of the Approval registry (§4.7) that
// dispatch needs: suspend creates a pending approval and returns its id.
type Approvals interface {
	Suspend(recommendation model.RecommendedAction) int64
}

// Registry holds actuators by name and evaluates the §4.2 dispatch order.
// It is not internally synchronized: the Engine serialises all access
// behind its own engine-wide mutex (§5).
type Registry struct {
	actuators map[string]*model.Actuator
	order     []string

	mu        sync.Mutex // not taken by any method; counters/limiters are unsynchronized like the rest of Registry
	counters  map[string]int
	limiters  map[string]*rate.Limiter
}

// New returns an empty actuator registry.
func New() *Registry {
	return &Registry{
		actuators: make(map[string]*model.Actuator),
		counters:  make(map[string]int),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// AddOrReplace registers or overwrites an actuator. The actuator's policy
// has already been validated by its constructor (model.NewXActuator); this
// only re-checks defensively so a directly-constructed zero-policy value
// cannot slip invariant checks.
func (r *Registry) AddOrReplace(actuator model.Actuator) error {
	if err := actuator.Policy.Validate(); err != nil {
		return err
	}
	if _, exists := r.actuators[actuator.Name]; !exists {
		r.order = append(r.order, actuator.Name)
	}
	clone := actuator
	r.actuators[actuator.Name] = &clone
	delete(r.counters, actuator.Name)
	delete(r.limiters, actuator.Name)
	return nil
}

// Get returns a copy of the named actuator.
func (r *Registry) Get(name string) (model.Actuator, bool) {
	a, ok := r.actuators[name]
	if !ok {
		return model.Actuator{}, false
	}
	return *a, true
}

// Actuators returns a stable, name-sorted snapshot.
func (r *Registry) Actuators() []model.Actuator {
	names := make([]string, 0, len(r.actuators))
	for name := range r.actuators {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]model.Actuator, 0, len(names))
	for _, name := range names {
		out = append(out, *r.actuators[name])
	}
	return out
}

// Dispatch evaluates the recommendation against its named actuator's
// policy and, if permitted, executes it. bypassHITL is true only when
// called from Approval.Approve re-dispatching a previously suspended
// recommendation (§4.7 — approve must not bypass denylist/allowlist/
// rate-limit/kind checks, only the HITL gate itself).
//
// Order (§4.2): require_hitl check -> denylist -> allowlist -> rate
// limit -> kind compatibility -> execute -> increment counter.
func (r *Registry) Dispatch(
	rec model.RecommendedAction, executors ExecutorTable, approvals Approvals, bypassHITL bool,
) (model.ExecutionResult, error) {
	actuator, ok := r.actuators[rec.ActuatorName]
	if !ok {
		return model.ExecutionResult{}, fmt.Errorf("%w: %q", looperrors.ErrUnknownActuator, rec.ActuatorName)
	}

	keyword := rec.Action.Keyword()

	if actuator.Policy.RequireHITL && !bypassHITL {
		id := approvals.Suspend(rec)
		return model.RequiresHITL(id), nil
	}

	if len(actuator.Policy.DenyKeywords) > 0 && denyContains(actuator.Policy.DenyKeywords, keyword) {
		return model.Denied(fmt.Sprintf("keyword %q is denylisted", keyword)), nil
	}

	if len(actuator.Policy.AllowKeywords) > 0 && !denyContains(actuator.Policy.AllowKeywords, keyword) {
		return model.Denied(fmt.Sprintf("keyword %q is not in the allowlist", keyword)), nil
	}

	if actuator.Policy.RateLimit != nil {
		if denied := r.checkRateLimit(actuator.Name, *actuator.Policy.RateLimit); denied {
			return model.Denied("rate limit exceeded"), nil
		}
	}

	if actuator.Kind == model.ActuatorInternal && !actuator.CompatibleWith(rec.Action) {
		return model.Denied(fmt.Sprintf("action kind %q is incompatible with actuator %q", rec.Action.InternalKindOf(), actuator.Name)), nil
	}

	output, err := r.invoke(*actuator, rec.Action, executors)
	if err != nil {
		return model.ExecutionResult{}, err
	}

	r.incrementCounter(actuator.Name)
	return model.Executed(output), nil
}

func (r *Registry) invoke(actuator model.Actuator, action model.Action, executors ExecutorTable) (string, error) {
	switch actuator.Kind {
	case model.ActuatorInternal:
		exec, ok := executors[actuator.InternalKind]
		if !ok {
			return "", fmt.Errorf("%w: kind %q on actuator %q", looperrors.ErrNoExecutor, actuator.InternalKind, actuator.Name)
		}
		return exec.Execute(action)
	case model.ActuatorMcp:
		return fmt.Sprintf("mcp request accepted: server=%q tool=%q action=%s", actuator.Mcp.ServerName, actuator.Mcp.ToolName, action), nil
	case model.ActuatorWorkflow:
		return fmt.Sprintf("workflow request accepted: workflow=%q action=%s", actuator.Workflow.WorkflowName, action), nil
	default:
		return "", fmt.Errorf("%w: unknown actuator kind %q", looperrors.ErrValidation, actuator.Kind)
	}
}

// checkRateLimit reports whether the named actuator's rate limit has
// been exhausted. The lifetime counter is always consulted (§9 Open
// Question); when Period is non-empty it additionally consults a
// windowed token bucket sized to the period. The tests exercise the
// lifetime counter; the windowed check has no test of its own.
func (r *Registry) checkRateLimit(name string, limit model.RateLimit) (denied bool) {
	if r.counters[name] >= limit.Max {
		return true
	}
	if limit.Period == "" {
		return false
	}
	limiter, ok := r.limiters[name]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(limit.Max)/periodSeconds(limit.Period)), limit.Max)
		r.limiters[name] = limiter
	}
	return !limiter.Allow()
}

func (r *Registry) incrementCounter(name string) {
	r.counters[name]++
}

// ExecutionsFor exposes the lifetime per-actuator dispatch counter, used
// by tests asserting rate-limit invariants.
func (r *Registry) ExecutionsFor(name string) int { return r.counters[name] }

func periodSeconds(p model.RateLimitPeriod) float64 {
	switch p {
	case model.RateLimitMinute:
		return 60
	case model.RateLimitHour:
		return 3600
	case model.RateLimitDay:
		return 86400
	case model.RateLimitWeek:
		return 7 * 86400
	case model.RateLimitMonth:
		return 30 * 86400
	default:
		return 60
	}
}

func denyContains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
