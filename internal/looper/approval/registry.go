// Package approval implements the HITL Approval registry (SPEC_FULL.md
// §4.7), grounded on the same clone-on-read, mutex-guarded map idiom used
// throughout the reference tree's in-memory stores.
package approval

import (
	"fmt"
	"sort"
	"sync"

	looperrors "github.com/loopercore/looper/internal/looper/errors"
	"github.com/loopercore/looper/internal/looper/model"
	"github.com/loopercore/looper/internal/looper/policy"
)

// Dispatcher is the narrow policy.Registry surface Approve needs to
// re-dispatch with the HITL gate bypassed.
type Dispatcher interface {
	Dispatch(rec model.RecommendedAction, executors policy.ExecutorTable, approvals policy.Approvals, bypassHITL bool) (model.ExecutionResult, error)
}

// Registry holds pending approvals, keyed by monotonic id (§3, §4.7). It
// is not internally synchronized beyond what's needed for standalone
// test use; the Engine serialises real access behind its own lock (§5).
type Registry struct {
	mu      sync.Mutex
	nextID  int64
	pending map[int64]model.RecommendedAction
}

// New returns an empty approval registry.
func New() *Registry {
	return &Registry{nextID: 1, pending: make(map[int64]model.RecommendedAction)}
}

// Suspend inserts a new pending approval and returns its assigned id.
// Implements policy.Approvals so the policy registry can call it directly
// during dispatch.
func (r *Registry) Suspend(rec model.RecommendedAction) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.pending[id] = rec
	return id
}

// Pending returns a snapshot of pending approvals, sorted by id ascending
// (§4.7).
func (r *Registry) Pending() []model.PendingApproval {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]model.PendingApproval, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.PendingApproval{ID: id, Recommendation: r.pending[id]})
	}
	return out
}

// Approve removes the pending approval and re-dispatches it with the
// HITL gate bypassed, returning the resulting ExecutionResult. Approve
// does not bypass denylist/allowlist/rate-limit/kind checks (§4.7) — the
// caller must still route through the same policy.Registry.Dispatch the
// original attempt used.
func (r *Registry) Approve(
	id int64, actuators Dispatcher, executors policy.ExecutorTable, approvals policy.Approvals,
) (model.ExecutionResult, error) {
	r.mu.Lock()
	rec, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if !ok {
		return model.ExecutionResult{}, fmt.Errorf("%w: %d", looperrors.ErrUnknownApproval, id)
	}
	return actuators.Dispatch(rec, executors, approvals, true)
}

// Deny removes the pending approval and reports whether one existed
// (§4.7).
func (r *Registry) Deny(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[id]; !ok {
		return false
	}
	delete(r.pending, id)
	return true
}
