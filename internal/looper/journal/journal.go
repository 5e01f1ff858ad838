// Package journal implements the append-only iteration Journal Store
// (SPEC_FULL.md §4.4). Its interface and opaque-cursor-free pagination
// shape are grounded on the reference tree's runlog package (per-key
// monotonic sequence, clone-on-read), adapted from per-run ids to a
// single global monotonic id per §4.4/§8 invariant 5. Schema field names
// mirror the original Rust source's storage.rs SQLite table exactly
// (sensed_percepts/surprising_percepts/planned_actions/action_results),
// even though persistence here is a JSON-lines file rather than SQL (see
// DESIGN.md for why no embedded relational driver is available in the
// dependency pack).
package journal

import (
	"fmt"
	"sort"
	"sync"

	"github.com/loopercore/looper/internal/looper/model"
)

// Store is the append-only Journal contract (§4.4).
type Store interface {
	Append(iteration model.PersistedIteration) (int64, error)
	Get(id int64) (model.PersistedIteration, bool, error)
	ListAfter(afterID *int64, limit int) ([]model.PersistedIteration, error)
	LatestID() (int64, bool, error)
	LatestPerceptWindows(n int) ([][]string, error)
}

// MemStore is an in-memory Journal implementation, used by tests and as
// the in-memory index behind FileStore. An Engine with no journal
// attached holds a nil Store rather than a MemStore; NoopStore covers
// callers that need a concrete Store that records nothing.
type MemStore struct {
	mu         sync.Mutex
	nextID     int64
	iterations []model.PersistedIteration // ordered by id ascending
}

// NewMemStore returns an empty in-memory journal.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

// Append implements Store.
func (s *MemStore) Append(iteration model.PersistedIteration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	iteration.ID = id
	s.iterations = append(s.iterations, cloneIteration(iteration))
	return id, nil
}

// Get implements Store.
func (s *MemStore) Get(id int64) (model.PersistedIteration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := sort.Search(len(s.iterations), func(i int) bool { return s.iterations[i].ID >= id })
	if idx >= len(s.iterations) || s.iterations[idx].ID != id {
		return model.PersistedIteration{}, false, nil
	}
	return cloneIteration(s.iterations[idx]), true, nil
}

// ListAfter implements Store. limit is expected to already be clamped to
// [1, 500] by the caller (§4.4, §6).
func (s *MemStore) ListAfter(afterID *int64, limit int) ([]model.PersistedIteration, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if afterID != nil {
		start = sort.Search(len(s.iterations), func(i int) bool { return s.iterations[i].ID > *afterID })
	}
	end := start + limit
	if end > len(s.iterations) {
		end = len(s.iterations)
	}
	if start >= end {
		return []model.PersistedIteration{}, nil
	}
	out := make([]model.PersistedIteration, end-start)
	for i, it := range s.iterations[start:end] {
		out[i] = cloneIteration(it)
	}
	return out, nil
}

// LatestID implements Store.
func (s *MemStore) LatestID() (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.iterations) == 0 {
		return 0, false, nil
	}
	return s.iterations[len(s.iterations)-1].ID, true, nil
}

// LatestPerceptWindows implements Store: returns the sensed-percept
// content strings of the last n iterations, oldest-first (§4.4; mirrors
// storage.rs's latest_percept_windows, which selects sensed_percepts
// ordered DESC LIMIT n then reverses to restore oldest-first order).
func (s *MemStore) LatestPerceptWindows(n int) ([][]string, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.iterations) - n
	if start < 0 {
		start = 0
	}
	windows := make([][]string, 0, len(s.iterations)-start)
	for _, it := range s.iterations[start:] {
		contents := make([]string, len(it.SensedPercepts))
		for i, p := range it.SensedPercepts {
			contents[i] = p.Content
		}
		windows = append(windows, contents)
	}
	return windows, nil
}

func cloneIteration(it model.PersistedIteration) model.PersistedIteration {
	clone := it
	clone.SensedPercepts = append([]model.Percept(nil), it.SensedPercepts...)
	clone.SurprisingPercepts = append([]model.Percept(nil), it.SurprisingPercepts...)
	clone.PlannedActions = append([]model.RecommendedAction(nil), it.PlannedActions...)
	clone.ActionResults = append([]model.ExecutionResult(nil), it.ActionResults...)
	return clone
}

// NoopStore discards every append and reports empty results for every
// query. It grounds the spec's "the store must tolerate absence" clause:
// an Engine with no journal attached is constructed with Journal == nil
// (see engine package), and NoopStore exists for collaborators that need
// a concrete Store value rather than a nil interface.
type NoopStore struct{}

func (NoopStore) Append(model.PersistedIteration) (int64, error)       { return 0, nil }
func (NoopStore) Get(int64) (model.PersistedIteration, bool, error)    { return model.PersistedIteration{}, false, nil }
func (NoopStore) ListAfter(*int64, int) ([]model.PersistedIteration, error) {
	return []model.PersistedIteration{}, nil
}
func (NoopStore) LatestID() (int64, bool, error)          { return 0, false, nil }
func (NoopStore) LatestPerceptWindows(int) ([][]string, error) { return nil, nil }
