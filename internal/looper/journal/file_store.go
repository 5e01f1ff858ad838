package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/loopercore/looper/internal/looper/model"
)

// record is the on-disk JSON shape of one line in the journal file. Field
// names mirror storage.rs's PersistedIteration column names exactly
// (§6's schema table), even though the underlying storage is a flat file
// rather than SQL — see SPEC_FULL.md §11 for why.
type record struct {
	ID                 int64                     `json:"id"`
	CreatedAtUnix      int64                     `json:"created_at_unix"`
	SensedPercepts     []model.Percept           `json:"sensed_percepts"`
	SurprisingPercepts []model.Percept           `json:"surprising_percepts"`
	PlannedActions     []recommendedActionDTO    `json:"planned_actions"`
	ActionResults      []executionResultDTO      `json:"action_results"`
}

type recommendedActionDTO struct {
	ActuatorName string      `json:"actuator_name"`
	Action       model.Action `json:"action"`
}

type executionResultDTO struct {
	Outcome    model.ExecutionOutcome `json:"outcome"`
	Output     string                 `json:"output,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	ApprovalID int64                  `json:"approval_id,omitempty"`
}

// FileStore is an append-only, single-file JSON-lines implementation of
// Store (§4.4, §6). It recreates its parent directory on first use and
// replays the file into an in-memory index on open so reads never
// re-parse the whole file.
type FileStore struct {
	mu   sync.Mutex
	path string
	mem  *MemStore
}

// Open opens (creating if absent) the journal file at path, replaying any
// existing records into memory.
func Open(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	fs := &FileStore{path: path, mem: NewMemStore()}
	if err := fs.replay(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) replay() error {
	f, err := os.OpenFile(fs.path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal file: %w", err)
	}
	defer f.Close()

	var maxID int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("corrupt journal record: %w", err)
		}
		fs.mem.iterations = append(fs.mem.iterations, fromRecord(rec))
		if rec.ID > maxID {
			maxID = rec.ID
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read journal file: %w", err)
	}
	fs.mem.nextID = maxID + 1
	return nil
}

// Append implements Store: assigns the next id, appends to memory, then
// fsyncs the new line to disk.
func (fs *FileStore) Append(iteration model.PersistedIteration) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	id, _ := fs.mem.Append(iteration)
	iteration.ID = id

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open journal file for append: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(toRecord(iteration))
	if err != nil {
		return 0, fmt.Errorf("marshal iteration: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return 0, fmt.Errorf("write journal record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync journal file: %w", err)
	}
	return id, nil
}

func (fs *FileStore) Get(id int64) (model.PersistedIteration, bool, error) {
	return fs.mem.Get(id)
}

func (fs *FileStore) ListAfter(afterID *int64, limit int) ([]model.PersistedIteration, error) {
	return fs.mem.ListAfter(afterID, limit)
}

func (fs *FileStore) LatestID() (int64, bool, error) {
	return fs.mem.LatestID()
}

func (fs *FileStore) LatestPerceptWindows(n int) ([][]string, error) {
	return fs.mem.LatestPerceptWindows(n)
}

func toRecord(it model.PersistedIteration) record {
	rec := record{
		ID: it.ID, CreatedAtUnix: it.CreatedAtUnix,
		SensedPercepts: it.SensedPercepts, SurprisingPercepts: it.SurprisingPercepts,
	}
	for _, a := range it.PlannedActions {
		rec.PlannedActions = append(rec.PlannedActions, recommendedActionDTO{ActuatorName: a.ActuatorName, Action: a.Action})
	}
	for _, r := range it.ActionResults {
		rec.ActionResults = append(rec.ActionResults, executionResultDTO{
			Outcome: r.Outcome, Output: r.Output, Reason: r.Reason, ApprovalID: r.ApprovalID,
		})
	}
	return rec
}

func fromRecord(rec record) model.PersistedIteration {
	it := model.PersistedIteration{
		ID: rec.ID, CreatedAtUnix: rec.CreatedAtUnix,
		SensedPercepts: rec.SensedPercepts, SurprisingPercepts: rec.SurprisingPercepts,
	}
	for _, a := range rec.PlannedActions {
		it.PlannedActions = append(it.PlannedActions, model.RecommendedAction{ActuatorName: a.ActuatorName, Action: a.Action})
	}
	for _, r := range rec.ActionResults {
		it.ActionResults = append(it.ActionResults, model.ExecutionResult{
			Outcome: r.Outcome, Output: r.Output, Reason: r.Reason, ApprovalID: r.ApprovalID,
		})
	}
	return it
}
