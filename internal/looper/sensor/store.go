// Package sensor implements the Percept/Sensor store (SPEC_FULL.md §4.1),
// grounded on the reference tree's clone-on-read in-memory store idiom
// (runtime/agent/session/inmem in the teacher repo): a name-keyed map
// with deep-copy helpers so callers never observe or mutate internal
// slices by reference. Unlike that store it holds no mutex; locking is
// left to the Engine.
package sensor

import (
	"fmt"
	"sort"

	looperrors "github.com/loopercore/looper/internal/looper/errors"
	"github.com/loopercore/looper/internal/looper/model"
)

// Store holds the named sensor map. It is not safe for concurrent use on
// its own — the Engine serialises all access behind its own lock (§5) —
// but every method still treats its receiver defensively (clone on read)
// so it remains safe to reuse standalone in tests.
type Store struct {
	sensors map[string]*model.Sensor
	order   []string
}

// New returns a Store pre-seeded with the always-present chat sensor.
func New() *Store {
	s := &Store{sensors: make(map[string]*model.Sensor)}
	chat := model.NewChatSensor()
	s.AddOrReplace(chat)
	return s
}

// AddOrReplace registers or overwrites a sensor by name.
func (s *Store) AddOrReplace(sensor model.Sensor) {
	if _, exists := s.sensors[sensor.Name]; !exists {
		s.order = append(s.order, sensor.Name)
	}
	clone := sensor
	clone.Queue = append([]model.Percept(nil), sensor.Queue...)
	s.sensors[sensor.Name] = &clone
}

// Enqueue appends a percept's content to the named sensor's queue,
// failing with ErrUnknownSensor if absent (§4.1).
func (s *Store) Enqueue(name, content, chatID string) error {
	sensor, ok := s.sensors[name]
	if !ok {
		return fmt.Errorf("%w: %q", looperrors.ErrUnknownSensor, name)
	}
	sensor.Enqueue(content, chatID)
	return nil
}

// SenseUnread drains the unread percepts of every enabled sensor, in
// name-sorted order, returning the concatenation. Each sensor's
// unread_start cursor is advanced as a side effect (§4.1).
func (s *Store) SenseUnread() []model.Percept {
	var all []model.Percept
	for _, name := range s.sortedNames() {
		sensor := s.sensors[name]
		if !sensor.Enabled {
			continue
		}
		all = append(all, sensor.SenseUnread()...)
	}
	if all == nil {
		all = []model.Percept{}
	}
	return all
}

// Sensors returns a stable, name-sorted snapshot of the registered
// sensors (§4.1). Mutating the returned slice does not affect the store.
func (s *Store) Sensors() []model.Sensor {
	names := s.sortedNames()
	out := make([]model.Sensor, 0, len(names))
	for _, name := range names {
		sensor := *s.sensors[name]
		sensor.Queue = append([]model.Percept(nil), sensor.Queue...)
		out = append(out, sensor)
	}
	return out
}

// Get returns a copy of the named sensor, if present, for use by the
// force-surprise escape hatch (sensitivity >= 90) in the Engine.
func (s *Store) Get(name string) (model.Sensor, bool) {
	sensor, ok := s.sensors[name]
	if !ok {
		return model.Sensor{}, false
	}
	clone := *sensor
	clone.Queue = append([]model.Percept(nil), sensor.Queue...)
	return clone, true
}

func (s *Store) sortedNames() []string {
	names := make([]string, 0, len(s.sensors))
	for name := range s.sensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
