package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Settings is the persisted reasoner provider/model selection
// (agent-settings.json, §6). All four fields are either all populated or
// all empty — a partially-selected pair is not a valid steady state.
type Settings struct {
	path string

	LocalProvider    string `json:"local_provider"`
	LocalModel       string `json:"local_model"`
	FrontierProvider string `json:"frontier_provider"`
	FrontierModel    string `json:"frontier_model"`
}

// Validator attempts to construct working reasoners for a provider/model
// selection, returning an error if the pair cannot be used (e.g. the
// provider name is unrecognized or the model client fails to build).
// LoadSettings uses it to implement graceful degradation on load.
type Validator func(localProvider, localModel, frontierProvider, frontierModel string) error

// LoadSettings reads agent-settings.json at path. If the file is absent,
// an empty Settings is returned. If it names a provider/model pair that
// fails validate, all four fields are reset to empty rather than failing
// the load — the original's load_persisted_settings graceful-degradation
// behaviour (§12) — and the degraded Settings is still returned with a
// nil error.
func LoadSettings(path string, validate Validator) (*Settings, error) {
	s := &Settings{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	s.path = path

	if s.LocalProvider == "" && s.FrontierProvider == "" {
		return s, nil
	}
	if validate != nil {
		if err := validate(s.LocalProvider, s.LocalModel, s.FrontierProvider, s.FrontierModel); err != nil {
			s.LocalProvider, s.LocalModel, s.FrontierProvider, s.FrontierModel = "", "", "", ""
		}
	}
	return s, nil
}

// Save persists the current selection via an atomic rewrite.
func (s *Settings) Save() error {
	return atomicWriteJSON(s.path, s)
}

// Configured reports whether a full provider/model pair is selected.
func (s *Settings) Configured() bool {
	return s.LocalProvider != "" && s.LocalModel != "" && s.FrontierProvider != "" && s.FrontierModel != ""
}
