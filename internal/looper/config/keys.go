package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Keys is the persisted, provider-name-keyed API key map (keys.json, §6).
type Keys struct {
	path   string
	values map[string]string
}

// LoadKeys reads keys.json at path, tolerating an absent file (returns an
// empty Keys rather than an error, matching the original's
// load-or-default behaviour for this file).
func LoadKeys(path string) (*Keys, error) {
	k := &Keys{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return k, nil
		}
		return nil, fmt.Errorf("read keys file: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}
	for provider, value := range raw {
		k.values[provider] = normalizeAPIKeyValue(value)
	}
	return k, nil
}

// Get returns the normalized key for the named provider, if present.
func (k *Keys) Get(provider string) (string, bool) {
	v, ok := k.values[provider]
	return v, ok
}

// Set stores a normalized key for the named provider and persists the
// whole map via an atomic rewrite.
func (k *Keys) Set(provider, value string) error {
	k.values[provider] = normalizeAPIKeyValue(value)
	return k.save()
}

// Delete removes the named provider's key and persists the change.
func (k *Keys) Delete(provider string) error {
	delete(k.values, provider)
	return k.save()
}

// Providers lists the providers with a stored key.
func (k *Keys) Providers() []string {
	out := make([]string, 0, len(k.values))
	for p := range k.values {
		out = append(out, p)
	}
	return out
}

func (k *Keys) save() error {
	return atomicWriteJSON(k.path, k.values)
}

// normalizeAPIKeyValue trims whitespace, strips one leading "Bearer "/
// "bearer " prefix, and strips one layer of matching surrounding quotes —
// the exact behaviour of the original's normalize_api_key_value (§12).
func normalizeAPIKeyValue(raw string) string {
	v := strings.TrimSpace(raw)
	for _, prefix := range []string{"Bearer ", "bearer "} {
		if strings.HasPrefix(v, prefix) {
			v = strings.TrimSpace(v[len(prefix):])
			break
		}
	}
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			v = v[1 : len(v)-1]
		}
	}
	return v
}

// atomicWriteJSON marshals v and writes it to path via a temp-file-plus-
// rename so a concurrent reader never observes a partially-written file
// (§6, §10).
func atomicWriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp config file: %w", err)
	}
	return nil
}
