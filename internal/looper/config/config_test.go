package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeys_AbsentFileReturnsEmpty(t *testing.T) {
	t.Parallel()
	keys, err := LoadKeys(filepath.Join(t.TempDir(), "missing-keys.json"))
	require.NoError(t, err)
	assert.Empty(t, keys.Providers())
}

func TestKeys_SetGetDeleteRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "keys.json")
	keys, err := LoadKeys(path)
	require.NoError(t, err)

	require.NoError(t, keys.Set("openai", "sk-abc123"))
	v, ok := keys.Get("openai")
	require.True(t, ok)
	assert.Equal(t, "sk-abc123", v)

	reloaded, err := LoadKeys(path)
	require.NoError(t, err)
	v, ok = reloaded.Get("openai")
	require.True(t, ok)
	assert.Equal(t, "sk-abc123", v)

	require.NoError(t, keys.Delete("openai"))
	_, ok = keys.Get("openai")
	assert.False(t, ok)
}

func TestNormalizeAPIKeyValue(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"  sk-plain  ":        "sk-plain",
		"Bearer sk-abc":       "sk-abc",
		"bearer sk-abc":       "sk-abc",
		`"sk-quoted"`:         "sk-quoted",
		"'sk-single-quoted'":  "sk-single-quoted",
		"Bearer \"sk-both\"":  "sk-both",
	}
	for input, want := range cases {
		path := filepath.Join(t.TempDir(), "keys.json")
		keys, err := LoadKeys(path)
		require.NoError(t, err)
		require.NoError(t, keys.Set("p", input))
		got, ok := keys.Get("p")
		require.True(t, ok)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestLoadSettings_AbsentFileReturnsEmpty(t *testing.T) {
	t.Parallel()
	s, err := LoadSettings(filepath.Join(t.TempDir(), "missing-settings.json"), nil)
	require.NoError(t, err)
	assert.False(t, s.Configured())
}

func TestLoadSettings_ValidPairPersistsAndReloads(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "agent-settings.json")
	validate := func(string, string, string, string) error { return nil }

	s, err := LoadSettings(path, validate)
	require.NoError(t, err)
	s.LocalProvider, s.LocalModel = "openai", "gpt-4o-mini"
	s.FrontierProvider, s.FrontierModel = "anthropic", "claude-3-5-sonnet"
	require.NoError(t, s.Save())

	reloaded, err := LoadSettings(path, validate)
	require.NoError(t, err)
	assert.True(t, reloaded.Configured())
	assert.Equal(t, "openai", reloaded.LocalProvider)
}

// Graceful degradation (§12): a persisted selection that fails validation
// resets all four fields rather than failing process startup.
func TestLoadSettings_InvalidPairDegradesGracefully(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "agent-settings.json")
	okValidate := func(string, string, string, string) error { return nil }

	s, err := LoadSettings(path, okValidate)
	require.NoError(t, err)
	s.LocalProvider, s.LocalModel = "unknown-provider", "some-model"
	s.FrontierProvider, s.FrontierModel = "unknown-provider", "some-model"
	require.NoError(t, s.Save())

	failValidate := func(string, string, string, string) error { return errors.New("unsupported provider") }
	reloaded, err := LoadSettings(path, failValidate)
	require.NoError(t, err)
	assert.False(t, reloaded.Configured())
	assert.Empty(t, reloaded.LocalProvider)
	assert.Empty(t, reloaded.FrontierModel)
}

func TestAtomicWriteJSON_NeverLeavesTempFileBehind(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, atomicWriteJSON(path, map[string]string{"a": "b"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.json", entries[0].Name())
}
