package pluginroute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignal_ValidPayload(t *testing.T) {
	t.Parallel()
	raw := `{"looper_signal":"plugin_route_v1","route_to_actuator":"web_search","action_message":"go"}`
	signal, ok, err := ParseSignal(raw)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, signal)
	assert.Equal(t, "web_search", signal.RouteToActuator)
	assert.Equal(t, "go", signal.ActionMessage)
}

func TestParseSignal_EmptyInput(t *testing.T) {
	t.Parallel()
	signal, ok, err := ParseSignal("   ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, signal)
}

func TestParseSignal_NotJSON(t *testing.T) {
	t.Parallel()
	signal, ok, err := ParseSignal("please search the docs")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, signal)
}

func TestParseSignal_WrongSignalConstant(t *testing.T) {
	t.Parallel()
	signal, ok, err := ParseSignal(`{"looper_signal":"something_else","route_to_actuator":"chat"}`)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, signal)
}

func TestParseSignal_MissingRequiredField(t *testing.T) {
	t.Parallel()
	signal, ok, err := ParseSignal(`{"looper_signal":"plugin_route_v1"}`)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, signal)
}

func TestParseSignal_NonObjectJSON(t *testing.T) {
	t.Parallel()
	signal, ok, err := ParseSignal(`["plugin_route_v1"]`)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, signal)
}

func TestParseSignal_OptionalFieldsDefaultEmpty(t *testing.T) {
	t.Parallel()
	signal, ok, err := ParseSignal(`{"looper_signal":"plugin_route_v1","route_to_actuator":"shell"}`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "shell", signal.RouteToActuator)
	assert.Empty(t, signal.ActionMessage)
	assert.Empty(t, signal.Event)
}
