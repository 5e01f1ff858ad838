// Package pluginroute implements the plugin-route-v1 percept-payload
// convention (SPEC_FULL.md §6, §11, §12): an embedded JSON Schema gate,
// mirroring the original Rust source's include_str!-embedded schema
// check, validated here with github.com/santhosh-tekuri/jsonschema/v6.
//
// ParseSignal is available as a library call but is deliberately not
// wired into engine.Engine.RunIteration by default — the original left
// the integration point open, and SPEC_FULL.md §9/§12 preserves that as
// an Open Question resolved in favour of "available, not mandatory".
package pluginroute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// signalConstant is the fixed looper_signal value that opts a percept
// payload into the plugin-route-v1 convention.
const signalConstant = "plugin_route_v1"

const schemaResourceName = "plugin-route-v1.schema.json"

// schemaDocument is the embedded JSON Schema describing the contract:
//
//	{looper_signal: "plugin_route_v1", route_to_actuator: <name>,
//	 action_message?: <string>, event?: <string>}
const schemaDocument = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["looper_signal", "route_to_actuator"],
  "properties": {
    "looper_signal": {"const": "plugin_route_v1"},
    "route_to_actuator": {"type": "string", "minLength": 1},
    "action_message": {"type": "string"},
    "event": {"type": "string"}
  }
}`

// Signal is the decoded, schema-valid plugin-route-v1 payload.
type Signal struct {
	RouteToActuator string
	ActionMessage   string
	Event           string
}

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResourceName, bytes.NewReader([]byte(schemaDocument))); err != nil {
		panic(fmt.Sprintf("pluginroute: invalid embedded schema: %v", err))
	}
	schema, err := compiler.Compile(schemaResourceName)
	if err != nil {
		panic(fmt.Sprintf("pluginroute: embedded schema failed to compile: %v", err))
	}
	compiledSchema = schema
}

// ParseSignal attempts to parse raw as a plugin-route-v1 payload. The
// second return value is false (with a nil Signal and nil error) whenever
// raw is not JSON, is JSON but lacks the looper_signal constant, or fails
// schema validation — only genuine I/O-level failures (there are none at
// this layer) would surface as a non-nil error; the signature keeps error
// distinct from "not this contract" per the original's opt-in-by-presence
// design.
func ParseSignal(raw string) (*Signal, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false, nil
	}

	var instance any
	if err := json.Unmarshal([]byte(trimmed), &instance); err != nil {
		return nil, false, nil
	}

	obj, ok := instance.(map[string]any)
	if !ok {
		return nil, false, nil
	}
	if signal, _ := obj["looper_signal"].(string); signal != signalConstant {
		return nil, false, nil
	}

	if err := compiledSchema.Validate(instance); err != nil {
		return nil, false, nil
	}

	actionMessage, _ := obj["action_message"].(string)
	event, _ := obj["event"].(string)
	routeTo, _ := obj["route_to_actuator"].(string)

	return &Signal{
		RouteToActuator: routeTo,
		ActionMessage:   actionMessage,
		Event:           event,
	}, true, nil
}
