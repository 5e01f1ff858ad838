// Package modelbridge provides production LocalReasoner/FrontierReasoner
// implementations that forward to an external model provider and parse a
// strict JSON contract back out of its response (SPEC_FULL.md §4.5, §11).
// The system-instruction-plus-temperature-0-plus-strict-JSON-parse shape
// is grounded on the original Rust source's looper-harness/models.rs
// FiddlesticksLocalModel/FiddlesticksFrontierModel, retargeted from the
// original's Ollama-backed fiddlesticks crate onto the two model SDKs
// actually declared in this module's dependency graph.
package modelbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loopercore/looper/internal/looper/model"
	"github.com/loopercore/looper/internal/looper/reasoner"
)

const (
	localSystemInstruction = `You are the local surprise-detection reasoner in an agentic sensory loop. ` +
		`Given a JSON array of latest percept contents and a JSON array of previous percept-content windows, ` +
		`respond with ONLY a JSON object of the shape ` +
		`{"surprising_indices": [int, ...], "rationale": string}. ` +
		`Indices refer to positions in the latest percepts array.`

	frontierSystemInstruction = `You are the frontier planning reasoner in an agentic sensory loop. ` +
		`Given a JSON array of surprising percept contents, respond with ONLY a JSON object of the shape ` +
		`{"actions": [{"actuator_name": string, "keyword": string, "payload": object}, ...], "rationale": string}. ` +
		`Valid keywords are chat, grep, glob, shell, web_search; payload fields match that keyword's Action variant.`
)

// ChatClient is the narrow port modelbridge needs from a provider SDK: a
// single-shot, non-streaming completion call with a system instruction,
// a user message, and a max-token cap. Temperature is not part of the
// port; each SDK binding fixes it at 0.
type ChatClient interface {
	Complete(ctx context.Context, systemInstruction, userMessage string, maxTokens int) (text string, usage model.TokenUsage, err error)
}

// Local is a production LocalReasoner that delegates completion to a
// ChatClient and parses the local JSON contract out of the response.
type Local struct {
	Client ChatClient
}

// Detect implements reasoner.LocalReasoner.
func (l Local) Detect(ctx context.Context, latestPercepts []model.Percept, previousWindows [][]string) (reasoner.LocalResult, error) {
	payload, err := json.Marshal(struct {
		LatestPercepts  []string   `json:"latest_percepts"`
		PreviousWindows [][]string `json:"previous_windows"`
	}{
		LatestPercepts:  contents(latestPercepts),
		PreviousWindows: previousWindows,
	})
	if err != nil {
		return reasoner.LocalResult{}, fmt.Errorf("marshal local reasoner request: %w", err)
	}

	text, usage, err := l.Client.Complete(ctx, localSystemInstruction, string(payload), 512)
	if err != nil {
		return reasoner.LocalResult{}, fmt.Errorf("local reasoner completion: %w", err)
	}

	var contract struct {
		SurprisingIndices []int  `json:"surprising_indices"`
		Rationale         string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &contract); err != nil {
		return reasoner.LocalResult{}, fmt.Errorf("parse local reasoner contract: %w", err)
	}
	return reasoner.LocalResult{
		SurprisingIndices: contract.SurprisingIndices,
		Rationale:         contract.Rationale,
		Usage:             usage,
	}, nil
}

// Frontier is a production FrontierReasoner that delegates completion to
// a ChatClient and parses the frontier JSON contract out of the response.
type Frontier struct {
	Client ChatClient
}

// Plan implements reasoner.FrontierReasoner.
func (f Frontier) Plan(ctx context.Context, surprisingPercepts []model.Percept) (reasoner.FrontierResult, error) {
	payload, err := json.Marshal(struct {
		SurprisingPercepts []string `json:"surprising_percepts"`
	}{SurprisingPercepts: contents(surprisingPercepts)})
	if err != nil {
		return reasoner.FrontierResult{}, fmt.Errorf("marshal frontier reasoner request: %w", err)
	}

	text, usage, err := f.Client.Complete(ctx, frontierSystemInstruction, string(payload), 1024)
	if err != nil {
		return reasoner.FrontierResult{}, fmt.Errorf("frontier reasoner completion: %w", err)
	}

	var contract struct {
		Actions []struct {
			ActuatorName string          `json:"actuator_name"`
			Keyword      string          `json:"keyword"`
			Payload      json.RawMessage `json:"payload"`
		} `json:"actions"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &contract); err != nil {
		return reasoner.FrontierResult{}, fmt.Errorf("parse frontier reasoner contract: %w", err)
	}

	actions := make([]model.RecommendedAction, 0, len(contract.Actions))
	for _, entry := range contract.Actions {
		action, err := decodeAction(entry.Keyword, entry.Payload)
		if err != nil {
			return reasoner.FrontierResult{}, err
		}
		actions = append(actions, model.RecommendedAction{ActuatorName: entry.ActuatorName, Action: action})
	}

	return reasoner.FrontierResult{Actions: actions, Rationale: contract.Rationale, Usage: usage}, nil
}

func decodeAction(keyword string, payload json.RawMessage) (model.Action, error) {
	var fields struct {
		Message string `json:"message"`
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
		Command string `json:"command"`
		Query   string `json:"query"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return model.Action{}, fmt.Errorf("decode action payload: %w", err)
		}
	}
	switch model.ActionKind(keyword) {
	case model.ActionChat:
		return model.NewChatResponse(fields.Message), nil
	case model.ActionGrep:
		return model.NewGrep(fields.Pattern, fields.Path), nil
	case model.ActionGlob:
		return model.NewGlob(fields.Pattern, fields.Path), nil
	case model.ActionShell:
		return model.NewShell(fields.Command), nil
	case model.ActionWebSearch:
		return model.NewWebSearch(fields.Query), nil
	default:
		return model.Action{}, fmt.Errorf("unknown action keyword %q", keyword)
	}
}

func contents(percepts []model.Percept) []string {
	out := make([]string, len(percepts))
	for i, p := range percepts {
		out[i] = p.Content
	}
	return out
}

// extractJSON trims any leading/trailing prose a chat model may wrap its
// JSON response in, isolating the outermost {...} object.
func extractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
