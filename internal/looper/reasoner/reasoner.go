// Package reasoner defines the two reasoner ports (SPEC_FULL.md §4.5) and
// their rule-based reference implementations, grounded on the original
// Rust source's looper-harness/models.rs RuleBasedLocalModel and
// RuleBasedFrontierModel.
package reasoner

import (
	"context"
	"strings"

	"github.com/loopercore/looper/internal/looper/model"
)

// LocalResult is returned by LocalReasoner.Detect.
type LocalResult struct {
	SurprisingIndices []int
	Rationale         string
	Usage             model.TokenUsage
}

// FrontierResult is returned by FrontierReasoner.Plan.
type FrontierResult struct {
	Actions   []model.RecommendedAction
	Rationale string
	Usage     model.TokenUsage
}

// LocalReasoner detects which of the latest percepts are surprising,
// given up to the last 10 prior iteration windows for context (§4.5).
type LocalReasoner interface {
	Detect(ctx context.Context, latestPercepts []model.Percept, previousWindows [][]string) (LocalResult, error)
}

// FrontierReasoner plans an ordered list of actions in response to a set
// of surprising percepts (§4.5).
type FrontierReasoner interface {
	Plan(ctx context.Context, surprisingPercepts []model.Percept) (FrontierResult, error)
}

// ruleBasedTriggerWords mirrors RuleBasedLocalModel's case-insensitive
// substring gate.
var ruleBasedTriggerWords = []string{"!", "error", "fail", "urgent", "new", "search", "run", "glob", "grep"}

// RuleBasedLocal is a deterministic LocalReasoner reference
// implementation (§4.5, §8 scenarios). A percept is surprising if its
// lowercased content contains one of a fixed set of trigger substrings
// AND it was not seen in the last 10 previous windows.
type RuleBasedLocal struct{}

// Detect implements LocalReasoner.
func (RuleBasedLocal) Detect(_ context.Context, latestPercepts []model.Percept, previousWindows [][]string) (LocalResult, error) {
	seen := recentlySeen(previousWindows, 10)
	var indices []int
	for i, p := range latestPercepts {
		lower := strings.ToLower(p.Content)
		if !containsAny(lower, ruleBasedTriggerWords) {
			continue
		}
		if _, wasSeen := seen[p.Content]; wasSeen {
			continue
		}
		indices = append(indices, i)
	}
	return LocalResult{
		SurprisingIndices: indices,
		Rationale:         "rule-based trigger-word match",
		Usage:             model.TokenUsage{InputTokens: estimateTokens(latestPercepts), OutputTokens: 4},
	}, nil
}

// RuleBasedFrontier is a deterministic FrontierReasoner reference
// implementation (§4.5, §8 scenarios), grounded on
// RuleBasedFrontierModel's fixed keyword routing.
type RuleBasedFrontier struct{}

// Plan implements FrontierReasoner.
func (RuleBasedFrontier) Plan(_ context.Context, surprisingPercepts []model.Percept) (FrontierResult, error) {
	actions := make([]model.RecommendedAction, 0, len(surprisingPercepts))
	for _, p := range surprisingPercepts {
		lower := strings.ToLower(p.Content)
		switch {
		case strings.Contains(lower, "search"):
			actions = append(actions, model.RecommendedAction{ActuatorName: "web_search", Action: model.NewWebSearch(p.Content)})
		case strings.Contains(lower, "glob") || strings.Contains(lower, "find file"):
			actions = append(actions, model.RecommendedAction{ActuatorName: "glob", Action: model.NewGlob("**/*", ".")})
		case strings.Contains(lower, "grep") || strings.Contains(lower, "find text"):
			actions = append(actions, model.RecommendedAction{ActuatorName: "grep", Action: model.NewGrep(".", ".")})
		case strings.Contains(lower, "run") || strings.Contains(lower, "shell"):
			actions = append(actions, model.RecommendedAction{ActuatorName: "shell", Action: model.NewShell(extractShellCommand(p.Content))})
		default:
			actions = append(actions, model.RecommendedAction{
				ActuatorName: "chat",
				Action:       model.NewChatResponse("I noticed a surprising percept and queued it for review."),
			})
		}
	}
	return FrontierResult{
		Actions:   actions,
		Rationale: "rule-based keyword routing",
		Usage:     model.TokenUsage{InputTokens: estimateTokens(surprisingPercepts), OutputTokens: 8 * len(actions)},
	}, nil
}

func recentlySeen(previousWindows [][]string, limit int) map[string]struct{} {
	seen := make(map[string]struct{})
	start := len(previousWindows) - limit
	if start < 0 {
		start = 0
	}
	for _, window := range previousWindows[start:] {
		for _, content := range window {
			seen[content] = struct{}{}
		}
	}
	return seen
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// extractShellCommand finds a case-insensitive "run " or "shell " marker
// and slices the original-case string from that offset; falls back to
// the trimmed full message (grounded on models.rs's
// extract_shell_command).
func extractShellCommand(message string) string {
	lower := strings.ToLower(message)
	for _, marker := range []string{"run ", "shell "} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			return strings.TrimSpace(message[idx+len(marker):])
		}
	}
	return strings.TrimSpace(message)
}

// estimateTokens sums word_count + 4 per percept (grounded on models.rs's
// estimate_tokens).
func estimateTokens(percepts []model.Percept) int {
	total := 0
	for _, p := range percepts {
		total += len(strings.Fields(p.Content)) + 4
	}
	return total
}
