package model

import "fmt"

// ActionKind discriminates the built-in Action variants.
type ActionKind string

const (
	ActionChat      ActionKind = "chat"
	ActionGrep      ActionKind = "grep"
	ActionGlob      ActionKind = "glob"
	ActionShell     ActionKind = "shell"
	ActionWebSearch ActionKind = "web_search"
)

// InternalKind discriminates the built-in executor bindings. Every
// ActionKind maps to exactly one InternalKind; the two enums are kept
// distinct because Mcp/Workflow actuators carry actions that never reach
// an executor, while InternalKind only ever names a built-in executor.
type InternalKind string

const (
	InternalChat      InternalKind = "chat"
	InternalGrep      InternalKind = "grep"
	InternalGlob      InternalKind = "glob"
	InternalShell     InternalKind = "shell"
	InternalWebSearch InternalKind = "web_search"
)

// Action is the tagged union of things a plan entry can ask an actuator to
// do. Exactly one of the typed fields is meaningful; Kind selects which.
type Action struct {
	Kind ActionKind

	// ChatResponse fields.
	Message string

	// Grep/Glob fields.
	Pattern string
	Path    string

	// Shell fields.
	Command string

	// WebSearch fields.
	Query string
}

// NewChatResponse builds a ChatResponse action.
func NewChatResponse(message string) Action { return Action{Kind: ActionChat, Message: message} }

// NewGrep builds a Grep action.
func NewGrep(pattern, path string) Action {
	return Action{Kind: ActionGrep, Pattern: pattern, Path: path}
}

// NewGlob builds a Glob action.
func NewGlob(pattern, path string) Action {
	return Action{Kind: ActionGlob, Pattern: pattern, Path: path}
}

// NewShell builds a Shell action.
func NewShell(command string) Action { return Action{Kind: ActionShell, Command: command} }

// NewWebSearch builds a WebSearch action.
func NewWebSearch(query string) Action { return Action{Kind: ActionWebSearch, Query: query} }

// Keyword returns the stable policy keyword for the action (§3).
func (a Action) Keyword() string {
	return string(a.Kind)
}

// InternalKindOf returns the InternalKind this action maps to. Every
// ActionKind has exactly one corresponding InternalKind.
func (a Action) InternalKindOf() InternalKind {
	switch a.Kind {
	case ActionChat:
		return InternalChat
	case ActionGrep:
		return InternalGrep
	case ActionGlob:
		return InternalGlob
	case ActionShell:
		return InternalShell
	case ActionWebSearch:
		return InternalWebSearch
	default:
		return ""
	}
}

// String renders a short diagnostic description of the action.
func (a Action) String() string {
	switch a.Kind {
	case ActionChat:
		return fmt.Sprintf("chat(%q)", a.Message)
	case ActionGrep:
		return fmt.Sprintf("grep(pattern=%q, path=%q)", a.Pattern, a.Path)
	case ActionGlob:
		return fmt.Sprintf("glob(pattern=%q, path=%q)", a.Pattern, a.Path)
	case ActionShell:
		return fmt.Sprintf("shell(%q)", a.Command)
	case ActionWebSearch:
		return fmt.Sprintf("web_search(%q)", a.Query)
	default:
		return "action(unknown)"
	}
}
