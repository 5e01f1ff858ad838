// Package executor implements the built-in Internal action executors
// (SPEC_FULL.md §4.3), grounded on the original Rust source's
// executors.rs: exact output formats for glob/grep/shell/web_search are
// preserved so the HTTP/CLI collaborator surfaces identical text.
package executor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	looperrors "github.com/loopercore/looper/internal/looper/errors"
	"github.com/loopercore/looper/internal/looper/model"
	"github.com/loopercore/looper/internal/looper/policy"
)

// Table builds the built-in ExecutorTable rooted at workspace. workspace
// is captured once, at construction, and never reloaded (§5).
func Table(workspace string) policy.ExecutorTable {
	return policy.ExecutorTable{
		model.InternalChat:      chatExecutor{},
		model.InternalGlob:      globExecutor{workspace: workspace},
		model.InternalGrep:      grepExecutor{workspace: workspace},
		model.InternalShell:     shellExecutor{workspace: workspace},
		model.InternalWebSearch: webSearchExecutor{},
	}
}

type chatExecutor struct{}

func (chatExecutor) Execute(action model.Action) (string, error) {
	return action.Message, nil
}

type globExecutor struct{ workspace string }

func (e globExecutor) Execute(action model.Action) (string, error) {
	root := normalizeRootedPath(e.workspace, action.Path)
	pattern := filepath.Join(root, action.Pattern)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("%w: %s", looperrors.ErrValidation, err)
	}
	if len(matches) == 0 {
		return "no files matched", nil
	}
	sort.Strings(matches)
	return strings.Join(matches, "\n"), nil
}

type grepExecutor struct{ workspace string }

func (e grepExecutor) Execute(action model.Action) (string, error) {
	root := normalizeRootedPath(e.workspace, action.Path)
	re, err := regexp.Compile(action.Pattern)
	if err != nil {
		return "", fmt.Errorf("%w: %s", looperrors.ErrInvalidRegex, err)
	}
	var lines []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil || !isLikelyText(content) {
			return nil
		}
		for i, line := range strings.Split(string(content), "\n") {
			if re.MatchString(line) {
				lines = append(lines, fmt.Sprintf("%s:%d:%s", path, i+1, line))
			}
		}
		return nil
	})
	if len(lines) == 0 {
		return "no matches found", nil
	}
	return strings.Join(lines, "\n"), nil
}

type shellExecutor struct{ workspace string }

func (e shellExecutor) Execute(action model.Action) (string, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", action.Command)
	} else {
		cmd = exec.Command("sh", "-c", action.Command)
	}
	cmd.Dir = e.workspace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	status := "0"
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			status = fmt.Sprintf("%d", exitErr.ExitCode())
		} else {
			status = runErr.Error()
		}
	}

	parts := []string{fmt.Sprintf("status: %s", status)}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		parts = append(parts, fmt.Sprintf("stdout:\n%s", out))
	}
	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		parts = append(parts, fmt.Sprintf("stderr:\n%s", errOut))
	}
	return strings.Join(parts, "\n"), nil
}

type webSearchExecutor struct{}

func (webSearchExecutor) Execute(action model.Action) (string, error) {
	return fmt.Sprintf("web search request accepted for query: '%s' (provider integration pending)", action.Query), nil
}

// normalizeRootedPath joins a relative path to root; an absolute path
// passes through unchanged (grounded on executors.rs's
// normalize_rooted_path).
func normalizeRootedPath(root, path string) string {
	if path == "" {
		return root
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// isLikelyText is a cheap UTF-8 validity check standing in for the
// original's fs::read_to_string failure (which errors on non-UTF8
// content); files that fail this check are silently skipped, matching
// the original's `let Ok(content) = ... else { continue }`.
func isLikelyText(b []byte) bool {
	for _, r := range string(b) {
		if r == '�' {
			return false
		}
	}
	return true
}
