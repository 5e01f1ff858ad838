// Package config implements persisted key/settings storage (SPEC_FULL.md
// §6, §12), grounded on the original Rust source's config module for
// normalization/degradation semantics and on the reference tree's
// envOr/envIntOr CLI-config idiom (registry/cmd/registry, example/cmd)
// for environment-variable resolution.
package config

import (
	"os"
	"path/filepath"
)

const (
	workspaceEnvVar = "LOOPER_WORKSPACE_ROOT"
	bindEnvVar      = "LOOPER_AGENT_BIND"

	// DefaultBind is the agent HTTP surface's default listen address.
	DefaultBind = ":8080"
)

// WorkspaceRoot resolves the workspace root directory: LOOPER_WORKSPACE_ROOT
// if set, else "~/.looper/workspace" (§12).
func WorkspaceRoot() string {
	if v := os.Getenv(workspaceEnvVar); v != "" {
		return v
	}
	return filepath.Join(homeDir(), ".looper", "workspace")
}

// Bind resolves the HTTP listen address: LOOPER_AGENT_BIND if set, else
// DefaultBind (§6).
func Bind() string {
	if v := os.Getenv(bindEnvVar); v != "" {
		return v
	}
	return DefaultBind
}

// JournalPath resolves the default journal file location,
// "~/.looper/looper.db", unless overridden by the caller (§12).
func JournalPath() string {
	return filepath.Join(homeDir(), ".looper", "looper.db")
}

// KeysPath resolves the default keys.json location alongside the journal
// file's directory.
func KeysPath() string {
	return filepath.Join(homeDir(), ".looper", "keys.json")
}

// SettingsPath resolves the default agent-settings.json location.
func SettingsPath() string {
	return filepath.Join(homeDir(), ".looper", "agent-settings.json")
}

// homeDir resolves the user home directory, preserving the original's
// Windows fallback chain (USERPROFILE -> HOMEDRIVE+HOMEPATH -> HOME) for
// portability even though the primary target is GOOS=linux (§12).
func homeDir() string {
	if v := os.Getenv("USERPROFILE"); v != "" {
		return v
	}
	if drive, path := os.Getenv("HOMEDRIVE"), os.Getenv("HOMEPATH"); drive != "" && path != "" {
		return drive + path
	}
	if v := os.Getenv("HOME"); v != "" {
		return v
	}
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
