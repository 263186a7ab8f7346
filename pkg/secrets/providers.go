// Package secrets stores API keys for the AI assistant CLIs and exports
// them to the shell.
package secrets

import (
	"fmt"
	"strings"
)

// Provider describes the environment an AI CLI reads.
type Provider struct {
	Tool       string // Component ID
	Name       string
	KeyVar     string
	BaseURLVar string
	KeyPrefix  string // Expected key prefix, used for hints only
}

// Providers lists the supported AI CLIs.
var Providers = []Provider{
	{Tool: "claude-code", Name: "Claude Code", KeyVar: "ANTHROPIC_API_KEY", BaseURLVar: "ANTHROPIC_BASE_URL", KeyPrefix: "sk-ant-"},
	{Tool: "codex", Name: "Codex", KeyVar: "OPENAI_API_KEY", BaseURLVar: "OPENAI_BASE_URL", KeyPrefix: "sk-"},
	{Tool: "gemini-cli", Name: "Gemini CLI", KeyVar: "GEMINI_API_KEY", BaseURLVar: "GOOGLE_GEMINI_BASE_URL", KeyPrefix: "AIza"},
}

// ProviderFor returns the provider for a tool ID.
func ProviderFor(tool string) (Provider, error) {
	for _, p := range Providers {
		if p.Tool == tool {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("unknown AI tool %q", tool)
}

// Vars returns the variables the provider reads.
func (p Provider) Vars() []string {
	return []string{p.KeyVar, p.BaseURLVar}
}

// VarFor maps a short name ("key", "base-url") or a full variable name to
// the provider's variable.
func (p Provider) VarFor(name string) (string, error) {
	switch strings.ToLower(name) {
	case "key", "api-key", strings.ToLower(p.KeyVar):
		return p.KeyVar, nil
	case "base-url", "url", strings.ToLower(p.BaseURLVar):
		return p.BaseURLVar, nil
	}
	return "", fmt.Errorf("%s does not use %q (want key or base-url)", p.Name, name)
}

// Mask hides all but the ends of a secret.
func Mask(value string) string {
	if len(value) <= 12 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// KeyHint returns a warning when value does not look like a key for the
// provider owning varName. An empty string means no warning.
func KeyHint(varName, value string) string {
	for _, p := range Providers {
		if p.KeyVar != varName || p.KeyPrefix == "" {
			continue
		}
		if !strings.HasPrefix(value, p.KeyPrefix) {
			return fmt.Sprintf("%s keys usually start with %q; check that you pasted the right key", p.Name, p.KeyPrefix)
		}
	}
	return ""
}
