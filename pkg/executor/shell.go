package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ExitError reports a script that finished with a non-zero status.
type ExitError struct {
	Status int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("script exited with status %d", e.Status)
}

// ValidateScript parses a script without running it.
func ValidateScript(script string) error {
	_, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return fmt.Errorf("failed to parse script: %w", err)
	}
	return nil
}

// runScript parses and runs a script in-process with errexit enabled.
func runScript(ctx context.Context, script string, env map[string]string, stdin io.Reader, stdout, stderr io.Writer) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return fmt.Errorf("failed to parse script: %w", err)
	}

	runner, err := interp.New(
		interp.Env(expand.ListEnviron(MergeEnv(os.Environ(), env)...)),
		interp.StdIO(stdin, stdout, stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ExitError{Status: int(status)}
		}
		return fmt.Errorf("script execution failed: %w", err)
	}

	return nil
}

// MergeEnv returns base with overrides applied, overrides sorted by key.
func MergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

// Quote shell-quotes s so it survives as a single word.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Only strings with NUL bytes fail; drop them.
		q, _ = syntax.Quote(strings.ReplaceAll(s, "\x00", ""), syntax.LangBash)
	}
	return q
}

// SudoWrap runs script through sudo unless the process is already root.
func SudoWrap(script string, root bool) string {
	if root {
		return script
	}
	return "sudo -E bash -c " + Quote(script)
}
