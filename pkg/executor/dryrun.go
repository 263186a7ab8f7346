package executor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DryRunExecutor prints mutating commands instead of running them.
// Probes (LookPath, FileExists, Run) go to the wrapped executor so plans
// still reflect the real host.
type DryRunExecutor struct {
	probe Executor
	out   io.Writer

	mu       sync.Mutex
	commands []string
}

// NewDryRunExecutor wraps probe; rendered commands go to out.
func NewDryRunExecutor(probe Executor, out io.Writer) *DryRunExecutor {
	return &DryRunExecutor{probe: probe, out: out}
}

// LookPath delegates to the probe executor.
func (d *DryRunExecutor) LookPath(file string) (string, error) {
	return d.probe.LookPath(file)
}

// Run delegates to the probe executor; Run is only used for read-only
// queries such as version checks.
func (d *DryRunExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	return d.probe.Run(ctx, name, args...)
}

// CombinedOutput records the command and returns no output.
func (d *DryRunExecutor) CombinedOutput(_ context.Context, name string, args ...string) ([]byte, error) {
	d.record(CommandString(name, args...))
	return nil, nil
}

// Interactive records the command.
func (d *DryRunExecutor) Interactive(_ context.Context, name string, args ...string) error {
	d.record(CommandString(name, args...))
	return nil
}

// Shell validates and records the script.
func (d *DryRunExecutor) Shell(_ context.Context, script string, env map[string]string) error {
	if err := ValidateScript(script); err != nil {
		return err
	}
	var b strings.Builder
	for _, kv := range MergeEnv(nil, env) {
		k, v, _ := strings.Cut(kv, "=")
		b.WriteString(k + "=" + Quote(v) + " ")
	}
	b.WriteString(strings.TrimSpace(script))
	d.record(b.String())
	return nil
}

// FileExists delegates to the probe executor.
func (d *DryRunExecutor) FileExists(path string) bool {
	return d.probe.FileExists(path)
}

// Commands returns everything recorded so far.
func (d *DryRunExecutor) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.commands))
	copy(out, d.commands)
	return out
}

func (d *DryRunExecutor) record(cmd string) {
	d.mu.Lock()
	d.commands = append(d.commands, cmd)
	d.mu.Unlock()
	if d.out != nil {
		fmt.Fprintf(d.out, "+ %s\n", cmd)
	}
}
