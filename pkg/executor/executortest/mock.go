// Package executortest provides a scriptable executor for tests.
package executortest

import (
	"context"
	"errors"
	"sync"

	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
)

// ErrNotFound is returned by the default LookPath when a binary is not in
// Paths.
var ErrNotFound = errors.New("executable file not found in $PATH")

// Call records one mutating invocation.
type Call struct {
	Name   string // command name, or "shell" for scripts
	Args   []string
	Script string
	Env    map[string]string
}

// MockExecutor is a mock command executor for testing. Nil function fields
// fall back to simple defaults: every binary in Paths exists, Run returns
// "1.0.0", and mutating calls succeed.
type MockExecutor struct {
	Paths map[string]string

	LookPathFunc       func(file string) (string, error)
	RunFunc            func(name string, args ...string) (string, error)
	CombinedOutputFunc func(name string, args ...string) ([]byte, error)
	InteractiveFunc    func(name string, args ...string) error
	ShellFunc          func(script string, env map[string]string) error
	FileExistsFunc     func(path string) bool

	mu    sync.Mutex
	calls []Call
}

var _ executor.Executor = (*MockExecutor)(nil)

func (m *MockExecutor) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	if p, ok := m.Paths[file]; ok {
		return p, nil
	}
	return "", ErrNotFound
}

func (m *MockExecutor) Run(_ context.Context, name string, args ...string) (string, error) {
	if m.RunFunc != nil {
		return m.RunFunc(name, args...)
	}
	return "1.0.0", nil
}

func (m *MockExecutor) CombinedOutput(_ context.Context, name string, args ...string) ([]byte, error) {
	m.record(Call{Name: name, Args: args})
	if m.CombinedOutputFunc != nil {
		return m.CombinedOutputFunc(name, args...)
	}
	return nil, nil
}

func (m *MockExecutor) Interactive(_ context.Context, name string, args ...string) error {
	m.record(Call{Name: name, Args: args})
	if m.InteractiveFunc != nil {
		return m.InteractiveFunc(name, args...)
	}
	return nil
}

func (m *MockExecutor) Shell(_ context.Context, script string, env map[string]string) error {
	m.record(Call{Name: "shell", Script: script, Env: env})
	if m.ShellFunc != nil {
		return m.ShellFunc(script, env)
	}
	return nil
}

func (m *MockExecutor) FileExists(path string) bool {
	if m.FileExistsFunc != nil {
		return m.FileExistsFunc(path)
	}
	return false
}

// Calls returns the recorded mutating calls.
func (m *MockExecutor) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Scripts returns the scripts passed to Shell, in order.
func (m *MockExecutor) Scripts() []string {
	var out []string
	for _, c := range m.Calls() {
		if c.Name == "shell" {
			out = append(out, c.Script)
		}
	}
	return out
}

func (m *MockExecutor) record(c Call) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}
