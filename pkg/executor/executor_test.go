package executor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	assert.Equal(t, "''", Quote(""))
	assert.Equal(t, "plain", Quote("plain"))
	assert.Equal(t, "'two words'", Quote("two words"))
	assert.NoError(t, ValidateScript("echo "+Quote("it's; rm -rf /")))
	assert.NotEqual(t, "it's", Quote("it's"))
}

func TestCommandString(t *testing.T) {
	got := CommandString("docker", "compose", "-f", "my file.yml", "up", "-d")
	assert.Equal(t, "docker compose -f 'my file.yml' up -d", got)
}

func TestSudoWrap(t *testing.T) {
	assert.Equal(t, "apt-get update", SudoWrap("apt-get update", true))
	assert.Equal(t, "sudo -E bash -c 'apt-get update'", SudoWrap("apt-get update", false))
}

func TestValidateScript(t *testing.T) {
	assert.NoError(t, ValidateScript("if true; then echo ok; fi"))
	assert.Error(t, ValidateScript("if true; then echo"))
}

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/root", "GOPROXY=old"}
	got := MergeEnv(base, map[string]string{"GOPROXY": "https://goproxy.cn", "A": "1"})

	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/root", "A=1", "GOPROXY=https://goproxy.cn"}, got)
}

func TestRealExecutor_Shell(t *testing.T) {
	var stdout, stderr bytes.Buffer
	e := &RealExecutor{Stdin: strings.NewReader(""), Stdout: &stdout, Stderr: &stderr}

	err := e.Shell(context.Background(), `echo "hello $NAME"`, map[string]string{"NAME": "devbox"})
	require.NoError(t, err)
	assert.Equal(t, "hello devbox\n", stdout.String())
}

func TestRealExecutor_ShellErrexit(t *testing.T) {
	var stdout bytes.Buffer
	e := &RealExecutor{Stdin: strings.NewReader(""), Stdout: &stdout, Stderr: &stdout}

	err := e.Shell(context.Background(), "false\necho unreachable", nil)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.Status)
	assert.NotContains(t, stdout.String(), "unreachable")
}

func TestRealExecutor_ShellParseError(t *testing.T) {
	e := &RealExecutor{}
	err := e.Shell(context.Background(), "echo (", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse script")
}

// fakeLookup answers read-only queries for the dry-run executor.
type fakeLookup struct {
	RealExecutor
	paths map[string]string
}

func (f *fakeLookup) LookPath(file string) (string, error) {
	if p, ok := f.paths[file]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func TestDryRunExecutor(t *testing.T) {
	var out bytes.Buffer
	lookup := &fakeLookup{paths: map[string]string{"docker": "/usr/bin/docker"}}
	d := NewDryRunExecutor(lookup, &out)
	ctx := context.Background()

	path, err := d.LookPath("docker")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/docker", path)

	require.NoError(t, d.Interactive(ctx, "docker", "compose", "up", "-d"))
	require.NoError(t, d.Shell(ctx, "apt-get install -y git\n", map[string]string{"DEBIAN_FRONTEND": "noninteractive"}))
	_, err = d.CombinedOutput(ctx, "sh", "-c", "echo hi")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"docker compose up -d",
		"DEBIAN_FRONTEND=noninteractive apt-get install -y git",
		"sh -c 'echo hi'",
	}, d.Commands())
	assert.Contains(t, out.String(), "+ docker compose up -d\n")
}

func TestDryRunExecutor_RejectsBrokenScript(t *testing.T) {
	d := NewDryRunExecutor(&fakeLookup{}, nil)
	err := d.Shell(context.Background(), "if then", nil)
	assert.Error(t, err)
	assert.Empty(t, d.Commands())
}
