package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspreet-dot-casa/devbox/pkg/component"
	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/state"
)

// isolate points every config, home and secret path at temp dirs.
func isolate(t *testing.T) (configDir, home string) {
	t.Helper()
	xdg := t.TempDir()
	home = t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", home)
	t.Setenv("SHELL", "/bin/bash")
	t.Setenv("DEVBOX_KEYRING", "file")
	return filepath.Join(xdg, config.ConfigDirName), home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))

	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	rootCmd := newRootCmd()

	assert.Equal(t, "devbox", rootCmd.Use)
	assert.Equal(t, "Development workstation provisioning", rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	for _, name := range []string{"config", "dry-run", "verbose"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCmdHelp(t *testing.T) {
	isolate(t)
	output, err := execute(t, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"init", "install", "mirror", "ai", "vm", "doctor", "menu"} {
		assert.Contains(t, output, sub)
	}
}

func TestRootCmdWithoutTTYShowsHelp(t *testing.T) {
	isolate(t)
	output, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, output, "Available Commands")
}

func TestRootCmdVersion(t *testing.T) {
	output, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, output, "devbox version")
}

func TestListCmd(t *testing.T) {
	isolate(t)
	output, err := execute(t, "list")
	require.NoError(t, err)

	assert.Contains(t, output, "Languages:")
	assert.Contains(t, output, "node")
	assert.Contains(t, output, "claude-code")
}

func TestInitAndConfigCmds(t *testing.T) {
	configDir, _ := isolate(t)
	path := filepath.Join(configDir, config.ConfigFileName)

	output, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", output)

	output, err = execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, output, "Config saved to: "+path)
	assert.FileExists(t, path)

	output, err = execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, output, "Config already exists")

	output, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "compose_file: docker-compose.yml")

	output, err = execute(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, output, "code_server.password")
}

func TestConfigValidateFails(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("toolchains:\n  qt_major: \"7\"\n"), 0600))

	output, err := execute(t, "--config", path, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, output, "toolchains.qt_major")
}

func TestConfigShowAppliesEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DEVBOX_GOPROXY", "https://goproxy.cn")

	output, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "go_proxy: https://goproxy.cn")
}

func TestInitDryRun(t *testing.T) {
	configDir, _ := isolate(t)

	output, err := execute(t, "--dry-run", "init")
	require.NoError(t, err)
	assert.Contains(t, output, "+ write")
	assert.NoFileExists(t, filepath.Join(configDir, config.ConfigFileName))
}

func TestMirrorShowCmd(t *testing.T) {
	isolate(t)
	t.Setenv("DEVBOX_NPM_REGISTRY", "https://registry.npmmirror.com")

	output, err := execute(t, "mirror", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "https://registry.npmmirror.com")
	assert.Contains(t, output, "upstream")
}

func TestMirrorApplyRejectsUnknownKind(t *testing.T) {
	isolate(t)
	_, err := execute(t, "--dry-run", "mirror", "apply", "maven")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mirror kind")
}

func TestAICmds(t *testing.T) {
	configDir, home := isolate(t)

	output, err := execute(t, "ai", "set", "claude-code", "key", "sk-ant-REDACTED")
	require.NoError(t, err)
	assert.Contains(t, output, "Stored ANTHROPIC_API_KEY")
	assert.NotContains(t, output, "warning")

	output, err = execute(t, "ai", "set", "codex", "key", "not-a-key-at-all-123")
	require.NoError(t, err)
	assert.Contains(t, output, "warning")

	env, err := os.ReadFile(filepath.Join(configDir, config.AIEnvFileName))
	require.NoError(t, err)
	assert.Contains(t, string(env), "export ANTHROPIC_API_KEY='sk-ant-REDACTED'")

	rc, err := os.ReadFile(filepath.Join(home, ".bashrc"))
	require.NoError(t, err)
	assert.Contains(t, string(rc), config.AIEnvFileName)

	output, err = execute(t, "ai", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "sk-a...mnop")
	assert.NotContains(t, output, "sk-ant-REDACTED")

	output, err = execute(t, "ai", "env")
	require.NoError(t, err)
	assert.Contains(t, output, "export OPENAI_API_KEY='not-a-key-at-all-123'")

	_, err = execute(t, "ai", "remove", "codex")
	require.NoError(t, err)
	output, err = execute(t, "ai", "env")
	require.NoError(t, err)
	assert.NotContains(t, output, "OPENAI_API_KEY")
	assert.Contains(t, output, "ANTHROPIC_API_KEY")
}

func TestAISetUnknownTool(t *testing.T) {
	isolate(t)
	_, err := execute(t, "ai", "set", "copilot", "key", "x")
	assert.Error(t, err)
}

func TestAISetReadsPipedValue(t *testing.T) {
	configDir, _ := isolate(t)

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"ai", "set", "gemini-cli", "base-url"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader("https://gemini.example.com\n"))
	require.NoError(t, rootCmd.Execute())

	env, err := os.ReadFile(filepath.Join(configDir, config.AIEnvFileName))
	require.NoError(t, err)
	assert.Contains(t, string(env), "GOOGLE_GEMINI_BASE_URL='https://gemini.example.com'")
}

func TestInstallRequiresComponents(t *testing.T) {
	isolate(t)
	_, err := execute(t, "install")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no components given")
}

func TestInstallUnknownComponent(t *testing.T) {
	isolate(t)
	_, err := execute(t, "--dry-run", "install", "cobol")
	assert.ErrorIs(t, err, component.ErrUnknownComponent)
}

func TestForgetCmd(t *testing.T) {
	isolate(t)
	store, err := state.NewStore(log.New(io.Discard))
	require.NoError(t, err)
	require.NoError(t, store.MarkInstalled("node", "22.1.0", "run-1"))

	output, err := execute(t, "--dry-run", "forget", "node")
	require.NoError(t, err)
	assert.Contains(t, output, "+ forget node")
	_, ok, err := store.Installed("node")
	require.NoError(t, err)
	assert.True(t, ok)

	output, err = execute(t, "forget", "node", "rust")
	require.NoError(t, err)
	assert.Contains(t, output, "Forgot node")
	assert.Contains(t, output, "rust was not recorded")
	_, ok, err = store.Installed("node")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectAll(t *testing.T) {
	cfg := config.NewConfig()
	cfg.AI.Tools = []string{"codex"}
	ids := selectAll(&app{cfg: cfg}, component.Default())

	assert.Contains(t, ids, "node")
	assert.Contains(t, ids, "docker")
	assert.Contains(t, ids, "codex")
	assert.NotContains(t, ids, "claude-code")
	assert.NotContains(t, ids, "gemini-cli")
}

func TestMenuActions(t *testing.T) {
	items := menuItems()
	require.Len(t, items, len(menuActions))

	root := newRootCmd()
	for _, item := range items {
		args, ok := actionArgs(item.ID)
		require.True(t, ok, item.ID)

		cmd, _, err := root.Find(args)
		require.NoError(t, err, item.ID)
		assert.NotEqual(t, root, cmd, item.ID)
	}

	_, ok := actionArgs("nope")
	assert.False(t, ok)
}

func TestGlobalArgs(t *testing.T) {
	a := &app{configPath: "/tmp/c.yaml", verbose: true, dryRun: true}
	assert.Equal(t, []string{"--config", "/tmp/c.yaml", "--verbose", "--dry-run"}, a.globalArgs())
	assert.Empty(t, (&app{}).globalArgs())
}
