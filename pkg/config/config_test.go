package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, "22", cfg.Toolchains.NodeMajor)
	assert.Equal(t, 8080, cfg.CodeServer.Port)
	assert.Equal(t, 22, cfg.VM.SSHGuestPort)
	assert.Equal(t, 8006, cfg.VM.WebGuestPort)
	assert.Equal(t, "devbox-vm", cfg.VM.SSHAlias)
	assert.Empty(t, cfg.Mirrors.APT)
	assert.True(t, cfg.HasAITool("codex"))
	assert.False(t, cfg.HasAITool("unknown"))
}

func TestLoad_NotInitialized(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := Load()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := NewConfig()
	cfg.Mirrors.APT = "https://mirrors.tuna.tsinghua.edu.cn/ubuntu"
	cfg.VM.User = "dev"
	require.NoError(t, cfg.Save())

	path, err := ConfigPath()
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Mirrors.APT, loaded.Mirrors.APT)
	assert.Equal(t, "dev", loaded.VM.User)
	assert.Equal(t, 8006, loaded.VM.WebGuestPort)
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mirrors:\n  pip_index: https://pypi.example.com/simple\n"), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "https://pypi.example.com/simple", cfg.Mirrors.PipIndex)
	assert.Equal(t, "22", cfg.Toolchains.NodeMajor)
	assert.Equal(t, Version, cfg.Version)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mirrors: [unterminated"), 0600))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadOrCreate_ReturnsDefaults(t *testing.T) {
	cfg, err := LoadOrCreate(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DEVBOX_APT_MIRROR", "https://mirrors.aliyun.com/ubuntu")
	t.Setenv("DEVBOX_DOCKER_MIRROR", "https://a.example.com,https://b.example.com")
	t.Setenv("DEVBOX_VM_USER", "ubuntu")

	cfg := NewConfig()
	cfg.Mirrors.PipIndex = "https://pypi.example.com/simple"
	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, "https://mirrors.aliyun.com/ubuntu", cfg.Mirrors.APT)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Mirrors.DockerMirrors)
	assert.Equal(t, "ubuntu", cfg.VM.User)
	// untouched by env
	assert.Equal(t, "https://pypi.example.com/simple", cfg.Mirrors.PipIndex)
	assert.Equal(t, "docker-compose.yml", cfg.VM.ComposeFile)
}

func TestComposePath(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, filepath.Join("/work", "docker-compose.yml"), cfg.ComposePath("/work"))

	cfg.VM.ComposeFile = "/opt/vm/compose.yaml"
	assert.Equal(t, "/opt/vm/compose.yaml", cfg.ComposePath("/work"))
}

func TestConfigDir_RespectsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "devbox"), got)

	require.NoError(t, EnsureConfigDir())
	stateDir, err := StateDir()
	require.NoError(t, err)
	assert.DirExists(t, stateDir)
}
