// Package config provides configuration management for devbox.
// Configuration is stored at ~/.config/devbox/config.yaml and covers
// package mirrors, toolchain versions, code-server, AI assistants and the
// KVM-in-Docker VM.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Version is the current config schema version.
const Version = "1.0"

var (
	// ErrNotInitialized is returned when the config file doesn't exist.
	ErrNotInitialized = errors.New("devbox not initialized: run 'devbox init' first")
)

// Config represents the devbox configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Mirrors    MirrorConfig     `yaml:"mirrors"`
	Toolchains ToolchainConfig  `yaml:"toolchains"`
	CodeServer CodeServerConfig `yaml:"code_server"`
	AI         AIConfig         `yaml:"ai"`
	VM         VMConfig         `yaml:"vm"`
	Log        LogConfig        `yaml:"log"`
}

// MirrorConfig holds package mirror settings. Empty values mean upstream.
type MirrorConfig struct {
	APT           string   `yaml:"apt,omitempty" env:"DEVBOX_APT_MIRROR"`                 // e.g. https://mirrors.tuna.tsinghua.edu.cn/ubuntu
	PipIndex      string   `yaml:"pip_index,omitempty" env:"DEVBOX_PIP_INDEX"`            // e.g. https://pypi.tuna.tsinghua.edu.cn/simple
	NpmRegistry   string   `yaml:"npm_registry,omitempty" env:"DEVBOX_NPM_REGISTRY"`      // e.g. https://registry.npmmirror.com
	GoProxy       string   `yaml:"go_proxy,omitempty" env:"DEVBOX_GOPROXY"`               // e.g. https://goproxy.cn
	RustupDist    string   `yaml:"rustup_dist_server,omitempty" env:"DEVBOX_RUSTUP_DIST_SERVER"`
	RustupUpdate  string   `yaml:"rustup_update_root,omitempty" env:"DEVBOX_RUSTUP_UPDATE_ROOT"`
	CratesMirror  string   `yaml:"crates_mirror,omitempty" env:"DEVBOX_CRATES_MIRROR"`   // sparse index URL
	DockerMirrors []string `yaml:"docker_mirrors,omitempty" env:"DEVBOX_DOCKER_MIRROR" envSeparator:","`
}

// ToolchainConfig holds language toolchain versions.
type ToolchainConfig struct {
	NodeMajor      string `yaml:"node_major"`       // NodeSource major, e.g. "22"
	JavaVersion    string `yaml:"java_version"`     // OpenJDK package version, e.g. "17"
	GoVersion      string `yaml:"go_version"`       // e.g. "1.23.4"
	GoDownloadBase string `yaml:"go_download_base"` // tarball base URL
	RustToolchain  string `yaml:"rust_toolchain"`   // e.g. "stable"
	QtMajor        string `yaml:"qt_major"`         // "5" or "6"
}

// CodeServerConfig holds code-server settings.
type CodeServerConfig struct {
	BindAddr string `yaml:"bind_addr"`
	Port     int    `yaml:"port"`
	Auth     string `yaml:"auth"` // "password" or "none"
	Password string `yaml:"password,omitempty"`
}

// AIConfig holds AI assistant settings.
type AIConfig struct {
	Tools []string `yaml:"tools"` // Component IDs of AI CLIs to install
}

// VMConfig holds KVM-in-Docker VM settings.
type VMConfig struct {
	ComposeFile   string `yaml:"compose_file" env:"DEVBOX_VM_COMPOSE_FILE"`
	Service       string `yaml:"service,omitempty"`        // Compose service; first service when empty
	ContainerName string `yaml:"container_name,omitempty"` // Overrides compose container_name
	Host          string `yaml:"host"`
	User          string `yaml:"user" env:"DEVBOX_VM_USER"`
	IdentityFile  string `yaml:"identity_file,omitempty"`
	SSHAlias      string `yaml:"ssh_alias"`
	RemotePath    string `yaml:"remote_path"`
	SSHGuestPort  int    `yaml:"ssh_guest_port"`
	WebGuestPort  int    `yaml:"web_guest_port"`
	VNCGuestPort  int    `yaml:"vnc_guest_port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"DEVBOX_LOG_LEVEL"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: Version,
		Toolchains: ToolchainConfig{
			NodeMajor:      "22",
			JavaVersion:    "17",
			GoVersion:      "1.23.4",
			GoDownloadBase: "https://go.dev/dl",
			RustToolchain:  "stable",
			QtMajor:        "6",
		},
		CodeServer: CodeServerConfig{
			BindAddr: "0.0.0.0",
			Port:     8080,
			Auth:     "password",
		},
		AI: AIConfig{
			Tools: []string{"claude-code", "codex", "gemini-cli"},
		},
		VM: VMConfig{
			ComposeFile:  "docker-compose.yml",
			Host:         "localhost",
			User:         "root",
			SSHAlias:     "devbox-vm",
			RemotePath:   "/root",
			SSHGuestPort: 22,
			WebGuestPort: 8006,
			VNCGuestPort: 5900,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads the config from ~/.config/devbox/config.yaml.
// Returns ErrNotInitialized if the file doesn't exist.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the config from an explicit path. Missing fields keep
// their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version == "" {
		cfg.Version = Version
	}

	return cfg, nil
}

// LoadOrCreate loads the config if it exists, or returns defaults.
// Unlike Load(), this doesn't require the config to be initialized.
func LoadOrCreate(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg, err = Load()
	} else {
		cfg, err = LoadFrom(path)
	}
	if err != nil {
		if errors.Is(err, ErrNotInitialized) {
			return NewConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save saves the config to ~/.config/devbox/config.yaml.
func (c *Config) Save() error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	return c.SaveTo(configPath)
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may carry the code-server password
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ComposePath resolves the VM compose file. Relative paths are resolved
// against baseDir.
func (c *Config) ComposePath(baseDir string) string {
	p := c.VM.ComposeFile
	if p == "" {
		p = "docker-compose.yml"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// HasAITool reports whether the AI tool is enabled.
func (c *Config) HasAITool(id string) bool {
	for _, t := range c.AI.Tools {
		if t == id {
			return true
		}
	}
	return false
}
