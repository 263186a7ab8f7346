package component

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
)

var semver = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

const aptInstall = "DEBIAN_FRONTEND=noninteractive apt-get install -y --no-install-recommends "

// Default returns the built-in component catalog.
func Default() *Registry {
	r := NewRegistry()
	for _, c := range []Component{
		base(), node(), java(), golang(), rust(), cpp(), qt(),
		docker(), codeServer(),
		npmTool("claude-code", "Claude Code", "Anthropic's coding assistant CLI", "claude", "@anthropic-ai/claude-code"),
		npmTool("codex", "Codex CLI", "OpenAI's coding assistant CLI", "codex", "@openai/codex"),
		npmTool("gemini-cli", "Gemini CLI", "Google's coding assistant CLI", "gemini", "@google/gemini-cli"),
	} {
		r.Add(c)
	}
	return r
}

func static(steps ...Step) func(Context) ([]Step, error) {
	return func(Context) ([]Step, error) { return steps, nil }
}

func base() Component {
	return Component{
		ID:             "base",
		Name:           "Base tools",
		Description:    "curl, git, unzip and the compiler toolchain other installs rely on",
		Category:       CategoryBase,
		Binaries:       []string{"git"},
		VersionArgs:    []string{"--version"},
		VersionPattern: regexp.MustCompile(`git version (\d+\.\d+\.\d+)`),
		UsesAPT:        true,
		Steps: static(
			Step{Description: "Refresh package index", Script: "apt-get update", Sudo: true},
			Step{
				Description: "Install base packages",
				Script:      aptInstall + "ca-certificates curl wget git gnupg unzip xz-utils build-essential pkg-config",
				Sudo:        true,
			},
		),
	}
}

func node() Component {
	return Component{
		ID:             "node",
		Name:           "Node.js",
		Description:    "Node.js LTS from NodeSource with npm",
		Category:       CategoryLanguages,
		Binaries:       []string{"node"},
		VersionArgs:    []string{"--version"},
		VersionPattern: regexp.MustCompile(`v(\d+\.\d+\.\d+)`),
		UsesAPT:        true,
		Requires:       []string{"base"},
		Steps: func(ctx Context) ([]Step, error) {
			major := ctx.Config.Toolchains.NodeMajor
			return []Step{
				{
					Description: fmt.Sprintf("Add NodeSource %s.x repository", major),
					Script:      fmt.Sprintf("curl -fsSL https://deb.nodesource.com/setup_%s.x | bash -", major),
					Sudo:        true,
				},
				{Description: "Install nodejs", Script: aptInstall + "nodejs", Sudo: true},
			}, nil
		},
	}
}

func java() Component {
	return Component{
		ID:             "java",
		Name:           "Java",
		Description:    "OpenJDK and Maven",
		Category:       CategoryLanguages,
		Binaries:       []string{"java"},
		VersionArgs:    []string{"-version"},
		VersionPattern: regexp.MustCompile(`version "(\d+[\d.]*)"`),
		UsesAPT:        true,
		Requires:       []string{"base"},
		Steps: func(ctx Context) ([]Step, error) {
			v := ctx.Config.Toolchains.JavaVersion
			return []Step{{
				Description: fmt.Sprintf("Install OpenJDK %s and Maven", v),
				Script:      aptInstall + fmt.Sprintf("openjdk-%s-jdk maven", v),
				Sudo:        true,
			}}, nil
		},
		RCBlock: func(Context) string {
			return `if command -v javac >/dev/null 2>&1; then
  export JAVA_HOME="$(dirname "$(dirname "$(readlink -f "$(command -v javac)")")")"
fi`
		},
	}
}

func golang() Component {
	return Component{
		ID:             "go",
		Name:           "Go",
		Description:    "Go toolchain under /usr/local/go",
		Category:       CategoryLanguages,
		Binaries:       []string{"go"},
		Locations:      []string{"/usr/local/go/bin/go"},
		VersionArgs:    []string{"version"},
		VersionPattern: regexp.MustCompile(`go(\d+\.\d+(?:\.\d+)?)`),
		Requires:       []string{"base"},
		Steps: func(ctx Context) ([]Step, error) {
			tc := ctx.Config.Toolchains
			url := fmt.Sprintf("%s/go%s.linux-%s.tar.gz", strings.TrimRight(tc.GoDownloadBase, "/"), tc.GoVersion, ctx.Platform.GoArch())
			script := fmt.Sprintf(`tmp="$(mktemp)"
curl -fsSL %s -o "$tmp"
rm -rf /usr/local/go
tar -C /usr/local -xzf "$tmp"
rm -f "$tmp"`, executor.Quote(url))
			return []Step{{Description: "Download and unpack Go " + tc.GoVersion, Script: script, Sudo: true}}, nil
		},
		RCBlock: func(Context) string {
			return `export PATH="$PATH:/usr/local/go/bin:$HOME/go/bin"`
		},
	}
}

func rust() Component {
	return Component{
		ID:             "rust",
		Name:           "Rust",
		Description:    "rustup with the configured toolchain",
		Category:       CategoryLanguages,
		Binaries:       []string{"rustc"},
		Locations:      []string{"~/.cargo/bin/rustc"},
		VersionArgs:    []string{"--version"},
		VersionPattern: regexp.MustCompile(`rustc (\d+\.\d+\.\d+)`),
		Requires:       []string{"base"},
		Steps: func(ctx Context) ([]Step, error) {
			toolchain := ctx.Config.Toolchains.RustToolchain
			script := "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y --no-modify-path --default-toolchain " +
				executor.Quote(toolchain)
			if ctx.Platform.OS == "linux" && ctx.Platform.Arch != "" {
				script += " --default-host " + ctx.Platform.RustupArch() + "-unknown-linux-gnu"
			}
			return []Step{{Description: "Install rustup (" + toolchain + ")", Script: script}}, nil
		},
		RCBlock: func(Context) string {
			return `[ -f "$HOME/.cargo/env" ] && . "$HOME/.cargo/env"`
		},
	}
}

func cpp() Component {
	return Component{
		ID:             "cpp",
		Name:           "C/C++",
		Description:    "GCC, Clang, GDB, CMake and Ninja",
		Category:       CategoryLanguages,
		Binaries:       []string{"cmake"},
		VersionArgs:    []string{"--version"},
		VersionPattern: regexp.MustCompile(`cmake version (\d+\.\d+\.\d+)`),
		UsesAPT:        true,
		Requires:       []string{"base"},
		Steps: static(Step{
			Description: "Install C/C++ toolchain",
			Script:      aptInstall + "build-essential gdb cmake ninja-build clang clangd clang-format",
			Sudo:        true,
		}),
	}
}

func qt() Component {
	return Component{
		ID:             "qt",
		Name:           "Qt",
		Description:    "Qt development libraries and Qt Creator",
		Category:       CategoryLanguages,
		Binaries:       []string{"qmake6", "qmake"},
		VersionArgs:    []string{"--version"},
		VersionPattern: regexp.MustCompile(`Qt version (\d+\.\d+\.\d+)`),
		UsesAPT:        true,
		Requires:       []string{"cpp"},
		Steps: func(ctx Context) ([]Step, error) {
			var pkgs string
			switch ctx.Config.Toolchains.QtMajor {
			case "5":
				pkgs = "qtbase5-dev qttools5-dev-tools qt5-qmake qtcreator"
			case "6", "":
				pkgs = "qt6-base-dev qt6-tools-dev qt6-tools-dev-tools qmake6 libgl1-mesa-dev qtcreator"
			default:
				return nil, fmt.Errorf("unsupported Qt major version %q", ctx.Config.Toolchains.QtMajor)
			}
			return []Step{{Description: "Install Qt packages", Script: aptInstall + pkgs, Sudo: true}}, nil
		},
	}
}

func docker() Component {
	return Component{
		ID:             "docker",
		Name:           "Docker",
		Description:    "Docker Engine with the compose plugin",
		Category:       CategoryContainers,
		Binaries:       []string{"docker"},
		VersionArgs:    []string{"--version"},
		VersionPattern: regexp.MustCompile(`Docker version (\d+\.\d+\.\d+)`),
		Requires:       []string{"base"},
		Steps: func(ctx Context) ([]Step, error) {
			steps := []Step{
				{Description: "Install Docker Engine", Script: "curl -fsSL https://get.docker.com | sh", Sudo: true},
				{Description: "Enable docker service", Script: "systemctl enable --now docker || true", Sudo: true},
			}
			if ctx.User != "" && ctx.User != "root" {
				steps = append(steps, Step{
					Description: "Add " + ctx.User + " to the docker group",
					Script:      "usermod -aG docker " + executor.Quote(ctx.User),
					Sudo:        true,
				})
			}
			return steps, nil
		},
	}
}

func codeServer() Component {
	return Component{
		ID:             "code-server",
		Name:           "code-server",
		Description:    "VS Code in the browser, run as a systemd user service",
		Category:       CategoryEditors,
		Binaries:       []string{"code-server"},
		VersionArgs:    []string{"--version"},
		VersionPattern: semver,
		Requires:       []string{"base"},
		Steps: func(ctx Context) ([]Step, error) {
			configYAML, err := CodeServerConfig(ctx.Config.CodeServer)
			if err != nil {
				return nil, err
			}
			// 0600: the file holds the login password
			file := &File{Path: filepath.Join(ctx.Home, ".config", "code-server", "config.yaml"), Data: configYAML, Mode: 0600}

			return []Step{
				{Description: "Install code-server", Script: "curl -fsSL https://code-server.dev/install.sh | sh"},
				{Description: "Write code-server config", File: file},
				{
					Description: "Enable code-server service",
					Script:      "systemctl enable --now code-server@" + executor.Quote(ctx.User),
					Sudo:        true,
				},
			}, nil
		},
	}
}

func npmTool(id, name, desc, binary, pkg string) Component {
	return Component{
		ID:             id,
		Name:           name,
		Description:    desc,
		Category:       CategoryAI,
		Binaries:       []string{binary},
		VersionArgs:    []string{"--version"},
		VersionPattern: semver,
		Requires:       []string{"node"},
		Steps: static(Step{
			Description: "npm install -g " + pkg,
			Script:      "npm install -g " + pkg,
			Sudo:        true,
		}),
	}
}
