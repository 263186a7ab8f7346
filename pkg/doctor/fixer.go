package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
)

// Platform constants.
const (
	PlatformDarwin = "darwin"
	PlatformLinux  = "linux"
)

// fixCommands defines platform-specific fix commands for host checks.
var fixCommands = map[string]map[string]*FixCommand{
	IDDocker: {
		PlatformLinux: {
			Description: "Install Docker Engine",
			Command:     "devbox install docker",
			Platform:    PlatformLinux,
		},
	},
	"docker-daemon": {
		PlatformLinux: {
			Description: "Start the Docker daemon",
			Command:     "systemctl enable --now docker",
			Sudo:        true,
			Platform:    PlatformLinux,
		},
	},
	IDDockerCompose: {
		PlatformLinux: {
			Description: "Install the compose plugin",
			Command:     "apt-get install -y docker-compose-plugin",
			Sudo:        true,
			Platform:    PlatformLinux,
		},
	},
	IDKVM: {
		PlatformLinux: {
			Description: "Load the KVM kernel module",
			Command:     "modprobe kvm_intel || modprobe kvm_amd",
			Sudo:        true,
			Platform:    PlatformLinux,
		},
	},
}

// GetFixCommand returns the fix command for a tool on the given platform.
func GetFixCommand(toolID, platform string) *FixCommand {
	toolFixes, ok := fixCommands[toolID]
	if !ok {
		return nil
	}

	fix, ok := toolFixes[platform]
	if !ok {
		return nil
	}

	return fix
}

// Fixer provides functionality to run fix commands.
type Fixer struct {
	executor executor.Executor
	self     string
	args     []string
	isRoot   bool
}

// NewFixer creates a Fixer. "devbox ..." fixes run the current binary with
// globalArgs, so they see the same config file and flags.
func NewFixer(exec executor.Executor, isRoot bool, globalArgs ...string) *Fixer {
	self, err := os.Executable()
	if err != nil {
		self = "devbox"
	}
	return &Fixer{
		executor: exec,
		self:     self,
		args:     globalArgs,
		isRoot:   isRoot,
	}
}

// Script returns the shell script RunFix executes for fix.
func (f *Fixer) Script(fix *FixCommand) string {
	script := fix.Command
	if isDevboxCommand(script) {
		script = executor.CommandString(f.self, f.args...) + script[len("devbox"):]
	}
	if fix.Sudo {
		script = executor.SudoWrap(script, f.isRoot)
	}
	return script
}

// RunFix executes a fix command.
func (f *Fixer) RunFix(ctx context.Context, fix *FixCommand) error {
	if fix == nil {
		return fmt.Errorf("no fix command available")
	}

	if err := f.executor.Shell(ctx, f.Script(fix), nil); err != nil {
		return fmt.Errorf("fix failed: %s: %w", fix, err)
	}
	return nil
}
