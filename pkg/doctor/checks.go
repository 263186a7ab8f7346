package doctor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/docker/docker/api/types"

	"github.com/jaspreet-dot-casa/devbox/pkg/component"
	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
	"github.com/jaspreet-dot-casa/devbox/pkg/platform"
)

// DaemonClient is the part of the Docker API used to reach the daemon.
// *client.Client satisfies it.
type DaemonClient interface {
	ServerVersion(ctx context.Context) (types.Version, error)
}

// KeyChecker reports whether an AI tool has an API key stored.
type KeyChecker interface {
	HasKey(tool string) (bool, error)
}

// KVMDevice is the device the VM container needs.
const KVMDevice = "/dev/kvm"

var defaultVersionRegex = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?(?:-[a-zA-Z0-9]+)?)`)

// extractVersion extracts version string from command output.
func extractVersion(output string, regex *regexp.Regexp) string {
	if regex == nil {
		regex = defaultVersionRegex
	}
	matches := regex.FindStringSubmatch(output)
	if len(matches) >= 2 {
		return matches[1]
	}
	return ""
}

// CheckDocker checks the docker CLI and, through daemon when available,
// that the daemon answers.
func CheckDocker(ctx context.Context, exec executor.Executor, daemon DaemonClient) Check {
	check := Check{
		ID:          IDDocker,
		Name:        "Docker",
		Description: "Container engine running the VM",
		FixCommand:  GetFixCommand(IDDocker, PlatformLinux),
	}

	if _, err := exec.LookPath("docker"); err != nil {
		check.Status = StatusMissing
		check.Message = "not installed"
		return check
	}

	var (
		version string
		err     error
	)
	if daemon != nil {
		var v types.Version
		v, err = daemon.ServerVersion(ctx)
		version = v.Version
	} else {
		var out string
		out, err = exec.Run(ctx, "docker", "version", "--format", "{{.Server.Version}}")
		version = extractVersion(out, nil)
	}
	if err != nil {
		check.Status = StatusWarning
		check.Message = "installed but daemon not reachable"
		check.FixCommand = GetFixCommand("docker-daemon", PlatformLinux)
		return check
	}

	check.Status = StatusOK
	check.Message = "daemon " + version
	if version == "" {
		check.Message = "daemon running"
	}
	return check
}

// CheckDockerCompose checks for the compose v2 plugin.
func CheckDockerCompose(ctx context.Context, exec executor.Executor) Check {
	check := Check{
		ID:          IDDockerCompose,
		Name:        "docker compose",
		Description: "Runs the VM compose file",
		FixCommand:  GetFixCommand(IDDockerCompose, PlatformLinux),
	}

	if _, err := exec.LookPath("docker"); err != nil {
		check.Status = StatusMissing
		check.Message = "docker not installed"
		return check
	}
	output, err := exec.Run(ctx, "docker", "compose", "version", "--short")
	if err != nil {
		check.Status = StatusMissing
		check.Message = "compose plugin not installed"
		return check
	}

	check.Status = StatusOK
	check.Message = extractVersion(output, nil)
	if check.Message == "" {
		check.Message = "installed"
	}
	return check
}

// CheckAPT checks that apt-based components can be installed.
func CheckAPT(host platform.Info) Check {
	check := Check{
		ID:          IDAPT,
		Name:        "apt",
		Description: "Package manager for the base toolchains",
	}
	if !host.HasAPT() {
		check.Status = StatusError
		check.Message = "apt-get not available on " + host.Name() + "; only Debian and Ubuntu hosts are supported"
		return check
	}
	check.Status = StatusOK
	check.Message = host.Name()
	return check
}

// CheckKVM checks that the KVM device exists.
func CheckKVM(exec executor.Executor) Check {
	check := Check{
		ID:          IDKVM,
		Name:        "KVM",
		Description: "Hardware virtualization for the VM",
		FixCommand:  GetFixCommand(IDKVM, PlatformLinux),
	}

	if !exec.FileExists(KVMDevice) {
		check.Status = StatusMissing
		check.Message = KVMDevice + " not found (enable virtualization in firmware)"
		return check
	}
	check.Status = StatusOK
	check.Message = KVMDevice
	return check
}

// CheckSudo checks that system changes can be made.
func CheckSudo(ctx context.Context, exec executor.Executor, isRoot bool) Check {
	check := Check{
		ID:          IDSudo,
		Name:        "sudo",
		Description: "Privileges for system packages and config",
	}

	if isRoot {
		check.Status = StatusOK
		check.Message = "running as root"
		return check
	}
	if _, err := exec.LookPath("sudo"); err != nil {
		check.Status = StatusMissing
		check.Message = "not installed (install it as root)"
		return check
	}
	if _, err := exec.Run(ctx, "sudo", "-n", "true"); err != nil {
		check.Status = StatusWarning
		check.Message = "available (will prompt for a password)"
		return check
	}
	check.Status = StatusOK
	check.Message = "passwordless"
	return check
}

// CheckComponent reports whether a catalog component is installed.
func CheckComponent(ctx context.Context, detector *component.Detector, c component.Component) Check {
	check := Check{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
	}

	det := detector.Detect(ctx, c)
	if !det.Installed {
		check.Status = StatusMissing
		check.Message = "not installed"
		check.FixCommand = InstallFix(c.ID)
		return check
	}

	check.Status = StatusOK
	switch {
	case det.Version != "":
		check.Message = det.Version
	default:
		check.Message = "installed"
	}
	return check
}

// CheckAIKey reports whether tool has an API key stored.
func CheckAIKey(keys KeyChecker, tool string) Check {
	check := Check{
		ID:          tool + "-key",
		Name:        tool + " API key",
		Description: "Credential exported to the shell for " + tool,
	}

	if keys == nil {
		check.Status = StatusWarning
		check.Message = "secret store unavailable"
		return check
	}

	ok, err := keys.HasKey(tool)
	switch {
	case err != nil:
		check.Status = StatusError
		check.Message = err.Error()
	case ok:
		check.Status = StatusOK
		check.Message = "configured"
	default:
		// Keys are entered interactively, so there is no automatic fix.
		check.Status = StatusWarning
		check.Message = fmt.Sprintf("not configured (run: devbox ai set %s key)", tool)
	}
	return check
}

// InstallFix is the fix for a missing catalog component.
func InstallFix(id string) *FixCommand {
	return &FixCommand{
		Description: "Install with devbox",
		Command:     "devbox install " + id,
	}
}

func isDevboxCommand(cmd string) bool {
	return strings.HasPrefix(cmd, "devbox ")
}
