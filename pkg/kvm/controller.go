package kvm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cli/browser"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
)

// Status represents the state of the VM container.
type Status string

const (
	StatusRunning    Status = "running"
	StatusStopped    Status = "stopped"
	StatusPaused     Status = "paused"
	StatusRestarting Status = "restarting"
	StatusUnknown    Status = "unknown"
	StatusNotFound   Status = "not-found"
)

// ErrComposeFile is returned when the compose file cannot be read.
var ErrComposeFile = errors.New("compose file not readable")

// Inspector is the part of the Docker API the controller needs.
// *client.Client satisfies it.
type Inspector interface {
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
}

// NewDockerInspector connects to the Docker daemon from the environment
// (DOCKER_HOST and friends). The caller closes the client.
func NewDockerInspector() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return cli, nil
}

// VMStatus is the observed state of the VM container.
type VMStatus struct {
	Service   string
	Container string
	Status    Status
	StartedAt string
	Ports     []PortMapping // live bindings, empty unless running
}

// Controller manages the VM through docker compose and the Docker API.
type Controller struct {
	exec        executor.Executor
	inspector   Inspector
	cfg         config.VMConfig
	composePath string
	logger      *log.Logger

	// Home is where ~/.ssh/config lives.
	Home string
	// DryRun skips file edits; commands are handled by the executor.
	DryRun bool
	Out    io.Writer
	// OpenURL opens the web console. Defaults to the system browser.
	OpenURL func(url string) error
}

// NewController creates a controller for the compose file at composePath.
// inspector may be nil when the Docker API is unavailable; Status then
// reports StatusUnknown.
func NewController(exec executor.Executor, inspector Inspector, cfg config.VMConfig, composePath string, logger *log.Logger) *Controller {
	home, _ := os.UserHomeDir()
	return &Controller{
		exec:        exec,
		inspector:   inspector,
		cfg:         cfg,
		composePath: composePath,
		logger:      logger,
		Home:        home,
		Out:         os.Stdout,
		OpenURL:     browser.OpenURL,
	}
}

// ComposePath returns the compose file the controller drives.
func (c *Controller) ComposePath() string {
	return c.composePath
}

func (c *Controller) readCompose() ([]byte, error) {
	data, err := os.ReadFile(c.composePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrComposeFile, c.composePath, err)
	}
	return data, nil
}

// Service returns the configured compose service, or the first one in the
// compose file.
func (c *Controller) Service() (string, error) {
	if c.cfg.Service != "" {
		return c.cfg.Service, nil
	}
	data, err := c.readCompose()
	if err != nil {
		return "", err
	}
	return FirstService(data)
}

func (c *Controller) compose(ctx context.Context, args ...string) error {
	full := append([]string{"compose", "-f", c.composePath}, args...)
	c.logger.Debug("running", "cmd", executor.CommandString("docker", full...))
	return c.exec.Interactive(ctx, "docker", full...)
}

func (c *Controller) serviceCommand(ctx context.Context, verb string, extra ...string) error {
	svc, err := c.Service()
	if err != nil {
		return err
	}
	args := append([]string{verb}, extra...)
	if err := c.compose(ctx, append(args, svc)...); err != nil {
		return fmt.Errorf("docker compose %s %s: %w", verb, svc, err)
	}
	return nil
}

// Start creates and starts the VM container in the background.
func (c *Controller) Start(ctx context.Context) error {
	return c.serviceCommand(ctx, "up", "-d")
}

// Stop stops the VM container, keeping it and its disk.
func (c *Controller) Stop(ctx context.Context) error {
	return c.serviceCommand(ctx, "stop")
}

// Restart restarts the VM container.
func (c *Controller) Restart(ctx context.Context) error {
	return c.serviceCommand(ctx, "restart")
}

// Down removes the compose project's containers and networks. Named
// volumes are kept.
func (c *Controller) Down(ctx context.Context) error {
	if _, err := c.readCompose(); err != nil {
		return err
	}
	if err := c.compose(ctx, "down"); err != nil {
		return fmt.Errorf("docker compose down: %w", err)
	}
	return nil
}

// Logs streams the container logs. tail <= 0 means all lines.
func (c *Controller) Logs(ctx context.Context, tail int, follow bool) error {
	var extra []string
	if tail > 0 {
		extra = append(extra, "--tail", strconv.Itoa(tail))
	}
	if follow {
		extra = append(extra, "--follow")
	}
	return c.serviceCommand(ctx, "logs", extra...)
}

// ContainerID resolves the VM container: the configured name, then the
// compose container_name, then `docker compose ps -q`. An empty result
// means the container has not been created.
func (c *Controller) ContainerID(ctx context.Context) (string, error) {
	if c.cfg.ContainerName != "" {
		return c.cfg.ContainerName, nil
	}
	data, err := c.readCompose()
	if err != nil {
		return "", err
	}
	svc, err := c.Service()
	if err != nil {
		return "", err
	}
	if name, err := ContainerName(data, svc); err == nil && name != "" {
		return name, nil
	}

	out, err := c.exec.Run(ctx, "docker", "compose", "-f", c.composePath, "ps", "-q", "--all", svc)
	if err != nil {
		return "", fmt.Errorf("docker compose ps: %w", err)
	}
	return firstLine(out), nil
}

// Status inspects the VM container.
func (c *Controller) Status(ctx context.Context) (*VMStatus, error) {
	svc, err := c.Service()
	if err != nil {
		return nil, err
	}
	st := &VMStatus{Service: svc, Status: StatusUnknown}

	id, err := c.ContainerID(ctx)
	if err != nil {
		return st, err
	}
	if id == "" {
		st.Status = StatusNotFound
		return st, nil
	}
	st.Container = id

	if c.inspector == nil {
		return st, nil
	}
	resp, err := c.inspector.ContainerInspect(ctx, id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			st.Status = StatusNotFound
			return st, nil
		}
		return st, fmt.Errorf("inspecting container %s: %w", id, err)
	}

	if base := resp.ContainerJSONBase; base != nil {
		if base.State != nil {
			st.Status = parseStatus(string(base.State.Status))
			st.StartedAt = base.State.StartedAt
		}
		if base.Name != "" {
			st.Container = strings.TrimPrefix(base.Name, "/")
		}
	}
	if resp.NetworkSettings != nil {
		st.Ports = livePorts(resp)
	}
	return st, nil
}

// Ports returns the live port bindings when the VM is running, otherwise
// the ports declared in the compose file.
func (c *Controller) Ports(ctx context.Context) ([]PortMapping, error) {
	st, err := c.Status(ctx)
	if err == nil && st.Status == StatusRunning && len(st.Ports) > 0 {
		return st.Ports, nil
	}
	if err != nil {
		c.logger.Debug("status unavailable, using compose file", "err", err)
	}

	data, rerr := c.readCompose()
	if rerr != nil {
		return nil, rerr
	}
	svc, serr := c.Service()
	if serr != nil {
		return nil, serr
	}
	return ParsePorts(data, svc)
}

// Endpoints resolves the host-side SSH, web console and VNC endpoints.
func (c *Controller) Endpoints(ctx context.Context) (Endpoints, error) {
	mappings, err := c.Ports(ctx)
	if err != nil && !errors.Is(err, ErrNoPorts) {
		return Endpoints{}, err
	}
	return ResolveEndpoints(c.cfg, mappings), nil
}

func parseStatus(s string) Status {
	switch s {
	case "running":
		return StatusRunning
	case "paused":
		return StatusPaused
	case "restarting":
		return StatusRestarting
	case "created", "exited", "dead", "removing":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

func livePorts(resp container.InspectResponse) []PortMapping {
	var out []PortMapping
	for port, bindings := range resp.NetworkSettings.Ports {
		if len(bindings) == 0 {
			continue
		}
		hostPort, err := strconv.Atoi(bindings[0].HostPort)
		if err != nil {
			continue
		}
		out = append(out, PortMapping{
			HostIP:        bindings[0].HostIP,
			HostPort:      hostPort,
			ContainerPort: port.Int(),
			Protocol:      port.Proto(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContainerPort != out[j].ContainerPort {
			return out[i].ContainerPort < out[j].ContainerPort
		}
		return out[i].Protocol < out[j].Protocol
	})
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
