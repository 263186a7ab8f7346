package kvm

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/shellrc"
)

// Endpoints are the host-side addresses of the VM services.
type Endpoints struct {
	Host    string
	SSHPort int
	WebPort int
	VNCPort int
}

// ResolveEndpoints maps the guest SSH, web console and VNC ports through
// the published mappings. Unmapped services keep their guest port.
func ResolveEndpoints(cfg config.VMConfig, mappings []PortMapping) Endpoints {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	resolve := func(guest, fallback int) int {
		if guest == 0 {
			guest = fallback
		}
		if p, ok := HostPortFor(mappings, guest); ok {
			return p
		}
		return guest
	}
	return Endpoints{
		Host:    host,
		SSHPort: resolve(cfg.SSHGuestPort, 22),
		WebPort: resolve(cfg.WebGuestPort, 8006),
		VNCPort: resolve(cfg.VNCGuestPort, 5900),
	}
}

func (e Endpoints) SSHAddr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.SSHPort))
}

func (e Endpoints) VNCAddr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.VNCPort))
}

// WebURL is the noVNC web console.
func (e Endpoints) WebURL() string {
	return "http://" + net.JoinHostPort(e.Host, strconv.Itoa(e.WebPort)) + "/"
}

// WaitForSSH polls addr until the server sends an SSH identification
// banner or the timeout expires.
func WaitForSSH(ctx context.Context, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	const interval = 2 * time.Second
	var lastErr error
	for {
		if lastErr = probeSSH(ctx, addr); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ssh on %s not ready after %s: %w", addr, timeout, lastErr)
		case <-time.After(interval):
		}
	}
}

func probeSSH(ctx context.Context, addr string) error {
	d := net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("no banner: %w", err)
	}
	if !strings.HasPrefix(line, "SSH-") {
		return fmt.Errorf("unexpected banner %q", strings.TrimSpace(line))
	}
	return nil
}

// Wait blocks until the VM answers on its SSH port.
func (c *Controller) Wait(ctx context.Context, timeout time.Duration) error {
	ep, err := c.Endpoints(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("waiting for ssh", "addr", ep.SSHAddr(), "timeout", timeout)
	return WaitForSSH(ctx, ep.SSHAddr(), timeout)
}

// SSHArgs builds the ssh command line for the VM. extra is appended after
// the destination so it can carry a remote command.
func (c *Controller) SSHArgs(ep Endpoints, extra ...string) []string {
	args := []string{"-p", strconv.Itoa(ep.SSHPort), "-o", "StrictHostKeyChecking=accept-new"}
	if c.cfg.IdentityFile != "" {
		args = append(args, "-i", c.expandHome(c.cfg.IdentityFile))
	}
	args = append(args, c.user()+"@"+ep.Host)
	return append(args, extra...)
}

// SSH opens an interactive ssh session to the VM.
func (c *Controller) SSH(ctx context.Context, extra ...string) error {
	if _, err := c.exec.LookPath("ssh"); err != nil {
		return fmt.Errorf("ssh client not found: %w", err)
	}
	ep, err := c.Endpoints(ctx)
	if err != nil {
		return err
	}
	return c.exec.Interactive(ctx, "ssh", c.SSHArgs(ep, extra...)...)
}

// VNC opens the web console in the browser, or runs vncviewer against the
// raw VNC port when viewer is set.
func (c *Controller) VNC(ctx context.Context, viewer bool) error {
	ep, err := c.Endpoints(ctx)
	if err != nil {
		return err
	}
	if viewer {
		if _, err := c.exec.LookPath("vncviewer"); err != nil {
			return fmt.Errorf("vncviewer not found; install a VNC client or use the web console at %s", ep.WebURL())
		}
		return c.exec.Interactive(ctx, "vncviewer", fmt.Sprintf("%s::%d", ep.Host, ep.VNCPort))
	}

	url := ep.WebURL()
	if c.DryRun {
		fmt.Fprintf(c.Out, "+ open %s\n", url)
		return nil
	}
	c.logger.Info("opening web console", "url", url)
	if err := c.OpenURL(url); err != nil {
		return fmt.Errorf("opening %s: %w (open it manually)", url, err)
	}
	return nil
}

// SSHConfigBlock renders the ~/.ssh/config Host entry for the VM.
func (c *Controller) SSHConfigBlock(ep Endpoints) string {
	lines := []string{
		"Host " + c.alias(),
		"  HostName " + ep.Host,
		"  Port " + strconv.Itoa(ep.SSHPort),
		"  User " + c.user(),
	}
	if c.cfg.IdentityFile != "" {
		lines = append(lines, "  IdentityFile "+c.expandHome(c.cfg.IdentityFile))
	}
	lines = append(lines, "  StrictHostKeyChecking accept-new")
	return strings.Join(lines, "\n")
}

// VSCode writes the VM's Host entry to ~/.ssh/config and opens path in
// VS Code over Remote-SSH. An empty path opens the configured remote path.
func (c *Controller) VSCode(ctx context.Context, path string) error {
	if path == "" {
		path = c.cfg.RemotePath
	}
	ep, err := c.Endpoints(ctx)
	if err != nil {
		return err
	}

	sshConfig := filepath.Join(c.Home, ".ssh", "config")
	block := c.SSHConfigBlock(ep)
	if c.DryRun {
		fmt.Fprintf(c.Out, "+ update %s (Host %s)\n", sshConfig, c.alias())
	} else {
		if err := os.MkdirAll(filepath.Dir(sshConfig), 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(sshConfig), err)
		}
		changed, err := shellrc.ApplyFile(sshConfig, "vm-"+c.alias(), block)
		if err != nil {
			return err
		}
		if changed {
			c.logger.Info("updated ssh config", "path", sshConfig, "host", c.alias())
		}
	}

	if _, err := c.exec.LookPath("code"); err != nil {
		return fmt.Errorf("VS Code CLI 'code' not found; connect to host %q with Remote-SSH manually", c.alias())
	}
	if err := c.exec.Interactive(ctx, "code", "--remote", "ssh-remote+"+c.alias(), path); err != nil {
		return fmt.Errorf("code --remote: %w", err)
	}
	return nil
}

func (c *Controller) alias() string {
	if c.cfg.SSHAlias != "" {
		return c.cfg.SSHAlias
	}
	return "devbox-vm"
}

func (c *Controller) user() string {
	if c.cfg.User != "" {
		return c.cfg.User
	}
	return "root"
}

func (c *Controller) expandHome(p string) string {
	if p == "~" {
		return c.Home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(c.Home, p[2:])
	}
	return p
}
