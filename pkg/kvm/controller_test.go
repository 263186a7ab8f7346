package kvm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/executor/executortest"
)

type fakeInspector struct {
	resp   container.InspectResponse
	err    error
	lastID string
}

func (f *fakeInspector) ContainerInspect(_ context.Context, id string) (container.InspectResponse, error) {
	f.lastID = id
	return f.resp, f.err
}

func runningResponse() container.InspectResponse {
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			Name:  "/devbox-vm",
			State: &container.State{Status: "running", StartedAt: "2026-10-01T10:00:00Z"},
		},
		NetworkSettings: &container.NetworkSettings{
			NetworkSettingsBase: container.NetworkSettingsBase{
				Ports: nat.PortMap{
					"22/tcp":   []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "2201"}},
					"8006/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "8006"}},
					"5900/tcp": nil,
				},
			},
		},
	}
}

func newTestController(t *testing.T, compose string, exec *executortest.MockExecutor, insp Inspector) *Controller {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte(compose), 0644))

	cfg := config.NewConfig().VM
	c := NewController(exec, insp, cfg, path, log.New(io.Discard))
	c.Home = t.TempDir()
	c.Out = io.Discard
	return c
}

func TestController_Lifecycle(t *testing.T) {
	exec := &executortest.MockExecutor{}
	c := newTestController(t, sampleCompose, exec, nil)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Restart(ctx))
	require.NoError(t, c.Logs(ctx, 50, true))
	require.NoError(t, c.Down(ctx))

	path := c.ComposePath()
	calls := exec.Calls()
	require.Len(t, calls, 5)
	for _, call := range calls {
		assert.Equal(t, "docker", call.Name)
		assert.Equal(t, []string{"compose", "-f", path}, call.Args[:3])
	}
	assert.Equal(t, []string{"up", "-d", "vm"}, calls[0].Args[3:])
	assert.Equal(t, []string{"stop", "vm"}, calls[1].Args[3:])
	assert.Equal(t, []string{"restart", "vm"}, calls[2].Args[3:])
	assert.Equal(t, []string{"logs", "--tail", "50", "--follow", "vm"}, calls[3].Args[3:])
	assert.Equal(t, []string{"down"}, calls[4].Args[3:])
}

func TestController_StartFailure(t *testing.T) {
	exec := &executortest.MockExecutor{
		InteractiveFunc: func(string, ...string) error { return errors.New("exit status 1") },
	}
	c := newTestController(t, sampleCompose, exec, nil)

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker compose up vm")
}

func TestController_MissingComposeFile(t *testing.T) {
	c := NewController(&executortest.MockExecutor{}, nil, config.VMConfig{}, filepath.Join(t.TempDir(), "nope.yml"), log.New(io.Discard))

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrComposeFile)
}

func TestController_StatusRunning(t *testing.T) {
	insp := &fakeInspector{resp: runningResponse()}
	c := newTestController(t, sampleCompose, &executortest.MockExecutor{}, insp)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "devbox-vm", insp.lastID)
	assert.Equal(t, StatusRunning, st.Status)
	assert.Equal(t, "devbox-vm", st.Container)
	assert.Equal(t, []PortMapping{
		{HostIP: "0.0.0.0", HostPort: 2201, ContainerPort: 22, Protocol: "tcp"},
		{HostIP: "0.0.0.0", HostPort: 8006, ContainerPort: 8006, Protocol: "tcp"},
	}, st.Ports)
}

func TestController_StatusNotFound(t *testing.T) {
	insp := &fakeInspector{err: fmt.Errorf("no such container: %w", errdefs.ErrNotFound)}
	c := newTestController(t, sampleCompose, &executortest.MockExecutor{}, insp)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, st.Status)
}

func TestController_StatusNotCreated(t *testing.T) {
	compose := "services:\n  vm:\n    ports:\n      - 2222:22\n"
	var psArgs []string
	exec := &executortest.MockExecutor{
		RunFunc: func(name string, args ...string) (string, error) {
			psArgs = args
			return "\n", nil
		},
	}
	c := newTestController(t, compose, exec, &fakeInspector{})

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, st.Status)
	assert.Contains(t, psArgs, "ps")
}

func TestController_StatusInspectError(t *testing.T) {
	insp := &fakeInspector{err: errors.New("daemon not reachable")}
	c := newTestController(t, sampleCompose, &executortest.MockExecutor{}, insp)

	st, err := c.Status(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusUnknown, st.Status)
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusRunning, parseStatus("running"))
	assert.Equal(t, StatusStopped, parseStatus("exited"))
	assert.Equal(t, StatusStopped, parseStatus("created"))
	assert.Equal(t, StatusPaused, parseStatus("paused"))
	assert.Equal(t, StatusUnknown, parseStatus("weird"))
}

func TestController_PortsFallsBackToCompose(t *testing.T) {
	resp := runningResponse()
	resp.State.Status = "exited"
	c := newTestController(t, sampleCompose, &executortest.MockExecutor{}, &fakeInspector{resp: resp})

	ports, err := c.Ports(context.Background())
	require.NoError(t, err)
	p, ok := HostPortFor(ports, 22)
	require.True(t, ok)
	assert.Equal(t, 2222, p)
}

func TestResolveEndpoints(t *testing.T) {
	cfg := config.NewConfig().VM
	ep := ResolveEndpoints(cfg, []PortMapping{
		{HostPort: 2222, ContainerPort: 22, Protocol: "tcp"},
		{HostPort: 18006, ContainerPort: 8006, Protocol: "tcp"},
		{HostPort: 5901, ContainerPort: 5900, Protocol: "udp"},
	})

	assert.Equal(t, Endpoints{Host: "localhost", SSHPort: 2222, WebPort: 18006, VNCPort: 5900}, ep)
	assert.Equal(t, "localhost:2222", ep.SSHAddr())
	assert.Equal(t, "http://localhost:18006/", ep.WebURL())
	assert.Equal(t, "localhost:5900", ep.VNCAddr())
}

func TestController_SSH(t *testing.T) {
	exec := &executortest.MockExecutor{Paths: map[string]string{"ssh": "/usr/bin/ssh"}}
	c := newTestController(t, sampleCompose, exec, nil)
	c.cfg.IdentityFile = "~/.ssh/vm_ed25519"

	require.NoError(t, c.SSH(context.Background(), "uptime"))

	calls := exec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "ssh", calls[0].Name)
	assert.Equal(t, []string{
		"-p", "2222", "-o", "StrictHostKeyChecking=accept-new",
		"-i", filepath.Join(c.Home, ".ssh", "vm_ed25519"),
		"root@localhost", "uptime",
	}, calls[0].Args)
}

func TestController_SSHMissingClient(t *testing.T) {
	c := newTestController(t, sampleCompose, &executortest.MockExecutor{}, nil)
	assert.Error(t, c.SSH(context.Background()))
}

func TestController_VNC(t *testing.T) {
	var opened string
	c := newTestController(t, sampleCompose, &executortest.MockExecutor{}, nil)
	c.OpenURL = func(url string) error {
		opened = url
		return nil
	}

	require.NoError(t, c.VNC(context.Background(), false))
	assert.Equal(t, "http://localhost:8006/", opened)

	assert.Error(t, c.VNC(context.Background(), true))

	exec := &executortest.MockExecutor{Paths: map[string]string{"vncviewer": "/usr/bin/vncviewer"}}
	c = newTestController(t, sampleCompose, exec, nil)
	require.NoError(t, c.VNC(context.Background(), true))
	assert.Equal(t, []string{"localhost::5900"}, exec.Calls()[0].Args)
}

func TestController_VSCode(t *testing.T) {
	var codeArgs []string
	exec := &executortest.MockExecutor{
		Paths: map[string]string{"code": "/usr/bin/code"},
		InteractiveFunc: func(name string, args ...string) error {
			codeArgs = append([]string{name}, args...)
			return nil
		},
	}
	c := newTestController(t, sampleCompose, exec, nil)

	sshConfig := filepath.Join(c.Home, ".ssh", "config")
	require.NoError(t, os.MkdirAll(filepath.Dir(sshConfig), 0700))
	require.NoError(t, os.WriteFile(sshConfig, []byte("Host github.com\n  User git\n"), 0600))

	require.NoError(t, c.VSCode(context.Background(), ""))
	assert.Equal(t, []string{"code", "--remote", "ssh-remote+devbox-vm", "/root"}, codeArgs)

	data, err := os.ReadFile(sshConfig)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "Host github.com\n"))
	assert.Contains(t, content, "Host devbox-vm\n  HostName localhost\n  Port 2222\n  User root\n")

	// Running again leaves one block.
	require.NoError(t, c.VSCode(context.Background(), "/srv"))
	data, err = os.ReadFile(sshConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "Host devbox-vm"))
	assert.Equal(t, "/srv", codeArgs[len(codeArgs)-1])
}

func TestController_VSCodeDryRun(t *testing.T) {
	exec := &executortest.MockExecutor{Paths: map[string]string{"code": "/usr/bin/code"}}
	c := newTestController(t, sampleCompose, exec, nil)
	c.DryRun = true

	require.NoError(t, c.VSCode(context.Background(), ""))
	_, err := os.Stat(filepath.Join(c.Home, ".ssh", "config"))
	assert.True(t, os.IsNotExist(err))
}

func serveBanner(t *testing.T, banner string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte(banner))
			conn.Close()
		}
	}()
	return ln.Addr().String()
}

func TestWaitForSSH(t *testing.T) {
	addr := serveBanner(t, "SSH-2.0-OpenSSH_9.6\r\n")
	assert.NoError(t, WaitForSSH(context.Background(), addr, 5*time.Second))
}

func TestWaitForSSH_WrongService(t *testing.T) {
	addr := serveBanner(t, "HTTP/1.1 400 Bad Request\r\n")

	err := WaitForSSH(context.Background(), addr, 200*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected banner")
}
