package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/devbox/pkg/kvm"
	"github.com/jaspreet-dot-casa/devbox/pkg/project"
	"github.com/jaspreet-dot-casa/devbox/pkg/ui"
)

// composePath resolves vm.compose_file. A relative path is looked up in
// the current directory and then its parents.
func (a *app) composePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	file := a.cfg.VM.ComposeFile
	if file == "" || filepath.IsAbs(file) {
		return a.cfg.ComposePath(cwd), nil
	}
	return project.ResolveFile(cwd, file), nil
}

// vmCommand runs fn with a controller for the configured compose file.
// The Docker client is closed afterwards.
func vmCommand(a *app, fn func(ctx context.Context, c *kvm.Controller) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		composePath, err := a.composePath()
		if err != nil {
			return err
		}

		var inspector kvm.Inspector
		cli, err := kvm.NewDockerInspector()
		if err != nil {
			a.logger.Debug("docker api unavailable", "err", err)
		} else {
			defer cli.Close()
			inspector = cli
		}

		c := kvm.NewController(a.exec, inspector, a.cfg.VM, composePath, a.logger)
		c.DryRun = a.dryRun
		c.Out = a.out
		return fn(cmd.Context(), c)
	}
}

func newVMCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vm",
		Short: "Control the KVM virtual machine",
		Long: `Control the KVM virtual machine that runs inside Docker Compose.

The compose file is vm.compose_file from the config, resolved against the
current directory. Ports are read from the running container, or from the
compose file when it is stopped.`,
	}

	cmd.AddCommand(
		newVMStartCmd(a),
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the VM container",
			Args:  cobra.NoArgs,
			RunE: vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
				return c.Stop(ctx)
			}),
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Restart the VM container",
			Args:  cobra.NoArgs,
			RunE: vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
				return c.Restart(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Remove the VM containers and network",
			Args:  cobra.NoArgs,
			RunE: vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
				return c.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the VM state and endpoints",
			Args:  cobra.NoArgs,
			RunE: vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
				return runVMStatus(ctx, a, c)
			}),
		},
		&cobra.Command{
			Use:   "ports",
			Short: "List the published ports",
			Args:  cobra.NoArgs,
			RunE: vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
				ports, err := c.Ports(ctx)
				if err != nil {
					return err
				}
				for _, p := range ports {
					fmt.Fprintln(a.out, p.String())
				}
				return nil
			}),
		},
		newVMSSHCmd(a),
		newVMVNCCmd(a),
		newVMVSCodeCmd(a),
		newVMWaitCmd(a),
		newVMLogsCmd(a),
	)
	return cmd
}

func newVMStartCmd(a *app) *cobra.Command {
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the VM container",
		Args:  cobra.NoArgs,
		RunE: vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
			if err := c.Start(ctx); err != nil {
				return err
			}
			if !wait || a.dryRun {
				return nil
			}
			if err := c.Wait(ctx, timeout); err != nil {
				return err
			}
			fmt.Fprintln(a.out, ui.SuccessStyle.Render("VM is accepting SSH connections"))
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until SSH answers")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for SSH")
	return cmd
}

func runVMStatus(ctx context.Context, a *app, c *kvm.Controller) error {
	st, err := c.Status(ctx)
	if err != nil {
		if st == nil {
			return err
		}
		a.logger.Warn("could not inspect container", "err", err)
	}

	const width = 10
	fmt.Fprintln(a.out, ui.KeyValue("Compose", c.ComposePath(), width))
	fmt.Fprintln(a.out, ui.KeyValue("Service", st.Service, width))
	if st.Container != "" {
		fmt.Fprintln(a.out, ui.KeyValue("Container", st.Container, width))
	}
	fmt.Fprintln(a.out, ui.KeyValue("Status", ui.RenderStatus(string(st.Status)), width))
	if st.StartedAt != "" && st.Status == kvm.StatusRunning {
		fmt.Fprintln(a.out, ui.KeyValue("Started", st.StartedAt, width))
	}

	ep, err := c.Endpoints(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, ui.KeyValue("SSH", ep.SSHAddr(), width))
	fmt.Fprintln(a.out, ui.KeyValue("Console", ep.WebURL(), width))
	fmt.Fprintln(a.out, ui.KeyValue("VNC", ep.VNCAddr(), width))
	return nil
}

func newVMSSHCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ssh [-- command...]",
		Short: "Open an SSH session to the VM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
				return c.SSH(ctx, args...)
			})(cmd, args)
		},
	}
}

func newVMVNCCmd(a *app) *cobra.Command {
	var viewer bool

	cmd := &cobra.Command{
		Use:   "vnc",
		Short: "Open the VM console",
		Long: `Open the web console in the browser. With --viewer, run a local
vncviewer against the VNC port instead.`,
		Args: cobra.NoArgs,
		RunE: vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
			return c.VNC(ctx, viewer)
		}),
	}

	cmd.Flags().BoolVar(&viewer, "viewer", false, "Use a local vncviewer")
	return cmd
}

func newVMVSCodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vscode [path]",
		Short: "Open a folder in the VM with VS Code Remote-SSH",
		Long: `Add a Host entry for the VM to ~/.ssh/config and open path (default
vm.remote_path) in VS Code over Remote-SSH.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
				return c.VSCode(ctx, path)
			})(cmd, args)
		},
	}
}

func newVMWaitCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the VM answers on SSH",
		Args:  cobra.NoArgs,
		RunE: vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
			if a.dryRun {
				return nil
			}
			if err := c.Wait(ctx, timeout); err != nil {
				return fmt.Errorf("%w (is the guest still booting? check 'devbox vm logs')", err)
			}
			fmt.Fprintln(a.out, ui.SuccessStyle.Render("VM is accepting SSH connections"))
			return nil
		}),
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait")
	return cmd
}

func newVMLogsCmd(a *app) *cobra.Command {
	var tail int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the VM container logs",
		Args:  cobra.NoArgs,
		RunE: vmCommand(a, func(ctx context.Context, c *kvm.Controller) error {
			return c.Logs(ctx, tail, follow)
		}),
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 100, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	return cmd
}
