// Package main provides the devbox CLI for provisioning a development
// workstation and driving its KVM-in-Docker VM.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/executor"
	"github.com/jaspreet-dot-casa/devbox/pkg/logging"
)

// version is set via -ldflags during build
var version = "dev"

func main() {
	rootCmd := newRootCmd()

	// Cobra handles error printing
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds global flags and what every command builds from them.
type app struct {
	configPath string
	verbose    bool
	dryRun     bool

	cfg    *config.Config
	logger *log.Logger
	exec   executor.Executor
	out    io.Writer
}

// setup loads the config and builds the logger and executor.
func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()

	cfg, err := config.LoadOrCreate(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), a.verbose, cfg.Log.Level)

	var exec executor.Executor = executor.NewRealExecutor()
	if a.dryRun {
		exec = executor.NewDryRunExecutor(exec, a.out)
	}
	a.exec = exec
	return nil
}

// savePath is where init and config edits write the config.
func (a *app) savePath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPath()
}

// globalArgs returns the global flags to forward to a nested invocation.
func (a *app) globalArgs() []string {
	var args []string
	if a.configPath != "" {
		args = append(args, "--config", a.configPath)
	}
	if a.verbose {
		args = append(args, "--verbose")
	}
	if a.dryRun {
		args = append(args, "--dry-run")
	}
	return args
}

// newRootCmd creates the root command for devbox
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "devbox",
		Short: "Development workstation provisioning",
		Long: `devbox provisions a Linux development workstation.

It supports:
  - Package mirrors for apt, pip, npm, Go, Rust and Docker
  - Language toolchains, Docker, code-server and AI assistant CLIs
  - API keys for the AI assistants, kept in the system keychain
  - A KVM virtual machine running inside Docker Compose

Run without arguments on a terminal to open the interactive menu.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal() {
				return cmd.Help()
			}
			return runMenu(cmd, a)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default ~/.config/devbox/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&a.dryRun, "dry-run", false, "Print commands instead of running them")

	rootCmd.AddCommand(
		newInitCmd(a),
		newConfigCmd(a),
		newListCmd(a),
		newStatusCmd(a),
		newInstallCmd(a),
		newForgetCmd(a),
		newMirrorCmd(a),
		newAICmd(a),
		newVMCmd(a),
		newDoctorCmd(a),
		newMenuCmd(a),
	)

	return rootCmd
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
