package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
)

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Long: `Write ~/.config/devbox/config.yaml with default settings.

Edit the file afterwards to set package mirrors, toolchain versions and
the VM compose file. An existing config is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(a, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")
	return cmd
}

func runInit(a *app, force bool) error {
	path, err := a.savePath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(a.out, "Config already exists: %s\n", path)
		fmt.Fprintln(a.out, "Use --force to overwrite it with defaults.")
		return nil
	}

	cfg := config.NewConfig()
	if a.dryRun {
		fmt.Fprintf(a.out, "+ write %s\n", path)
		return nil
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if a.configPath == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	fmt.Fprintf(a.out, "Config saved to: %s\n", path)
	fmt.Fprintln(a.out, "\nNext steps:")
	fmt.Fprintln(a.out, "  devbox config validate")
	fmt.Fprintln(a.out, "  devbox mirror apply")
	fmt.Fprintln(a.out, "  devbox install --all")
	return nil
}
