package main

import (
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/devbox/pkg/component"
	"github.com/jaspreet-dot-casa/devbox/pkg/install"
	"github.com/jaspreet-dot-casa/devbox/pkg/platform"
	"github.com/jaspreet-dot-casa/devbox/pkg/state"
	"github.com/jaspreet-dot-casa/devbox/pkg/ui"
)

// componentContext describes the current user and host to step builders.
func (a *app) componentContext() (component.Context, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return component.Context{}, fmt.Errorf("failed to get home directory: %w", err)
	}
	name := os.Getenv("USER")
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return component.Context{
		Config:   a.cfg,
		Platform: platform.Detect(os.DirFS("/")),
		Home:     home,
		User:     name,
	}, nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installable components",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			registry := component.Default()

			fmt.Fprintf(a.out, "Found %d components:\n\n", len(registry.Components))
			for _, category := range registry.Categories() {
				fmt.Fprintln(a.out, ui.GroupStyle.Render(string(category)+":"))
				for _, c := range registry.ByCategory[category] {
					desc := c.Description
					if desc == "" {
						desc = "(no description)"
					}
					line := fmt.Sprintf("  - %-12s %s", c.ID, desc)
					if len(c.Requires) > 0 {
						line += ui.DimStyle.Render(" (requires " + strings.Join(c.Requires, ", ") + ")")
					}
					fmt.Fprintln(a.out, line)
				}
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which components are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, a)
		},
	}
}

func runStatus(cmd *cobra.Command, a *app) error {
	cctx, err := a.componentContext()
	if err != nil {
		return err
	}
	store, err := state.NewStore(a.logger)
	if err != nil {
		return err
	}
	registry := component.Default()
	detector := component.NewDetector(a.exec, cctx.Home)

	installed := 0
	for _, category := range registry.Categories() {
		fmt.Fprintln(a.out, ui.GroupStyle.Render(string(category)))
		for _, c := range registry.ByCategory[category] {
			det := detector.Detect(cmd.Context(), c)
			rec, recorded, err := store.Installed(c.ID)
			if err != nil {
				return err
			}

			status, detail := "missing", "not installed"
			if det.Installed {
				installed++
				status, detail = "installed", det.Version
				if detail == "" {
					detail = det.Path
				}
				if recorded {
					detail += " (by devbox, " + ui.FormatTimeAgo(rec.InstalledAt) + ")"
				}
			} else if recorded {
				status, detail = "warning", "recorded as installed but not found"
			}
			fmt.Fprintln(a.out, ui.CheckLine(status, c.ID, detail))
		}
		fmt.Fprintln(a.out)
	}

	fmt.Fprintf(a.out, "%d of %d components installed\n", installed, len(registry.Components))

	st, err := store.Load()
	if err != nil {
		return err
	}
	if run := st.LastRun(); run != nil {
		result := ui.SuccessStyle.Render("succeeded")
		if !run.Success {
			result = ui.ErrorStyle.Render("failed")
		}
		fmt.Fprintf(a.out, "Last install %s %s: %s\n",
			ui.FormatTimeAgo(run.FinishedAt), result, strings.Join(run.Components, ", "))
		if run.Error != "" {
			fmt.Fprintln(a.out, ui.DimStyle.Render("  "+run.Error))
		}
	}
	return nil
}

func newInstallCmd(a *app) *cobra.Command {
	var all, force bool

	cmd := &cobra.Command{
		Use:   "install [component...]",
		Short: "Install components",
		Long: `Install components and what they require, in dependency order.

Components that are already present are skipped unless --force is given.
With --all every toolchain is installed along with the AI assistants
enabled in ai.tools. Mirrors configured with 'devbox mirror' are used
for the downloads.

Examples:
  devbox install node go
  devbox install --all
  devbox install docker --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, a, args, all, force)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Install every component")
	cmd.Flags().BoolVar(&force, "force", false, "Reinstall components that are already installed")
	return cmd
}

func newForgetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <component...>",
		Short: "Drop components from the install record",
		Long: `Drop components from devbox's install record without touching the
host. Use it after removing a component by hand so 'devbox status' stops
reporting it as installed by devbox.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runForget(a, args)
		},
	}
}

func runForget(a *app, ids []string) error {
	store, err := state.NewStore(a.logger)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if a.dryRun {
			fmt.Fprintf(a.out, "+ forget %s in %s\n", id, store.Path())
			continue
		}
		found, err := store.Forget(id)
		if err != nil {
			return err
		}
		if found {
			fmt.Fprintf(a.out, "Forgot %s\n", id)
		} else {
			fmt.Fprintf(a.out, "%s was not recorded\n", id)
		}
	}
	return nil
}

// selectAll returns every component except AI tools that are not enabled.
func selectAll(a *app, registry *component.Registry) []string {
	var ids []string
	for _, c := range registry.Components {
		if c.Category == component.CategoryAI && !a.cfg.HasAITool(c.ID) {
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids
}

func runInstall(cmd *cobra.Command, a *app, ids []string, all, force bool) error {
	registry := component.Default()
	if all {
		ids = selectAll(a, registry)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no components given (use --all or see 'devbox list')")
	}

	cctx, err := a.componentContext()
	if err != nil {
		return err
	}
	store, err := state.NewStore(a.logger)
	if err != nil {
		return err
	}

	inst := install.New(a.exec, registry, store, cctx, a.logger, install.Options{DryRun: a.dryRun, Force: force})
	inst.Out = a.out

	plan, err := inst.Plan(cmd.Context(), ids)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, ui.TitleStyle.Render("Install plan"))
	for _, item := range plan.Items {
		status := "missing"
		if item.Action == install.ActionSkip {
			status = "skipped"
		}
		fmt.Fprintln(a.out, ui.CheckLine(status, item.Component.ID, item.Reason))
	}
	fmt.Fprintln(a.out)

	if plan.Installs() == 0 {
		fmt.Fprintln(a.out, "Everything is already installed.")
		return nil
	}

	result, err := inst.Run(cmd.Context(), plan, progressPrinter(a))
	printInstallResult(a, result)
	if err != nil {
		return err
	}

	if hasAI(plan) {
		fmt.Fprintln(a.out, "\nSet API keys with: devbox ai set <tool> key")
	}
	if !a.dryRun {
		fmt.Fprintln(a.out, "Open a new shell to pick up PATH changes.")
	}
	return nil
}

// progressPrinter prints one line per stage change.
func progressPrinter(a *app) install.ProgressCallback {
	return func(e install.ProgressEvent) {
		switch e.Stage {
		case install.StagePlanning:
			fmt.Fprintln(a.out, ui.DimStyle.Render(e.Message))
		case install.StageInstalling, install.StageConfiguring:
			fmt.Fprintf(a.out, "%s %s %s\n",
				ui.DimStyle.Render(fmt.Sprintf("[%d/%d]", e.Current, e.Total)),
				ui.InfoStyle.Render(e.Component),
				e.Message)
		case install.StageError:
			fmt.Fprintf(a.out, "%s %s: %s\n", ui.Icon("failed"), e.Component, e.Detail)
		case install.StageDone:
			fmt.Fprintf(a.out, "%s %s\n", ui.Icon("installed"), e.Message)
		}
	}
}

func printInstallResult(a *app, result *install.Result) {
	if result == nil {
		return
	}
	var ok, failed, skipped int
	for _, it := range result.Items {
		switch it.Status {
		case install.StatusInstalled:
			ok++
		case install.StatusFailed, install.StatusNotRun:
			failed++
		case install.StatusSkipped:
			skipped++
		}
	}
	fmt.Fprintf(a.out, "\n%s  %s\n", ui.Counts(ok, failed, skipped), ui.DimStyle.Render(result.Duration.Round(time.Second).String()))
	if f := result.Failed(); f != nil {
		fmt.Fprintln(a.out, ui.ErrorStyle.Render("Failed: "+f.ID))
	}
}

func hasAI(plan *install.Plan) bool {
	for _, it := range plan.Items {
		if it.Action == install.ActionInstall && it.Component.Category == component.CategoryAI {
			return true
		}
	}
	return false
}
