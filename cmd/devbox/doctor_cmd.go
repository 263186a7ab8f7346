package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/devbox/pkg/component"
	"github.com/jaspreet-dot-casa/devbox/pkg/doctor"
	"github.com/jaspreet-dot-casa/devbox/pkg/kvm"
	"github.com/jaspreet-dot-casa/devbox/pkg/platform"
	"github.com/jaspreet-dot-casa/devbox/pkg/secrets"
	"github.com/jaspreet-dot-casa/devbox/pkg/ui"
)

func newDoctorCmd(a *app) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the host, toolchains and AI setup",
		Long: `Check Docker, KVM and sudo on the host, the installed toolchains and
the enabled AI assistants with their API keys.

With --fix, run the suggested fix for every failing check and check again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), a, fix)
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Run the suggested fixes")
	return cmd
}

func newChecker(a *app) (*doctor.Checker, func(), error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	var keys doctor.KeyChecker
	if store, err := secrets.NewStore(a.logger); err != nil {
		a.logger.Warn("secret store unavailable", "err", err)
	} else {
		keys = store
	}

	c := doctor.NewChecker(a.exec, component.Default(), a.cfg, keys, home)
	c.SetRoot(platform.IsRoot())
	c.SetHost(platform.Detect(os.DirFS("/")))

	cleanup := func() {}
	if cli, err := kvm.NewDockerInspector(); err != nil {
		a.logger.Debug("docker api unavailable, using the CLI", "err", err)
	} else {
		c.SetDaemon(cli)
		cleanup = func() { _ = cli.Close() }
	}
	return c, cleanup, nil
}

func runDoctor(ctx context.Context, a *app, fix bool) error {
	checker, cleanup, err := newChecker(a)
	if err != nil {
		return err
	}
	defer cleanup()

	groups, err := checker.CheckAll(ctx)
	if err != nil {
		return err
	}
	printGroups(a, checker, groups)

	fixes := doctor.PendingFixes(groups)
	if !fix {
		if len(fixes) > 0 {
			fmt.Fprintln(a.out, "\nSuggested fixes (run 'devbox doctor --fix' to apply):")
			for _, f := range fixes {
				fmt.Fprintf(a.out, "  %s  %s\n", ui.InfoStyle.Render(f.String()), ui.DimStyle.Render(f.Description))
			}
		}
		if checker.HasIssues(groups) {
			return fmt.Errorf("doctor found problems")
		}
		return nil
	}

	if len(fixes) == 0 {
		fmt.Fprintln(a.out, "\nNothing to fix.")
		return nil
	}

	fixer := doctor.NewFixer(a.exec, platform.IsRoot(), a.globalArgs()...)
	fmt.Fprintln(a.out)
	for _, f := range fixes {
		fmt.Fprintf(a.out, "%s %s\n", ui.InfoStyle.Render("→"), f.String())
		if err := fixer.RunFix(ctx, f); err != nil {
			return err
		}
	}
	if a.dryRun {
		return nil
	}

	fmt.Fprintln(a.out, "\nChecking again...")
	groups, err = checker.CheckAll(ctx)
	if err != nil {
		return err
	}
	printGroups(a, checker, groups)
	if checker.HasIssues(groups) {
		return fmt.Errorf("some problems remain; open a new shell if PATH changed")
	}
	return nil
}

func printGroups(a *app, checker *doctor.Checker, groups []doctor.CheckGroup) {
	for _, g := range groups {
		fmt.Fprintln(a.out, ui.GroupStyle.Render(g.Name)+"  "+ui.DimStyle.Render(g.Description))
		for _, c := range g.Checks {
			fmt.Fprintln(a.out, ui.CheckLine(c.Status.String(), c.Name, c.Message))
		}
		fmt.Fprintln(a.out)
	}
	s := checker.Summary(groups)
	fmt.Fprintln(a.out, ui.Counts(s.OK, s.Missing+s.Errors, s.Warnings))
}
