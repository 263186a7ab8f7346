package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/devbox/pkg/mirror"
	"github.com/jaspreet-dot-casa/devbox/pkg/ui"
)

func newMirrorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Point package managers at mirrors",
		Long: `Show or apply the package mirrors set under 'mirrors' in the config.

Kinds: apt, pip, npm, go, rust, docker. Kinds without a configured mirror
are left alone.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the configured mirrors",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				for _, s := range mirror.Show(a.cfg.Mirrors) {
					value := s.Value
					if value == "upstream" {
						value = ui.DimStyle.Render(value)
					}
					fmt.Fprintln(a.out, ui.KeyValue(string(s.Kind), value, 7))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:       "apply [kind...]",
			Short:     "Write mirror settings to the host",
			ValidArgs: kindNames(),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMirrorApply(cmd, a, args)
			},
		},
		&cobra.Command{
			Use:   "restore",
			Short: "Restore the APT sources and shell rc files changed by 'mirror apply'",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				applier := newApplier(a)
				ch, err := applier.RestoreAPT(cmd.Context())
				if err != nil {
					return err
				}
				printChange(a, ch)

				ch, err = applier.RestoreRC()
				if err != nil {
					return err
				}
				printChange(a, ch)
				return nil
			},
		},
	)
	return cmd
}

func kindNames() []string {
	names := make([]string, len(mirror.AllKinds))
	for i, k := range mirror.AllKinds {
		names[i] = string(k)
	}
	return names
}

func newApplier(a *app) *mirror.Applier {
	applier := mirror.NewApplier(a.exec, a.cfg.Mirrors, a.logger)
	applier.DryRun = a.dryRun
	applier.Out = a.out
	return applier
}

func runMirrorApply(cmd *cobra.Command, a *app, args []string) error {
	var kinds []mirror.Kind
	for _, arg := range args {
		k, err := mirror.ParseKind(arg)
		if err != nil {
			return err
		}
		kinds = append(kinds, k)
	}

	changes, err := newApplier(a).ApplyAll(cmd.Context(), kinds)
	for _, ch := range changes {
		printChange(a, ch)
	}
	return err
}

func printChange(a *app, ch mirror.Change) {
	status, detail := "ok", "unchanged"
	switch {
	case ch.Skipped:
		status, detail = "skipped", "no mirror configured"
	case ch.Changed:
		status, detail = "installed", "updated "+strings.Join(ch.Targets, ", ")
	}
	if ch.Detail != "" {
		detail += "; " + ch.Detail
	}
	fmt.Fprintln(a.out, ui.CheckLine(status, string(ch.Kind), detail))
}
