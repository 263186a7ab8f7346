package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/devbox/pkg/menu"
	"github.com/jaspreet-dot-casa/devbox/pkg/ui"
)

// menuAction maps a menu entry to the subcommand it runs.
type menuAction struct {
	item menu.Item
	args []string
}

var menuActions = []menuAction{
	{menu.Item{ID: "status", Title: "Component status", Description: "What is installed"}, []string{"status"}},
	{menu.Item{ID: "install", Title: "Install everything", Description: "Toolchains, Docker, code-server and AI CLIs"}, []string{"install", "--all"}},
	{menu.Item{ID: "mirror", Title: "Apply mirrors", Description: "Point package managers at the configured mirrors"}, []string{"mirror", "apply"}},
	{menu.Item{ID: "ai", Title: "AI keys", Description: "Show stored API keys"}, []string{"ai", "list"}},
	{menu.Item{ID: "vm-start", Title: "Start VM", Description: "docker compose up and wait for SSH"}, []string{"vm", "start", "--wait"}},
	{menu.Item{ID: "vm-status", Title: "VM status", Description: "State and endpoints"}, []string{"vm", "status"}},
	{menu.Item{ID: "vm-ssh", Title: "SSH into VM"}, []string{"vm", "ssh"}},
	{menu.Item{ID: "vm-vnc", Title: "Open VM console", Description: "Web console in the browser"}, []string{"vm", "vnc"}},
	{menu.Item{ID: "vm-vscode", Title: "Open VM in VS Code", Description: "Remote-SSH"}, []string{"vm", "vscode"}},
	{menu.Item{ID: "doctor", Title: "Doctor", Description: "Check host and toolchains"}, []string{"doctor"}},
}

func menuItems() []menu.Item {
	items := make([]menu.Item, len(menuActions))
	for i, a := range menuActions {
		items[i] = a.item
	}
	return items
}

// actionArgs returns the subcommand arguments for a menu item.
func actionArgs(id string) ([]string, bool) {
	for _, a := range menuActions {
		if a.item.ID == id {
			return a.args, true
		}
	}
	return nil, false
}

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Open the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMenu(cmd, a)
		},
	}
}

// runMenu shows the menu until the user quits. Each choice runs the
// matching subcommand with the same global flags.
func runMenu(cmd *cobra.Command, a *app) error {
	title := fmt.Sprintf("devbox %s", version)
	for {
		id, err := menu.Run(title, menuItems())
		if errors.Is(err, menu.ErrQuit) {
			return nil
		}
		if err != nil {
			return err
		}

		args, ok := actionArgs(id)
		if !ok {
			return fmt.Errorf("unknown menu action %q", id)
		}

		sub := newRootCmd()
		sub.SilenceUsage = true
		sub.SetArgs(append(a.globalArgs(), args...))
		sub.SetOut(cmd.OutOrStdout())
		sub.SetErr(cmd.ErrOrStderr())
		sub.SetIn(cmd.InOrStdin())
		if err := sub.ExecuteContext(cmd.Context()); err != nil {
			a.logger.Debug("menu action failed", "action", id, "err", err)
		}

		fmt.Fprintln(a.out, ui.DimStyle.Render("\nPress enter to return to the menu"))
		_, _ = fmt.Fscanln(cmd.InOrStdin())
	}
}
