package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/secrets"
	"github.com/jaspreet-dot-casa/devbox/pkg/shellrc"
	"github.com/jaspreet-dot-casa/devbox/pkg/ui"
)

func newAICmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Manage API keys for the AI assistants",
		Long: `Store API keys and base URLs for the AI assistant CLIs.

Values are kept in the system keychain, or in ~/.config/devbox/secrets.env
(mode 0600) when no keychain is available. Each change regenerates
~/.config/devbox/ai.env, which your shell rc sources.

Tools: claude-code, codex, gemini-cli.`,
	}

	cmd.AddCommand(
		newAISetCmd(a),
		&cobra.Command{
			Use:   "list",
			Short: "Show stored keys (masked)",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return runAIList(a)
			},
		},
		&cobra.Command{
			Use:   "env",
			Short: "Print export lines for the stored keys",
			Long:  `Print shell export lines, e.g. eval "$(devbox ai env)".`,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				store, err := secrets.NewStore(a.logger)
				if err != nil {
					return err
				}
				values, err := store.Values(toolIDs())
				if err != nil {
					return err
				}
				fmt.Fprint(a.out, secrets.ExportScript(values))
				return nil
			},
		},
		&cobra.Command{
			Use:       "remove <tool>",
			Short:     "Delete the stored values for a tool",
			Args:      cobra.ExactArgs(1),
			ValidArgs: toolIDs(),
			RunE: func(_ *cobra.Command, args []string) error {
				return runAIRemove(a, args[0])
			},
		},
	)
	return cmd
}

func toolIDs() []string {
	ids := make([]string, len(secrets.Providers))
	for i, p := range secrets.Providers {
		ids[i] = p.Tool
	}
	return ids
}

func newAISetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <tool> <key|base-url> [value]",
		Short: "Store an API key or base URL",
		Long: `Store an API key or base URL for an AI tool. The value is prompted
for without echo when omitted.

Examples:
  devbox ai set claude-code key
  devbox ai set codex base-url https://api.example.com/v1`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 3 {
				value = args[2]
			} else {
				v, err := promptSecret(cmd, fmt.Sprintf("%s %s: ", args[0], args[1]))
				if err != nil {
					return err
				}
				value = v
			}
			return runAISet(a, args[0], args[1], value)
		},
	}
}

// promptSecret reads a line without echo on a terminal, or plainly from
// piped stdin.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read value: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runAISet(a *app, tool, name, value string) error {
	store, err := secrets.NewStore(a.logger)
	if err != nil {
		return err
	}
	if a.dryRun {
		p, err := secrets.ProviderFor(tool)
		if err != nil {
			return err
		}
		v, err := p.VarFor(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "+ store %s in %s\n", v, store.BackendName())
		return nil
	}

	varName, err := store.Set(tool, name, value)
	if err != nil {
		return err
	}
	if hint := secrets.KeyHint(varName, strings.TrimSpace(value)); hint != "" {
		fmt.Fprintln(a.out, ui.WarningStyle.Render("warning: "+hint))
	}
	fmt.Fprintf(a.out, "Stored %s in %s\n", varName, store.BackendName())

	if !a.cfg.HasAITool(tool) {
		fmt.Fprintf(a.out, "%s is not in ai.tools; it will not be installed by 'devbox install --all'\n", tool)
	}
	return refreshAIEnv(a, store)
}

// refreshAIEnv rewrites ai.env and makes sure the shell rc sources it.
func refreshAIEnv(a *app, store *secrets.Store) error {
	envPath, err := config.AIEnvPath()
	if err != nil {
		return err
	}
	if err := store.WriteEnvFile(envPath, toolIDs()); err != nil {
		return err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	files, err := shellrc.ApplyRC(home, os.Getenv("SHELL"), secrets.RCBlockName, secrets.RCBlock(envPath))
	if err != nil {
		return err
	}
	for _, f := range files {
		a.logger.Debug("updated rc file", "file", f)
	}
	fmt.Fprintf(a.out, "Wrote %s (open a new shell to load it)\n", envPath)
	return nil
}

func runAIList(a *app) error {
	store, err := secrets.NewStore(a.logger)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, ui.SubtitleStyle.Render("Backend: "+store.BackendName()))
	for _, p := range secrets.Providers {
		values, err := store.Values([]string{p.Tool})
		if err != nil {
			return err
		}
		title := p.Name
		if !a.cfg.HasAITool(p.Tool) {
			title += ui.DimStyle.Render(" (disabled)")
		}
		fmt.Fprintln(a.out, ui.GroupStyle.Render(title))
		for _, v := range p.Vars() {
			value, ok := values[v]
			shown := ui.DimStyle.Render("not set")
			if ok {
				shown = secrets.Mask(value)
				if v == p.BaseURLVar {
					shown = value
				}
			}
			fmt.Fprintln(a.out, ui.KeyValue(v, shown, 24))
		}
	}
	return nil
}

func runAIRemove(a *app, tool string) error {
	if _, err := secrets.ProviderFor(tool); err != nil {
		return err
	}
	store, err := secrets.NewStore(a.logger)
	if err != nil {
		return err
	}
	if a.dryRun {
		fmt.Fprintf(a.out, "+ remove %s values from %s\n", tool, store.BackendName())
		return nil
	}
	if err := store.Remove(tool); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed stored values for %s\n", tool)
	return refreshAIEnv(a, store)
}
