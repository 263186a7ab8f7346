package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/ui"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and validate the configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Long:  `Print the configuration after defaults and DEVBOX_* environment overrides.`,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				data, err := yaml.Marshal(a.cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				_, err = a.out.Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				path, err := a.savePath()
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the configuration for errors",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return runValidate(a)
			},
		},
	)
	return cmd
}

// runValidate validates the loaded configuration.
func runValidate(a *app) error {
	result := a.cfg.Validate()

	for _, issue := range result.Issues {
		prefix := ui.WarningStyle.Render("WARNING")
		if issue.Severity == config.SeverityError {
			prefix = ui.ErrorStyle.Render("ERROR")
		}

		if issue.Field != "" {
			fmt.Fprintf(a.out, "[%s] %s: %s\n", prefix, issue.Field, issue.Message)
		} else {
			fmt.Fprintf(a.out, "[%s] %s\n", prefix, issue.Message)
		}
	}

	if result.HasErrors() {
		return fmt.Errorf("validation failed with %d error(s)", result.ErrorCount())
	}

	if len(result.Issues) == 0 {
		fmt.Fprintln(a.out, "Configuration is valid.")
	} else {
		fmt.Fprintf(a.out, "\nValidation passed with %d warning(s).\n", result.WarningCount())
	}
	return nil
}
