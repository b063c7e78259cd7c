package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	cmd.AddCommand(newConfigValidateCommand(rootOpts))
	return cmd
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:           "init",
		Short:         "Create a sample configuration file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(rootOpts.Config)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return WrapExitError(ExitCommandError, "determine default config path", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return WrapExitError(ExitCommandError, "resolve config path", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return NewExitError(ExitCommandError,
						fmt.Sprintf("config file already exists at %s (use --overwrite to replace it)", target))
				} else if !os.IsNotExist(err) {
					return WrapExitError(ExitCommandError, "check config path", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return WrapExitError(ExitCommandError, "create sample config", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit catalog.path and the column positions to match your product file.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate",
		Short:         "Validate configuration file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(rootOpts.Config)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return WrapExitError(ExitCommandError, "ensure directories", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Database: %s\n", cfg.Store.Path)
			fmt.Fprintf(out, "Catalog: %s\n", cfg.Catalog.Path)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
