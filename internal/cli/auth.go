package cli

import (
	"github.com/spf13/cobra"
)

// AuthOptions holds flags for the auth commands.
type AuthOptions struct {
	*RootOptions
	Passphrase string
	Current    string
}

// NewAuthCommand creates the auth command group.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the operator passphrase",
		Long: `The operator passphrase gates destructive operations: delete, clear and
snapshot import. Only a bcrypt digest is stored.`,
	}
	cmd.AddCommand(newAuthProvisionCommand(rootOpts))
	cmd.AddCommand(newAuthCheckCommand(rootOpts))
	return cmd
}

func newAuthProvisionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Set or rotate the operator passphrase",
		Long: `Set the operator passphrase. Rotating an existing passphrase requires the
current one.

Example:
  intake auth provision --passphrase secret
  intake auth provision --current secret --passphrase n3w`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Passphrase == "" {
				return NewExitError(ExitCommandError, "--passphrase is required")
			}
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			provisioned, err := a.session.Provisioned(ctx)
			if err != nil {
				return failure(err)
			}
			if provisioned {
				if err := a.authorize(ctx, opts.Current); err != nil {
					return err
				}
			}
			if err := a.session.Provision(ctx, opts.Passphrase); err != nil {
				return failure(err)
			}
			msg := "passphrase set"
			if provisioned {
				msg = "passphrase rotated"
			}
			return a.out.SuccessWithNotices(msg, a.notices)
		},
	}

	cmd.Flags().StringVar(&opts.Passphrase, "passphrase", "", "new passphrase")
	cmd.Flags().StringVar(&opts.Current, "current", "", "current passphrase (or "+passphraseEnv+")")
	return cmd
}

func newAuthCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GatedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "check",
		Short:         "Check a passphrase against the stored digest",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.authorize(cmd.Context(), opts.Passphrase); err != nil {
				return err
			}
			return a.out.SuccessWithNotices("passphrase accepted", a.notices)
		},
	}
	addPassphraseFlag(cmd, opts)
	return cmd
}
