package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/snapshot"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export, import or validate ledger snapshots",
		Long: `Ledger snapshots are versioned JSON documents holding every entry,
cancelled ones included. Import replaces the whole ledger and requires the
operator passphrase.`,
	}
	cmd.AddCommand(newSnapshotExportCommand(rootOpts))
	cmd.AddCommand(newSnapshotImportCommand(rootOpts))
	cmd.AddCommand(newSnapshotValidateCommand(rootOpts))
	return cmd
}

func newSnapshotExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "export <path>",
		Short:         "Write the ledger to a snapshot file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			doc := snapshot.New(a.ledger, time.Now())
			if err := snapshot.Save(args[0], doc); err != nil {
				return WrapExitError(ExitCommandError, "failed to write snapshot", err)
			}
			return a.out.SuccessWithNotices(fmt.Sprintf("wrote %d entries to %s", len(doc.Entries), args[0]), a.notices)
		},
	}
}

func newSnapshotImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GatedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Replace the ledger with a snapshot file (requires passphrase)",
		Long: `Validate a snapshot file and replace the whole ledger with its entries.
Requires the operator passphrase. An invalid snapshot leaves the ledger as
it was.`,
		Args:          cobra.ExactArgs(1),
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
			doc, err := snapshot.Import(cmd.Context(), args[0], a.ledger)
			if err != nil {
				return snapshotFailure(a, err)
			}
			return a.out.SuccessWithNotices(fmt.Sprintf("imported %d entries from %s", len(doc.Entries), args[0]), a.notices)
		},
	}
	addPassphraseFlag(cmd, opts)
	return cmd
}

func newSnapshotValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate <path>",
		Short:         "Check a snapshot file against the schema",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			doc, err := snapshot.Load(args[0])
			if err != nil {
				var ve *snapshot.ValidationError
				if errors.As(err, &ve) {
					_ = out.Error("VALIDATION", err.Error(), ve.Problems)
					return WrapExitError(ExitFailure, "invalid snapshot", err)
				}
				return WrapExitError(ExitCommandError, "failed to read snapshot", err)
			}
			return out.Success(fmt.Sprintf("%s: valid, %d entries", args[0], len(doc.Entries)))
		},
	}
}

func snapshotFailure(a *app, err error) error {
	var ve *snapshot.ValidationError
	if errors.As(err, &ve) {
		_ = a.out.Error("VALIDATION", err.Error(), ve.Problems)
		return WrapExitError(ExitFailure, "invalid snapshot", err)
	}
	return failure(err)
}
