package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
)

// EntryView is the CLI form of a ledger entry.
type EntryView struct {
	ID         ledger.EntryID `json:"id"`
	Key        catalog.Key    `json:"key"`
	Name       string         `json:"name"`
	Quantity   string         `json:"quantity"`
	Status     ledger.Status  `json:"status"`
	ModifiedAt time.Time      `json:"modified_at"`
}

func viewOf(e ledger.Entry) EntryView {
	status := e.Status
	if status == "" {
		status = ledger.StatusReceived
	}
	return EntryView{
		ID:         e.ID,
		Key:        e.Key,
		Name:       e.Row.Name,
		Quantity:   e.Quantity,
		Status:     status,
		ModifiedAt: e.ModifiedAt,
	}
}

func renderEntries(entries []ledger.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		v := viewOf(e)
		rows = append(rows, []string{
			string(v.Key), v.Name, v.Quantity, string(v.Status), v.ModifiedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(
		[]string{"Key", "Name", "Qty", "Status", "Modified"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

// entryResult prints the entry stored under key after a successful command.
func entryResult(a *app, key catalog.Key) error {
	e, ok := a.ledger.Get(key)
	if !ok {
		return a.out.SuccessWithNotices(nil, a.notices)
	}
	if a.out.Format == "json" {
		return a.out.SuccessWithNotices(viewOf(e), a.notices)
	}
	return a.out.Success(fmt.Sprintf("%s  %s  qty %s (%s)", e.Key, e.Row.Name, e.Quantity, viewOf(e).Status))
}

// NewReceiveCommand creates the receive command.
func NewReceiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receive <code-or-name> <quantity>",
		Short: "Record a received quantity",
		Long: `Resolve a product by exact primary code, then exact secondary code, then
the first name containing the text, and record the received quantity.

Receiving the same product again replaces its quantity.

Example:
  intake receive 890123 3
  intake receive "milk powder" 2.5`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.station.Submit(args[0]); err != nil {
				return failure(err)
			}
			key := a.station.Workflow().Prompt().Key
			if err := a.station.Confirm(cmd.Context(), args[1]); err != nil {
				return failure(err)
			}
			return entryResult(a, key)
		},
	}
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <key> <quantity>",
		Short: "Change the quantity of a ledger entry",
		Long: `Replace the quantity of an existing ledger entry. Keys are shown by
"intake list", e.g. primary::890123.

Example:
  intake edit primary::890123 5`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			key := catalog.Key(args[0])
			if err := a.station.Edit(key); err != nil {
				return failure(err)
			}
			if err := a.station.Confirm(cmd.Context(), args[1]); err != nil {
				return failure(err)
			}
			return entryResult(a, key)
		},
	}
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <key>",
		Short: "Cancel a ledger entry",
		Long: `Mark a ledger entry as cancelled. It is hidden from lists and exports but
kept, and receiving the product again revives it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			key := catalog.Key(args[0])
			if err := a.station.CancelEntry(cmd.Context(), key); err != nil {
				return failure(err)
			}
			return entryResult(a, key)
		},
	}
}

// GatedOptions holds flags for commands that need an authorized session.
type GatedOptions struct {
	*RootOptions
	Passphrase string
}

func addPassphraseFlag(cmd *cobra.Command, opts *GatedOptions) {
	cmd.Flags().StringVar(&opts.Passphrase, "passphrase", "", "operator passphrase (or "+passphraseEnv+")")
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GatedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a ledger entry (requires passphrase)",
		Long: `Remove a ledger entry permanently. Requires the operator passphrase.

Example:
  intake delete primary::890123 --passphrase secret`,
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
			if err := a.station.Delete(cmd.Context(), catalog.Key(args[0])); err != nil {
				return failure(err)
			}
			return a.out.SuccessWithNotices(fmt.Sprintf("deleted %s", args[0]), a.notices)
		},
	}
	addPassphraseFlag(cmd, opts)
	return cmd
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GatedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every ledger entry (requires passphrase)",
		Long: `Remove every ledger entry permanently. Requires the operator passphrase.
Export the ledger first; this cannot be undone.`,
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
			n := a.ledger.Len()
			if err := a.station.Clear(cmd.Context()); err != nil {
				return failure(err)
			}
			return a.out.SuccessWithNotices(fmt.Sprintf("cleared %d entries", n), a.notices)
		},
	}
	addPassphraseFlag(cmd, opts)
	return cmd
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	All bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List ledger entries, most recent first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			entries := a.ledger.List(opts.All)
			if a.out.Format == "json" {
				views := make([]EntryView, 0, len(entries))
				for _, e := range entries {
					views = append(views, viewOf(e))
				}
				return a.out.SuccessWithNotices(views, a.notices)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "The ledger is empty.")
				return nil
			}
			return a.out.Success(renderEntries(entries))
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "include cancelled entries")

	return cmd
}
