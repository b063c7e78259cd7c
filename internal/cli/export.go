package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/barcode"
	"github.com/roach88/intake/internal/export"
)

// ExportSummary is the export command payload.
type ExportSummary struct {
	Path          string `json:"path,omitempty"`
	Lines         int    `json:"lines"`
	TotalQuantity string `json:"total_quantity"`
	TotalValue    string `json:"total_value"`
}

// ExportOptions holds flags for the export commands.
type ExportOptions struct {
	*RootOptions
	Output    string
	Preview   bool
	Symbology string
	TextOnly  bool
	Title     string
}

// NewExportCommand creates the export command group.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export received items",
		Long: `Export the received (not cancelled) ledger entries as a workbook or as a
printable label sheet with barcodes. An empty ledger is refused.`,
	}
	cmd.AddCommand(newExportXLSXCommand(rootOpts))
	cmd.AddCommand(newExportPrintCommand(rootOpts))
	return cmd
}

func newExportXLSXCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Write the received items to an xlsx workbook",
		Long: `Write the received items to an xlsx workbook with a totals row.

Example:
  intake export xlsx
  intake export xlsx -o /tmp/received.xlsx`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := buildReport(a)
			if err != nil {
				return err
			}
			path := outputPath(a, opts.Output, export.XLSXFilename)
			if err := export.SaveXLSX(path, report); err != nil {
				return WrapExitError(ExitCommandError, "failed to write workbook", err)
			}
			return exportResult(a, path, report)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output path (default <export.directory>/"+export.XLSXFilename+")")
	return cmd
}

func newExportPrintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Write a printable label sheet",
		Long: `Write an HTML label sheet with one barcode label per received item, three
labels across and seven down per page. --preview renders the sheet as text
in the terminal instead.

Example:
  intake export print
  intake export print --symbology qr -o labels.html
  intake export print --preview`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := buildReport(a)
			if err != nil {
				return err
			}

			if opts.Preview {
				out, err := export.Preview(report, previewStyle(cmd))
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to render preview", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}

			symName := opts.Symbology
			if symName == "" {
				symName = a.cfg.Export.Symbology
			}
			sym, err := barcode.ParseSymbology(symName)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid symbology", err)
			}

			path := outputPath(a, opts.Output, export.PrintFilename)
			printOpts := export.PrintOptions{Symbology: sym, Title: opts.Title, TextOnly: opts.TextOnly, Logger: a.logger}
			if err := export.SaveHTML(path, report, printOpts); err != nil {
				return WrapExitError(ExitCommandError, "failed to write label sheet", err)
			}
			return exportResult(a, path, report)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output path (default <export.directory>/"+export.PrintFilename+")")
	cmd.Flags().BoolVar(&opts.Preview, "preview", false, "render the sheet in the terminal")
	cmd.Flags().StringVar(&opts.Symbology, "symbology", "", "barcode symbology (code128|code39|ean|qr; default from config)")
	cmd.Flags().BoolVar(&opts.TextOnly, "text-only", false, "print codes as text without barcode images")
	cmd.Flags().StringVar(&opts.Title, "title", "", "sheet title")
	return cmd
}

func buildReport(a *app) (export.Report, error) {
	report, err := export.Build(a.ledger.List(false), a.cfg.Export.Currency)
	if errors.Is(err, export.ErrNothingToExport) {
		return export.Report{}, WrapExitError(ExitFailure, "nothing to export", err)
	}
	if err != nil {
		return export.Report{}, WrapExitError(ExitCommandError, "failed to build report", err)
	}
	return report, nil
}

func outputPath(a *app, flag, name string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(a.cfg.Export.Directory, name)
}

func exportResult(a *app, path string, r export.Report) error {
	summary := ExportSummary{
		Path:          path,
		Lines:         len(r.Lines),
		TotalQuantity: r.TotalQuantity.String(),
		TotalValue:    r.Money(r.TotalValue),
	}
	if a.out.Format == "json" {
		return a.out.SuccessWithNotices(summary, a.notices)
	}
	return a.out.Success(fmt.Sprintf("Wrote %d items (qty %s, %s) to %s",
		summary.Lines, summary.TotalQuantity, summary.TotalValue, path))
}

// previewStyle picks a glamour style for the command's output stream.
func previewStyle(cmd *cobra.Command) string {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return "notty"
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "dark"
	}
	return "notty"
}
