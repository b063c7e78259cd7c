package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/match"
)

// CatalogSummary is the load command payload.
type CatalogSummary struct {
	Path      string `json:"path"`
	Rows      int    `json:"rows"`
	HasHeader bool   `json:"has_header"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load [file]",
		Short: "Load the product catalog",
		Long: `Load a product catalog from an xlsx, csv or tsv file and store it in the
database. Without an argument the configured catalog.path is loaded.

A failed load keeps the previously loaded catalog.

Example:
  intake load products.xlsx
  intake load --format json ./catalog.csv`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			path := a.cfg.Catalog.Path
			if len(args) == 1 {
				path = args[0]
				err = a.station.LoadCatalogFile(cmd.Context(), path)
			} else {
				err = a.station.LoadConfiguredCatalog(cmd.Context())
			}
			if err != nil {
				return failure(err)
			}

			idx := a.station.Index()
			summary := CatalogSummary{Path: path, Rows: idx.DataLen(), HasHeader: idx.DataStart() == 1}
			if a.out.Format == "json" {
				return a.out.SuccessWithNotices(summary, a.notices)
			}
			return nil
		},
	}
}

// SearchHit is one search command result.
type SearchHit struct {
	Row           int         `json:"row"`
	Key           catalog.Key `json:"key"`
	Name          string      `json:"name"`
	Price         string      `json:"price"`
	SecondaryCode string      `json:"secondary_code"`
	PrimaryCode   string      `json:"primary_code"`
	Received      string      `json:"received,omitempty"`
	Duplicate     bool        `json:"duplicate,omitempty"`
}

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	WithCode bool
	Limit    int
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog by name or code",
		Long: `Search the loaded catalog. Rows whose name, secondary code or primary code
contain the query (ignoring case) are listed in catalog order, one per
identity. The received quantity from the ledger is shown alongside.

Example:
  intake search milk
  intake search --with-code 890`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			a.station.SetSecondaryFilter(opts.WithCode)
			results := a.station.Query(args[0])
			if opts.Limit > 0 && len(results) > opts.Limit {
				results = results[:opts.Limit]
			}
			hits := searchHits(a, results)

			if a.out.Format == "json" {
				return a.out.SuccessWithNotices(hits, a.notices)
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
				return nil
			}
			return a.out.Success(renderHits(hits))
		},
	}

	cmd.Flags().BoolVar(&opts.WithCode, "with-code", false, "hide rows without a secondary code")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "show at most n results (0 = all)")

	return cmd
}

func searchHits(a *app, results []match.Result) []SearchHit {
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		row, _ := a.station.Index().Row(r.Row)
		hit := SearchHit{
			Row:           r.Row,
			Key:           r.Key,
			Name:          row.Name,
			Price:         row.Price,
			SecondaryCode: row.SecondaryCode,
			PrimaryCode:   row.PrimaryCode,
			Duplicate:     r.IsDuplicate,
		}
		if e, ok := a.ledger.Get(r.Key); ok && !e.Cancelled() {
			hit.Received = e.Quantity
		}
		hits = append(hits, hit)
	}
	return hits
}

func renderHits(hits []SearchHit) string {
	rows := make([][]string, 0, len(hits))
	for i, h := range hits {
		name := h.Name
		if h.Duplicate {
			name += " *"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1), name, h.Price, h.SecondaryCode, h.PrimaryCode, h.Received,
		})
	}
	return renderTable(
		[]string{"#", "Name", "Price", "Secondary", "Primary", "Received"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignRight},
	)
}
