// Package cmd - quote archive commands
package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"energy-quote/adapters/storage"
	"energy-quote/core/output"
	"energy-quote/core/types"
	"energy-quote/internal/config"
	"energy-quote/internal/errors"
)

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Browse archived quotes",
	Long: `Browse quotes saved with "energy-quote quote --archive" or through the API.

Examples:
  energy-quote quotes list --customer "Acme Ltd"
  energy-quote quotes show <id> -o acme.xlsx
  energy-quote quotes compare <old-id> <new-id>`,
}

var quotesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived quotes, newest first",
	Args:  cobra.NoArgs,
	RunE:  runQuotesList,
}

var quotesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Re-render an archived quote",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuotesShow,
}

var quotesCompareCmd = &cobra.Command{
	Use:   "compare <old-id> <new-id>",
	Short: "Compare the totals of two archived quotes",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuotesCompare,
}

var quotesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived quote",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuotesDelete,
}

var (
	listCustomer string
	listSince    string
	listLimit    int
	showFormat   string
	showOutput   string
	showSales    bool
)

func init() {
	rootCmd.AddCommand(quotesCmd)
	quotesCmd.AddCommand(quotesListCmd)
	quotesCmd.AddCommand(quotesShowCmd)
	quotesCmd.AddCommand(quotesCompareCmd)
	quotesCmd.AddCommand(quotesDeleteCmd)

	quotesListCmd.Flags().StringVar(&listCustomer, "customer", "", "only this customer's quotes")
	quotesListCmd.Flags().StringVar(&listSince, "since", "", "only quotes on or after this date (YYYY-MM-DD)")
	quotesListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum quotes to list")

	quotesShowCmd.Flags().StringVarP(&showFormat, "format", "f", "", "output format (cli, json, xlsx, pdf)")
	quotesShowCmd.Flags().StringVarP(&showOutput, "output", "o", "", "output file (format inferred from extension)")
	quotesShowCmd.Flags().BoolVar(&showSales, "sales-view", false, "include base rates, uplifts and margin")
}

// withArchive opens the archive for the duration of fn
func withArchive(fn func(archive storage.Store) error) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	if archive == nil {
		return errors.New(errors.TypeConfig, "quote archive is disabled in the configuration")
	}
	defer archive.Close()
	return fn(archive)
}

func runQuotesList(cmd *cobra.Command, args []string) error {
	filter := &storage.ListFilter{Customer: listCustomer, Limit: listLimit}
	if listSince != "" {
		since, err := time.Parse("2006-01-02", listSince)
		if err != nil {
			return errors.Wrapf(errors.TypeInput, err, "--since %q", listSince)
		}
		filter.Since = since
	}

	return withArchive(func(archive storage.Store) error {
		ctx := cmd.Context()
		quotes, err := archive.List(ctx, filter)
		if err != nil {
			return err
		}
		if len(quotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No archived quotes")
			return nil
		}

		cur := config.Get().Pricing.Currency.Symbol()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tCUSTOMER\tSITES\tTOTALS")
		for _, q := range quotes {
			totals := ""
			for i, t := range q.Totals {
				if i > 0 {
					totals += "  "
				}
				totals += fmt.Sprintf("%dm %s%s", t.DurationMonths, cur, t.TotalAnnualCost.StringFixed(types.MoneyPlaces))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				q.ID, q.CreatedAt.Local().Format("2006-01-02 15:04"), q.Customer, q.Sites, totals)
		}
		return w.Flush()
	})
}

func runQuotesShow(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(showFormat, showOutput)
	if err != nil {
		return err
	}
	return withArchive(func(archive storage.Store) error {
		ctx := cmd.Context()
		q, err := archive.Get(ctx, args[0])
		if err != nil {
			return err
		}
		doc := documentOptions(output.QuoteDocument(q.Sheet))
		doc.SalesView = showSales
		return writeDocument(cmd, format, showOutput, doc)
	})
}

func runQuotesCompare(cmd *cobra.Command, args []string) error {
	return withArchive(func(archive storage.Store) error {
		ctx := cmd.Context()
		res, err := archive.Compare(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if res.OldSnapshotID != res.NewSnapshotID {
			fmt.Fprintf(out, "Tariffs changed: snapshot %s -> %s\n\n", res.OldSnapshotID, res.NewSnapshotID)
		}

		cur := config.Get().Pricing.Currency.Symbol()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "DURATION\tOLD\tNEW\tDELTA\t%\t")
		for _, d := range res.Durations {
			if !d.Present {
				fmt.Fprintf(w, "%dm\t%s%s\t%s%s\t-\t-\t\n", d.DurationMonths,
					cur, d.OldTotal.StringFixed(types.MoneyPlaces), cur, d.NewTotal.StringFixed(types.MoneyPlaces))
				continue
			}
			fmt.Fprintf(w, "%dm\t%s%s\t%s%s\t%s\t%s\t\n", d.DurationMonths,
				cur, d.OldTotal.StringFixed(types.MoneyPlaces),
				cur, d.NewTotal.StringFixed(types.MoneyPlaces),
				d.Delta.StringFixed(types.MoneyPlaces), d.DeltaPercent.StringFixed(2))
		}
		return w.Flush()
	})
}

func runQuotesDelete(cmd *cobra.Command, args []string) error {
	return withArchive(func(archive storage.Store) error {
		ctx := cmd.Context()
		if err := archive.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted quote %s\n", args[0])
		return nil
	})
}
