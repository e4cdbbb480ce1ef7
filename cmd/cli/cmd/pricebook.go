// Package cmd - price book commands
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"energy-quote/core/output"
	"energy-quote/core/pricebook"
)

var pricebookCmd = &cobra.Command{
	Use:   "pricebook",
	Short: "Generate a banded multi-rate price book",
	Long: `Generate a price book with one priced row per consumption band.

Each band takes the cheapest overlapping tariff row for the profile,
adds the per-meter cost split between standing charge and unit rates,
adds the band's uplifts and is priced at the band mid-point.

Examples:
  energy-quote pricebook
  energy-quote pricebook --bands autumn.json --total-cost 150 --standing-pct 40
  energy-quote pricebook --region NW --profile 60/30/10 -o book.pdf`,
	Args: cobra.NoArgs,
	RunE: runPricebook,
}

var pricebookInitCmd = &cobra.Command{
	Use:   "init <path.json>",
	Short: "Write the default bands as an editable uplift config",
	Args:  cobra.ExactArgs(1),
	RunE:  runPricebookInit,
}

var (
	bookBands       string
	bookName        string
	bookTotalCost   string
	bookStandingPct string
	bookDuration    int
	bookGreen       bool
	bookRegion      string
	bookProfile     string
	bookFormat      string
	bookOutput      string
)

func init() {
	rootCmd.AddCommand(pricebookCmd)
	pricebookCmd.AddCommand(pricebookInitCmd)

	defaults := pricebook.DefaultParams()
	pricebookCmd.Flags().StringVarP(&bookBands, "bands", "b", "", "uplift config (JSON); default bands when empty")
	pricebookCmd.Flags().StringVar(&bookTotalCost, "total-cost", defaults.TotalCost.String(), "per-meter cost to recover per year")
	pricebookCmd.Flags().StringVar(&bookStandingPct, "standing-pct", defaults.StandingPct.String(), "share of the cost put on the standing charge (0-100)")
	pricebookCmd.Flags().IntVarP(&bookDuration, "duration", "d", defaults.DurationMonths, "contract duration in months")
	pricebookCmd.Flags().BoolVar(&bookGreen, "green", false, "price from carbon offset rows")
	pricebookCmd.Flags().StringVarP(&bookRegion, "region", "r", "", "restrict to one LDZ")
	pricebookCmd.Flags().StringVar(&bookProfile, "profile", "70/20/10", "day/night/evening-and-weekend split")
	pricebookCmd.Flags().StringVarP(&bookFormat, "format", "f", "", "output format (cli, json, xlsx, pdf)")
	pricebookCmd.Flags().StringVarP(&bookOutput, "output", "o", "", "output file (format inferred from extension)")

	pricebookInitCmd.Flags().StringVar(&bookName, "name", "Default", "config name")
}

func runPricebook(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(bookFormat, bookOutput)
	if err != nil {
		return err
	}

	bands := pricebook.DefaultConfig("Default")
	if bookBands != "" {
		if bands, err = pricebook.LoadConfigFile(bookBands); err != nil {
			return err
		}
	}

	params := pricebook.DefaultParams()
	if params.TotalCost, err = parseAmount("total-cost", bookTotalCost); err != nil {
		return err
	}
	if params.StandingPct, err = parseAmount("standing-pct", bookStandingPct); err != nil {
		return err
	}
	if params.Profile, err = parseProfile(bookProfile); err != nil {
		return err
	}
	params.DurationMonths = bookDuration
	params.Green = bookGreen
	params.Region = strings.ToUpper(strings.TrimSpace(bookRegion))

	snap, err := loadSnapshot()
	if err != nil {
		return err
	}
	book, err := pricebook.Generate(snap.Tariffs, bands, params)
	if err != nil {
		return err
	}

	return writeDocument(cmd, format, bookOutput, documentOptions(output.BookDocument(book)))
}

func runPricebookInit(cmd *cobra.Command, args []string) error {
	if err := pricebook.SaveConfigFile(args[0], pricebook.DefaultConfig(bookName)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d default bands to %s\n", len(pricebook.DefaultBands()), args[0])
	return nil
}
