// Package cmd - quote command
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"energy-quote/adapters/loader"
	"energy-quote/adapters/storage"
	"energy-quote/core/output"
	"energy-quote/core/pricing"
	"energy-quote/core/types"
	"energy-quote/internal/config"
	"energy-quote/internal/errors"
	"energy-quote/internal/logging"
)

var (
	quoteSites     string
	quoteFormat    string
	quoteOutput    string
	quoteCustomer  string
	quoteCarbon    bool
	quoteNoMatch   string
	quoteDurations []int
	quoteSalesView bool
	quoteArchive   bool

	linePostcode string
	lineKWh      string
	lineDuration int
	lineSC       string
	lineUR       string
)

// quoteCmd prices a customer site grid
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a customer site grid",
	Long: `Price every site of a customer grid for every contract duration.

The grid is a .xlsx or .csv sheet with Site Name, Post Code and Annual KWH
columns, plus optional per-duration uplift columns such as
"Standing Charge Uplift (12m)" and "Uplift Unit Rate (12m)".

Examples:
  energy-quote quote --sites sites.xlsx
  energy-quote quote --sites sites.csv --customer "Acme Ltd" --carbon -o acme.xlsx
  energy-quote quote --sites sites.xlsx --durations 12,24 --no-match skip --format json`,
	Args: cobra.NoArgs,
	RunE: runQuote,
}

// quoteLineCmd prices a single line
var quoteLineCmd = &cobra.Command{
	Use:   "line",
	Short: "Price one site for one contract duration",
	Args:  cobra.NoArgs,
	RunE:  runQuoteLine,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.AddCommand(quoteLineCmd)

	quoteCmd.Flags().StringVarP(&quoteSites, "sites", "s", "", "site grid (.xlsx or .csv) [REQUIRED]")
	quoteCmd.Flags().StringVarP(&quoteFormat, "format", "f", "", "output format (cli, json, xlsx, pdf)")
	quoteCmd.Flags().StringVarP(&quoteOutput, "output", "o", "", "output file (format inferred from extension)")
	quoteCmd.Flags().StringVar(&quoteCustomer, "customer", "", "customer name printed on the quote")
	quoteCmd.Flags().BoolVar(&quoteCarbon, "carbon", false, "quote the carbon offset products")
	quoteCmd.Flags().StringVar(&quoteNoMatch, "no-match", "", "lines with no tariff: zero, skip or abort (default from config)")
	quoteCmd.Flags().IntSliceVar(&quoteDurations, "durations", nil, "contract durations in months (default from config)")
	quoteCmd.Flags().BoolVar(&quoteSalesView, "sales-view", false, "include base rates, uplifts and margin")
	quoteCmd.Flags().BoolVar(&quoteArchive, "archive", false, "save the priced quote to the archive")
	quoteCmd.MarkFlagRequired("sites")

	quoteLineCmd.Flags().StringVarP(&linePostcode, "postcode", "p", "", "site postcode [REQUIRED]")
	quoteLineCmd.Flags().StringVarP(&lineKWh, "kwh", "k", "", "annual consumption in kWh [REQUIRED]")
	quoteLineCmd.Flags().IntVarP(&lineDuration, "duration", "d", 12, "contract duration in months")
	quoteLineCmd.Flags().StringVar(&lineSC, "sc-uplift", "0", "standing charge uplift, p/day")
	quoteLineCmd.Flags().StringVar(&lineUR, "unit-uplift", "0", "unit rate uplift, p/kWh")
	quoteLineCmd.Flags().BoolVar(&quoteCarbon, "carbon", false, "quote the carbon offset product")
	quoteLineCmd.MarkFlagRequired("postcode")
	quoteLineCmd.MarkFlagRequired("kwh")
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Get()
	log := logging.Named("quote")

	format, err := resolveFormat(quoteFormat, quoteOutput)
	if err != nil {
		return err
	}

	durations := quoteDurations
	if len(durations) == 0 {
		durations = cfg.Pricing.Durations
	}
	noMatch := cfg.NoMatch()
	if quoteNoMatch != "" {
		if noMatch, err = pricing.ParseNoMatchPolicy(quoteNoMatch); err != nil {
			return err
		}
	}

	snap, err := loadSnapshot()
	if err != nil {
		return err
	}
	sites, skipped, err := loader.LoadSites(quoteSites, durations)
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		return errors.Newf(errors.TypeInput, "no priceable sites in %s", quoteSites)
	}

	sheet, err := snap.PriceQuote(ctx, cfg.UpliftCaps(), pricing.QuoteRequest{
		Customer:     quoteCustomer,
		CarbonOffset: quoteCarbon,
		Durations:    durations,
		Sites:        sites,
		NoMatch:      noMatch,
		Concurrency:  cfg.Pricing.Concurrency,
	})
	if err != nil {
		return err
	}
	for _, sk := range skipped {
		sheet.Warnings = append(sheet.Warnings, sk.Warning())
	}
	log.Info("quote priced",
		zap.String("customer", sheet.Customer),
		logging.Snapshot(snap.ID),
		zap.Int("lines", len(sheet.Lines)),
		zap.Int("warnings", len(sheet.Warnings)),
	)

	if quoteArchive {
		if err := archiveSheet(ctx, cmd, sheet); err != nil {
			return err
		}
	}

	doc := documentOptions(output.QuoteDocument(sheet))
	doc.SalesView = quoteSalesView || cfg.Output.SalesView
	return writeDocument(cmd, format, quoteOutput, doc)
}

func archiveSheet(ctx context.Context, cmd *cobra.Command, sheet *pricing.QuoteSheet) error {
	return withArchive(func(archive storage.Store) error {
		q := storage.NewStoredQuote(sheet)
		if err := archive.Save(ctx, q); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Archived quote %s\n", q.ID)
		return nil
	})
}

func runQuoteLine(cmd *cobra.Command, args []string) error {
	kwh, err := parseAmount("kwh", lineKWh)
	if err != nil {
		return err
	}
	sc, err := parseAmount("sc-uplift", lineSC)
	if err != nil {
		return err
	}
	ur, err := parseAmount("unit-uplift", lineUR)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot()
	if err != nil {
		return err
	}

	res, err := snap.Pricer(config.Get().UpliftCaps()).PriceLine(types.QuoteLineInput{
		Postcode:               linePostcode,
		AnnualConsumptionKWh:   kwh,
		ContractDurationMonths: lineDuration,
		CarbonOffsetRequired:   quoteCarbon,
		StandingChargeUplift:   sc,
		UnitRateUplift:         ur,
	})
	if err != nil {
		return err
	}

	printLine(cmd, res)
	return nil
}

func printLine(cmd *cobra.Command, res types.QuoteLineResult) {
	w := cmd.OutOrStdout()
	cur := config.Get().Pricing.Currency.Symbol()

	fmt.Fprintln(w, "┌──────────────────────────────────────────────┐")
	fmt.Fprintf(w, "│ %-22s %21s │\n", "Region", res.RegionCode)
	if !res.Matched {
		fmt.Fprintf(w, "│ %-44s │\n", "No tariff matched; base rates are zero")
	}
	fmt.Fprintln(w, "├──────────────────────────────────────────────┤")
	fmt.Fprintf(w, "│ %-22s %21s │\n", "Standing charge p/day", res.StandingChargeSell.StringFixed(types.RatePlaces))
	fmt.Fprintf(w, "│ %-22s %21s │\n", "Unit rate p/kWh", res.UnitRateSell.StringFixed(types.RatePlaces))
	fmt.Fprintf(w, "│ %-22s %21s │\n", "Total annual cost", cur+res.TotalAnnualCost.StringFixed(types.MoneyPlaces))
	fmt.Fprintln(w, "├──────────────────────────────────────────────┤")
	fmt.Fprintf(w, "│ %-22s %21s │\n", "Base annual cost", cur+res.BaseAnnualCost.StringFixed(types.MoneyPlaces))
	fmt.Fprintf(w, "│ %-22s %21s │\n", "Margin", cur+res.Margin.StringFixed(types.MoneyPlaces))
	fmt.Fprintln(w, "└──────────────────────────────────────────────┘")
	if res.UpliftWasCapped {
		fmt.Fprintln(w, "\nNote: uplift was capped")
	}
}
