// Package cmd - tariff table commands
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"energy-quote/adapters/loader"
	"energy-quote/core/pricing"
	"energy-quote/internal/errors"
)

var tariffCmd = &cobra.Command{
	Use:   "tariff",
	Short: "Inspect and check supplier tariff tables",
}

var tariffSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Show the tariff row a line would be priced from",
	Long: `Select the cheapest tariff row for a region, consumption, contract
duration and carbon offset flag, exactly as quoting does.

Examples:
  energy-quote tariff select --region NW --kwh 5000 --duration 12
  energy-quote tariff select --region SC --kwh 30000 --duration 24 --carbon`,
	Args: cobra.NoArgs,
	RunE: runTariffSelect,
}

var tariffValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a supplier flat file without loading it",
	Long: `Parse and validate a supplier flat file (.xlsx or .csv).

Every rejected row is listed with its sheet row number. The command
exits non-zero when any row is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runTariffValidate,
}

var tariffInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize the configured reference tables",
	Args:  cobra.NoArgs,
	RunE:  runTariffInfo,
}

var (
	selectRegion   string
	selectKWh      string
	selectDuration int
	selectCarbon   bool
	infoJSON       bool
)

func init() {
	rootCmd.AddCommand(tariffCmd)
	tariffCmd.AddCommand(tariffSelectCmd)
	tariffCmd.AddCommand(tariffValidateCmd)
	tariffCmd.AddCommand(tariffInfoCmd)

	tariffSelectCmd.Flags().StringVarP(&selectRegion, "region", "r", "", "LDZ code [REQUIRED]")
	tariffSelectCmd.Flags().StringVarP(&selectKWh, "kwh", "k", "", "annual consumption in kWh [REQUIRED]")
	tariffSelectCmd.Flags().IntVarP(&selectDuration, "duration", "d", 12, "contract duration in months")
	tariffSelectCmd.Flags().BoolVar(&selectCarbon, "carbon", false, "select carbon offset rows")
	tariffSelectCmd.MarkFlagRequired("region")
	tariffSelectCmd.MarkFlagRequired("kwh")

	tariffInfoCmd.Flags().BoolVar(&infoJSON, "json", false, "print the summary as JSON")
}

func runTariffSelect(cmd *cobra.Command, args []string) error {
	kwh, err := parseAmount("kwh", selectKWh)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}

	code := strings.ToUpper(strings.TrimSpace(selectRegion))
	row, ok := snap.Tariffs.Select(code, kwh, selectDuration, selectCarbon)
	if !ok {
		return errors.NoTariffMatch(code, selectDuration)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Region:          %s\n", row.RegionCode)
	fmt.Fprintf(w, "Duration:        %d months\n", row.ContractDurationMonths)
	fmt.Fprintf(w, "Band:            %s - %s kWh\n", row.MinAnnualConsumption, row.MaxAnnualConsumption)
	fmt.Fprintf(w, "Carbon offset:   %s\n", yesNo(row.CarbonOffset))
	fmt.Fprintf(w, "Standing charge: %s p/day\n", row.StandingCharge.String())
	fmt.Fprintf(w, "Unit rate:       %s p/kWh\n", row.UnitRate.String())
	if row.SourceRow > 0 {
		fmt.Fprintf(w, "Sheet row:       %d\n", row.SourceRow)
	}
	return nil
}

func runTariffValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, err := loader.FormatFor(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(errors.TypeInput, err, "failed to open %s", path)
	}
	defer f.Close()

	rows, err := loader.ReadTariffs(f, format)
	if err == nil {
		var table *pricing.TariffTable
		if table, err = pricing.NewTariffTable(rows); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d rows, regions %s, durations %v\n",
				path, table.Len(), strings.Join(table.Regions(), ","), table.Durations())
			return nil
		}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✗ %s\n", path)
	if e, ok := errors.From(err); ok {
		if problems, ok := e.Context["rows"].([]string); ok {
			for _, p := range problems {
				fmt.Fprintf(w, "  %s\n", p)
			}
		}
	}
	return err
}

func runTariffInfo(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}
	info := snap.Info()

	if infoJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Snapshot:     %s\n", info.ID)
	fmt.Fprintf(w, "Content hash: %s\n", info.ContentHash)
	fmt.Fprintf(w, "Source:       %s\n", info.Source)
	fmt.Fprintf(w, "Region rows:  %d\n", info.RegionRows)
	fmt.Fprintf(w, "Tariff rows:  %d\n", info.TariffRows)
	fmt.Fprintf(w, "Regions:      %s\n", strings.Join(info.Regions, ", "))
	fmt.Fprintf(w, "Durations:    %v\n", info.Durations)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
