package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"energy-quote/core/region"
	"energy-quote/internal/errors"
)

var regionCmd = &cobra.Command{
	Use:   "region <postcode>...",
	Short: "Resolve postcodes to their LDZ",
	Long: `Resolve one or more postcodes to the local distribution zone used for pricing.

Examples:
  energy-quote region "SW1A 1AA"
  energy-quote region G21AA "ne1 4st"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRegion,
}

func init() {
	rootCmd.AddCommand(regionCmd)
}

func runRegion(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POSTCODE\tNORMALIZED\tLDZ")

	missing := 0
	for _, pc := range args {
		code, ok := snap.Regions.Lookup(pc)
		if !ok {
			missing++
			code = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", pc, region.Normalize(pc), code)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if missing > 0 {
		return errors.Newf(errors.TypeRegionNotFound, "%d of %d postcodes matched no region", missing, len(args))
	}
	return nil
}
