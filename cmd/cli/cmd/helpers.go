package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"energy-quote/adapters/loader"
	"energy-quote/adapters/storage"
	"energy-quote/core/output"
	"energy-quote/core/pricing"
	"energy-quote/core/types"
	"energy-quote/internal/config"
	"energy-quote/internal/errors"
)

// loadSnapshot reads the configured region and tariff tables
func loadSnapshot() (*pricing.Snapshot, error) {
	cfg := config.Get()
	return loader.LoadSnapshot(cfg.Data.RegionTable, cfg.Data.TariffTable)
}

// openArchive opens the configured quote archive; nil when disabled
func openArchive() (storage.Store, error) {
	cfg := config.Get()
	return storage.StoreFactory(storage.Backend(cfg.Archive.Backend), cfg.Archive.Path)
}

// resolveFormat picks the output format from the flag, then the output
// file extension, then the configured default
func resolveFormat(flag, outPath string) (output.Format, error) {
	if flag != "" {
		return output.ParseFormat(flag)
	}
	if outPath != "" {
		if f, err := output.ParseFormat(strings.TrimPrefix(filepath.Ext(outPath), ".")); err == nil {
			return f, nil
		}
	}
	return output.ParseFormat(config.Get().Output.DefaultFormat)
}

// writeDocument renders doc to outPath, or to stdout when outPath is empty
func writeDocument(cmd *cobra.Command, format output.Format, outPath string, doc *output.Document) error {
	f, err := output.For(format)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		file, err := os.Create(outPath)
		if err != nil {
			return errors.Wrapf(errors.TypeInput, err, "failed to create %s", outPath)
		}
		defer file.Close()
		w = file
	} else if format == output.FormatXLSX || format == output.FormatPDF {
		return errors.Newf(errors.TypeInput, "%s output needs --output", format)
	}

	if err := f.Render(w, doc); err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outPath)
	}
	return nil
}

// documentOptions applies the configured currency and branding
func documentOptions(doc *output.Document) *output.Document {
	cfg := config.Get()
	doc.Currency = cfg.Pricing.Currency
	doc.CompanyName = cfg.Output.CompanyName
	return doc
}

// parseProfile parses "70/20/10" as day/night/evening-and-weekend percentages
func parseProfile(s string) (types.ProfileSplit, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return types.ProfileSplit{}, errors.Newf(errors.TypeInput, "profile %q: want day/night/evw, e.g. 70/20/10", s)
	}
	var vals [3]decimal.Decimal
	for i, p := range parts {
		v, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return types.ProfileSplit{}, errors.Wrapf(errors.TypeInput, err, "profile %q", s)
		}
		vals[i] = v
	}
	profile := types.ProfileSplit{Day: vals[0], Night: vals[1], EveningWeekend: vals[2]}
	if err := pricing.ValidateProfile(profile); err != nil {
		return types.ProfileSplit{}, err
	}
	return profile, nil
}

// parseAmount parses a decimal flag value
func parseAmount(name, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.TypeInput, err, "--%s", name)
	}
	return d, nil
}
