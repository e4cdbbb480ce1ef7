package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-quote/core/pricing"
	"energy-quote/internal/errors"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)

	caps := cfg.UpliftCaps()
	assert.Equal(t, "100", caps.MaxStandingChargeUplift.String())
	assert.Equal(t, "3", caps.MaxUnitRateUplift.String())
	assert.Equal(t, []int{12, 24, 36}, cfg.Pricing.Durations)
	assert.Equal(t, pricing.NoMatchZero, cfg.NoMatch())
}

func TestLoadHCL(t *testing.T) {
	path := writeFile(t, "quote.hcl", `
pricing {
  max_standing_charge_uplift = 80
  max_unit_rate_uplift       = 2.5
  durations                  = [12, 24]
  no_match_policy            = "skip"
}

data {
  tariff_table = "rates/october.xlsx"
}

server {
  addr = ":9090"
}

archive {
  backend = "memory"
}

logging {
  level = "debug"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Pricing.MaxStandingChargeUplift)
	assert.Equal(t, "2.5", cfg.UpliftCaps().MaxUnitRateUplift.String())
	assert.Equal(t, []int{12, 24}, cfg.Pricing.Durations)
	assert.Equal(t, pricing.NoMatchSkip, cfg.NoMatch())
	assert.Equal(t, "rates/october.xlsx", cfg.Data.TariffTable)
	assert.Equal(t, Default().Data.RegionTable, cfg.Data.RegionTable)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Archive.Backend)
	assert.Equal(t, Default().Archive.Path, cfg.Archive.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "quote.json", `{"pricing": {"max_unit_rate_uplift": 1.25}, "output": {"sales_view": true}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.25, cfg.Pricing.MaxUnitRateUplift)
	assert.Equal(t, 100.0, cfg.Pricing.MaxStandingChargeUplift)
	assert.True(t, cfg.Output.SalesView)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"syntax error", "bad.hcl", "pricing {"},
		{"negative cap", "neg.hcl", "pricing {\n  max_unit_rate_uplift = -1\n}\n"},
		{"unknown policy", "policy.hcl", "pricing {\n  no_match_policy = \"ignore\"\n}\n"},
		{"bad currency", "cur.hcl", "pricing {\n  currency = \"usd\"\n}\n"},
		{"bad archive", "archive.hcl", "archive {\n  backend = \"s3\"\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeConfig))
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUOTE_MAX_SC_UPLIFT", "50")
	t.Setenv("QUOTE_MAX_UNIT_UPLIFT", "1.5")
	t.Setenv("QUOTE_DURATIONS", "12, 36")
	t.Setenv("QUOTE_HTTP_ADDR", "127.0.0.1:7000")
	t.Setenv("QUOTE_REGION_TABLE", "/srv/postcodes.csv")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "50", cfg.UpliftCaps().MaxStandingChargeUplift.String())
	assert.Equal(t, "1.5", cfg.UpliftCaps().MaxUnitRateUplift.String())
	assert.Equal(t, []int{12, 36}, cfg.Pricing.Durations)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, "/srv/postcodes.csv", cfg.Data.RegionTable)
}

func TestEnvOverrideRejectsGarbage(t *testing.T) {
	t.Setenv("QUOTE_MAX_SC_UPLIFT", "lots")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestSaveThenLoad(t *testing.T) {
	cfg := Default()
	cfg.Pricing.MaxUnitRateUplift = 2
	cfg.Output.CompanyName = "Northern Gas Brokers"

	path := filepath.Join(t.TempDir(), "nested", "quote.json")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, loaded.Pricing.MaxUnitRateUplift)
	assert.Equal(t, "Northern Gas Brokers", loaded.Output.CompanyName)

	assert.Error(t, cfg.Save(filepath.Join(t.TempDir(), "quote.hcl")))
}
