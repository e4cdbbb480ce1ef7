// Package config provides configuration management.
//
// Configuration is read from an HCL file (native syntax or HCL-JSON, picked
// by extension), then overridden by QUOTE_* environment variables, which may
// come from a .env file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"energy-quote/core/pricing"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
	"energy-quote/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Pricing contains pricing configuration
	Pricing PricingConfig `json:"pricing"`

	// Data locates the reference tables
	Data DataConfig `json:"data"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Server contains HTTP server configuration
	Server ServerConfig `json:"server"`

	// Archive selects where priced quotes are kept
	Archive ArchiveConfig `json:"archive"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// Currency is the quote currency
	Currency types.Currency `json:"currency"`

	// MaxStandingChargeUplift caps the standing charge uplift (p/day)
	MaxStandingChargeUplift float64 `json:"max_standing_charge_uplift"`

	// MaxUnitRateUplift caps the unit rate uplift (p/kWh)
	MaxUnitRateUplift float64 `json:"max_unit_rate_uplift"`

	// Durations are the contract lengths quoted side by side
	Durations []int `json:"durations"`

	// NoMatchPolicy is zero, skip or abort
	NoMatchPolicy string `json:"no_match_policy"`

	// Concurrency bounds parallel line pricing in a batch
	Concurrency int `json:"concurrency"`
}

// DataConfig locates the reference tables
type DataConfig struct {
	// RegionTable is the postcode to LDZ table (.csv or .xlsx)
	RegionTable string `json:"region_table"`

	// TariffTable is the supplier flat file (.xlsx or .csv)
	TariffTable string `json:"tariff_table"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format
	DefaultFormat string `json:"default_format"`

	// SalesView adds the internal base/uplift/margin sheet to workbooks
	SalesView bool `json:"sales_view"`

	// CompanyName is printed on quote documents
	CompanyName string `json:"company_name"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr"`

	// MaxUploadMB bounds rate table uploads
	MaxUploadMB int `json:"max_upload_mb"`

	// ShutdownTimeoutSeconds bounds graceful shutdown
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds"`
}

// ArchiveConfig selects the quote archive backend
type ArchiveConfig struct {
	// Backend is file, memory or none
	Backend string `json:"backend"`

	// Path is the file backend's directory
	Path string `json:"path"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Pricing: PricingConfig{
			Currency:                types.CurrencyGBP,
			MaxStandingChargeUplift: 100,
			MaxUnitRateUplift:       3,
			Durations:               []int{12, 24, 36},
			NoMatchPolicy:           string(pricing.NoMatchZero),
			Concurrency:             pricing.DefaultConcurrency,
		},
		Data: DataConfig{
			RegionTable: filepath.Join("data", "postcodes.csv"),
			TariffTable: filepath.Join("data", "flat_file.xlsx"),
		},
		Output: OutputConfig{
			DefaultFormat: "cli",
			SalesView:     false,
			CompanyName:   "Energy Quote",
		},
		Server: ServerConfig{
			Addr:                   ":8080",
			MaxUploadMB:            32,
			ShutdownTimeoutSeconds: 10,
		},
		Archive: ArchiveConfig{
			Backend: "file",
			Path:    filepath.Join(".energy-quote", "quotes"),
		},
		Logging: logging.DefaultConfig(),
	}
}

// UpliftCaps returns the configured caps for the pricer
func (c *Config) UpliftCaps() types.UpliftCaps {
	return types.UpliftCaps{
		MaxStandingChargeUplift: decimal.NewFromFloat(c.Pricing.MaxStandingChargeUplift),
		MaxUnitRateUplift:       decimal.NewFromFloat(c.Pricing.MaxUnitRateUplift),
	}
}

// NoMatch returns the parsed no-match policy
func (c *Config) NoMatch() pricing.NoMatchPolicy {
	p, err := pricing.ParseNoMatchPolicy(c.Pricing.NoMatchPolicy)
	if err != nil {
		return pricing.NoMatchZero
	}
	return p
}

// Validate checks the effective configuration
func (c *Config) Validate() error {
	if c.Pricing.MaxStandingChargeUplift < 0 || c.Pricing.MaxUnitRateUplift < 0 {
		return errors.New(errors.TypeConfig, "uplift caps must not be negative")
	}
	for _, d := range c.Pricing.Durations {
		if d <= 0 {
			return errors.Newf(errors.TypeConfig, "invalid contract duration %d", d)
		}
	}
	if _, err := pricing.ParseNoMatchPolicy(c.Pricing.NoMatchPolicy); err != nil {
		return errors.Config("invalid no_match_policy", err)
	}
	switch c.Archive.Backend {
	case "file", "memory", "none":
	default:
		return errors.Newf(errors.TypeConfig, "unknown archive backend %q", c.Archive.Backend)
	}
	switch c.Pricing.Currency {
	case types.CurrencyGBP, types.CurrencyEUR:
	default:
		return errors.Newf(errors.TypeConfig, "unsupported currency %q", c.Pricing.Currency)
	}
	return nil
}

// Load loads configuration from a file, then applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			var file fileConfig
			if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
				return nil, errors.Config("failed to decode "+path, err)
			}
			file.apply(cfg)
		} else if !os.IsNotExist(err) {
			return nil, errors.Config("failed to stat "+path, err)
		}
	}

	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a file as HCL-JSON, loadable again with Load
func (c *Config) Save(path string) error {
	if filepath.Ext(path) != ".json" {
		return errors.Newf(errors.TypeConfig, "config can only be saved as .json, got %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// fileConfig mirrors Config for decoding. Blocks and attributes are
// optional; only what the file sets overrides the defaults.
type fileConfig struct {
	Version *string         `hcl:"version,optional"`
	Pricing *filePricing    `hcl:"pricing,block"`
	Data    *fileData       `hcl:"data,block"`
	Output  *fileOutput     `hcl:"output,block"`
	Server  *fileServer     `hcl:"server,block"`
	Archive *fileArchive    `hcl:"archive,block"`
	Logging *logging.Config `hcl:"logging,block"`
}

type filePricing struct {
	Currency                *string  `hcl:"currency,optional"`
	MaxStandingChargeUplift *float64 `hcl:"max_standing_charge_uplift,optional"`
	MaxUnitRateUplift       *float64 `hcl:"max_unit_rate_uplift,optional"`
	Durations               []int    `hcl:"durations,optional"`
	NoMatchPolicy           *string  `hcl:"no_match_policy,optional"`
	Concurrency             *int     `hcl:"concurrency,optional"`
}

type fileData struct {
	RegionTable *string `hcl:"region_table,optional"`
	TariffTable *string `hcl:"tariff_table,optional"`
}

type fileOutput struct {
	DefaultFormat *string `hcl:"default_format,optional"`
	SalesView     *bool   `hcl:"sales_view,optional"`
	CompanyName   *string `hcl:"company_name,optional"`
}

type fileServer struct {
	Addr                   *string `hcl:"addr,optional"`
	MaxUploadMB            *int    `hcl:"max_upload_mb,optional"`
	ShutdownTimeoutSeconds *int    `hcl:"shutdown_timeout_seconds,optional"`
}

type fileArchive struct {
	Backend *string `hcl:"backend,optional"`
	Path    *string `hcl:"path,optional"`
}

func (f *fileConfig) apply(c *Config) {
	setString(&c.Version, f.Version)

	if p := f.Pricing; p != nil {
		if p.Currency != nil {
			c.Pricing.Currency = types.Currency(strings.ToUpper(*p.Currency))
		}
		setFloat(&c.Pricing.MaxStandingChargeUplift, p.MaxStandingChargeUplift)
		setFloat(&c.Pricing.MaxUnitRateUplift, p.MaxUnitRateUplift)
		if len(p.Durations) > 0 {
			c.Pricing.Durations = p.Durations
		}
		setString(&c.Pricing.NoMatchPolicy, p.NoMatchPolicy)
		setInt(&c.Pricing.Concurrency, p.Concurrency)
	}

	if d := f.Data; d != nil {
		setString(&c.Data.RegionTable, d.RegionTable)
		setString(&c.Data.TariffTable, d.TariffTable)
	}

	if o := f.Output; o != nil {
		setString(&c.Output.DefaultFormat, o.DefaultFormat)
		if o.SalesView != nil {
			c.Output.SalesView = *o.SalesView
		}
		setString(&c.Output.CompanyName, o.CompanyName)
	}

	if s := f.Server; s != nil {
		setString(&c.Server.Addr, s.Addr)
		setInt(&c.Server.MaxUploadMB, s.MaxUploadMB)
		setInt(&c.Server.ShutdownTimeoutSeconds, s.ShutdownTimeoutSeconds)
	}

	if a := f.Archive; a != nil {
		setString(&c.Archive.Backend, a.Backend)
		setString(&c.Archive.Path, a.Path)
	}

	if l := f.Logging; l != nil {
		if l.Level != "" {
			c.Logging.Level = l.Level
		}
		if l.Format != "" {
			c.Logging.Format = l.Format
		}
		if l.Output != "" {
			c.Logging.Output = l.Output
		}
		c.Logging.Development = c.Logging.Development || l.Development
	}
}

// applyEnv applies QUOTE_* overrides
func applyEnv(c *Config) error {
	if v, ok := lookup("QUOTE_MAX_SC_UPLIFT"); ok {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return errors.Config("QUOTE_MAX_SC_UPLIFT", err)
		}
		c.Pricing.MaxStandingChargeUplift = f
	}
	if v, ok := lookup("QUOTE_MAX_UNIT_UPLIFT"); ok {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return errors.Config("QUOTE_MAX_UNIT_UPLIFT", err)
		}
		c.Pricing.MaxUnitRateUplift = f
	}
	if v, ok := lookup("QUOTE_DURATIONS"); ok {
		durations, err := parseDurations(v)
		if err != nil {
			return errors.Config("QUOTE_DURATIONS", err)
		}
		c.Pricing.Durations = durations
	}
	if v, ok := lookup("QUOTE_NO_MATCH"); ok {
		c.Pricing.NoMatchPolicy = v
	}
	if v, ok := lookup("QUOTE_REGION_TABLE"); ok {
		c.Data.RegionTable = v
	}
	if v, ok := lookup("QUOTE_TARIFF_TABLE"); ok {
		c.Data.TariffTable = v
	}
	if v, ok := lookup("QUOTE_HTTP_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := lookup("QUOTE_ARCHIVE_DIR"); ok {
		c.Archive.Path = v
	}
	if v, ok := lookup("QUOTE_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	return nil
}

func parseDurations(v string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := cast.ToIntE(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
