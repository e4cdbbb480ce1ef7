package pricebook

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"energy-quote/internal/errors"
)

// DateLayout is the layout of Config.Date
const DateLayout = "2006-01-02"

// Config is a named, saved set of band uplifts
type Config struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Notes string `json:"notes,omitempty"`
	Bands []Band `json:"bands"`
}

// DefaultConfig returns the default bands with no uplift, dated today
func DefaultConfig(name string) Config {
	return Config{
		Name:  name,
		Date:  time.Now().Format(DateLayout),
		Bands: DefaultBands(),
	}
}

// ReadConfig decodes a saved uplift config
func ReadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Parsing("failed to decode uplift config", err)
	}
	if len(cfg.Bands) == 0 {
		return Config{}, errors.Newf(errors.TypeParsing, "uplift config %q has no bands", cfg.Name)
	}
	return cfg, nil
}

// WriteConfig encodes cfg as indented JSON
func WriteConfig(w io.Writer, cfg Config) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return errors.Internal("failed to encode uplift config", err)
	}
	return nil
}

// LoadConfigFile reads a saved uplift config from disk
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.TypeInput, err, "failed to open uplift config %s", path)
	}
	defer f.Close()
	return ReadConfig(f)
}

// SaveConfigFile writes cfg to path, stamping today's date when unset
func SaveConfigFile(path string, cfg Config) error {
	if cfg.Date == "" {
		cfg.Date = time.Now().Format(DateLayout)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.TypeInput, err, "failed to create uplift config %s", path)
	}
	if err := WriteConfig(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
