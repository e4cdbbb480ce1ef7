// Package loader reads reference tables and site grids from CSV and XLSX
// files. It is the I/O edge in front of the pricing engine: everything it
// returns is already normalized and validated.
package loader

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"energy-quote/internal/errors"
)

// Format is a tabular file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFor picks the format from a file name's extension
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", errors.Newf(errors.TypeInput, "unsupported file format %q: must be .csv or .xlsx", filepath.Ext(name))
	}
}

// sheet is a header row plus data rows
type sheet struct {
	headers []string
	rows    [][]string
	index   map[string]int
}

// readSheet reads the first worksheet (xlsx) or the whole file (csv)
func readSheet(r io.Reader, format Format) (*sheet, error) {
	var (
		all [][]string
		err error
	)
	switch format {
	case FormatCSV:
		all, err = parseCSV(r)
	case FormatXLSX:
		all, err = parseExcel(r)
	default:
		return nil, errors.Newf(errors.TypeInput, "unsupported file format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errors.New(errors.TypeParsing, "file has no header row")
	}

	s := &sheet{headers: all[0], rows: all[1:], index: make(map[string]int, len(all[0]))}
	for i, h := range s.headers {
		key := headerKey(h)
		if _, dup := s.index[key]; !dup {
			s.index[key] = i
		}
	}
	return s, nil
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Parsing("failed to parse CSV", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func parseExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Parsing("failed to open Excel file", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, errors.Parsing("failed to read sheet", err)
	}
	return rows, nil
}

// headerKey folds a column header for lookup
func headerKey(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// require fails with PARSING_ERROR listing every missing column
func (s *sheet) require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !s.has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.Newf(errors.TypeParsing, "missing required columns: %s", strings.Join(missing, ", ")).
			WithContext("columns", missing)
	}
	return nil
}

func (s *sheet) has(column string) bool {
	_, ok := s.index[headerKey(column)]
	return ok
}

// firstOf returns the first present column of the aliases
func (s *sheet) firstOf(aliases ...string) (string, bool) {
	for _, a := range aliases {
		if s.has(a) {
			return a, true
		}
	}
	return "", false
}

// cell returns the trimmed value of column in row; short rows read as empty
func (s *sheet) cell(row []string, column string) string {
	i, ok := s.index[headerKey(column)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// blank reports whether every cell of row is empty
func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sheetRow is the 1-based spreadsheet row of data row i
func sheetRow(i int) int {
	return i + 2
}

// parseDecimal reads a number cell. Empty cells read as zero; currency
// symbols and thousands separators are ignored.
func parseDecimal(v string) (decimal.Decimal, error) {
	v = strings.NewReplacer(",", "", "£", "", "€", "", "p", "").Replace(strings.TrimSpace(v))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		f, ferr := cast.ToFloat64E(v)
		if ferr != nil {
			return decimal.Zero, fmt.Errorf("not a number: %q", v)
		}
		return decimal.NewFromFloat(f), nil
	}
	return d, nil
}

// errBlank marks an empty cell in a column that must carry a value
var errBlank = stderrors.New("missing value")

// requiredDecimal is parseDecimal for cells that may not be left empty
func requiredDecimal(v string) (decimal.Decimal, error) {
	if strings.TrimSpace(v) == "" {
		return decimal.Zero, errBlank
	}
	return parseDecimal(v)
}

// requiredInt is parseInt for cells that may not be left empty
func requiredInt(v string) (int, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errBlank
	}
	return parseInt(v)
}

// parseInt reads a whole-number cell such as a contract duration.
// Excel often renders whole numbers as "12.0".
func parseInt(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
	if err == nil && d.Equal(d.Truncate(0)) {
		return int(d.IntPart()), nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("not a whole number: %q", v)
	}
	return n, nil
}

// parseBool reads flag cells: true/false, yes/no, y/n, 1/0
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y":
		return true, nil
	case "no", "n", "":
		return false, nil
	}
	b, err := cast.ToBoolE(strings.ToLower(strings.TrimSpace(v)))
	if err != nil {
		return false, fmt.Errorf("not a yes/no value: %q", v)
	}
	return b, nil
}
