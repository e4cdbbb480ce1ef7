// Package output renders priced quotes and price books.
// This package produces human and machine-readable outputs.
package output

import (
	"io"
	"strings"

	"energy-quote/core/pricebook"
	"energy-quote/core/pricing"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatXLSX is an Excel workbook
	FormatXLSX Format = "xlsx"

	// FormatPDF is a printable quote document
	FormatPDF Format = "pdf"
)

// ParseFormat parses a format name, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCLI, FormatJSON, FormatXLSX, FormatPDF:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	case "", "table":
		return FormatCLI, nil
	default:
		return "", errors.Newf(errors.TypeInput, "unknown output format %q", s)
	}
}

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// ContentType is the MIME type of the rendered output
	ContentType() string

	// Render produces output for the given document
	Render(w io.Writer, doc *Document) error
}

// Document is what a formatter renders: a priced quote or a price book
type Document struct {
	// Quote is a priced batch, nil when rendering a price book
	Quote *pricing.QuoteSheet `json:"quote,omitempty"`

	// Book is a generated price book, nil when rendering a quote
	Book *pricebook.Book `json:"book,omitempty"`

	// Currency selects the money symbol
	Currency types.Currency `json:"currency"`

	// CompanyName heads quote documents
	CompanyName string `json:"company_name,omitempty"`

	// SalesView adds base rates, uplifts and margin. Never set it on
	// documents sent to customers.
	SalesView bool `json:"-"`
}

// QuoteDocument wraps a quote sheet with default options
func QuoteDocument(sheet *pricing.QuoteSheet) *Document {
	return &Document{Quote: sheet, Currency: types.CurrencyGBP}
}

// BookDocument wraps a price book with default options
func BookDocument(book *pricebook.Book) *Document {
	return &Document{Book: book, Currency: types.CurrencyGBP}
}

func (d *Document) validate() error {
	if d == nil || (d.Quote == nil && d.Book == nil) {
		return errors.New(errors.TypeInput, "nothing to render")
	}
	return nil
}

// FormatterRegistry manages formatter registration
type FormatterRegistry interface {
	// Register adds a formatter to the registry
	Register(formatter Formatter) error

	// GetFormatter returns a formatter for a format type
	GetFormatter(format Format) (Formatter, bool)

	// GetAll returns all registered formatters
	GetAll() []Formatter
}
