package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter writes indented JSON
type JSONFormatter struct{}

// Format returns FormatJSON
func (JSONFormatter) Format() Format { return FormatJSON }

// ContentType returns application/json
func (JSONFormatter) ContentType() string { return "application/json" }

// Render writes the quote or book. Base rates and margin are part of the
// quote lines; callers serving customers should render xlsx or pdf instead.
func (JSONFormatter) Render(w io.Writer, doc *Document) error {
	if err := doc.validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if doc.Quote != nil {
		return enc.Encode(doc.Quote)
	}
	return enc.Encode(doc.Book)
}
