package output

import (
	"sync"

	"energy-quote/internal/errors"
)

// Registry is the default FormatterRegistry
type Registry struct {
	mu         sync.RWMutex
	formatters map[Format]Formatter
	order      []Format
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{formatters: make(map[Format]Formatter)}
}

// Register adds a formatter; registering a format twice is an error
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Format()]; exists {
		return errors.Newf(errors.TypeInternal, "formatter %s already registered", f.Format())
	}
	r.formatters[f.Format()] = f
	r.order = append(r.order, f.Format())
	return nil
}

// GetFormatter returns the formatter for format
func (r *Registry) GetFormatter(format Format) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[format]
	return f, ok
}

// GetAll returns formatters in registration order
func (r *Registry) GetAll() []Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Formatter, 0, len(r.order))
	for _, f := range r.order {
		out = append(out, r.formatters[f])
	}
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry holding every built-in formatter
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, f := range []Formatter{CLIFormatter{}, JSONFormatter{}, XLSXFormatter{}, PDFFormatter{}} {
			_ = defaultRegistry.Register(f)
		}
	})
	return defaultRegistry
}

// For returns the built-in formatter for format
func For(format Format) (Formatter, error) {
	f, ok := Default().GetFormatter(format)
	if !ok {
		return nil, errors.Newf(errors.TypeInput, "no formatter for %q", format)
	}
	return f, nil
}
