package outputters

import (
	"fmt"
	"time"

	"github.com/dotcommander/autonomy/internal/config"
	"github.com/dotcommander/autonomy/internal/output"
	"github.com/dotcommander/autonomy/internal/service"
)

// Formatter renders a report.
type Formatter interface {
	Format(r *service.Report) error
}

// FormatterFactory creates a Formatter for a format name.
type FormatterFactory interface {
	CreateFormatter(format string) (Formatter, error)
}

// DefaultFormatterFactory builds the formatters of the output package from
// the loaded configuration.
type DefaultFormatterFactory struct {
	cfg *config.Config
}

// NewDefaultFormatterFactory creates a new DefaultFormatterFactory
func NewDefaultFormatterFactory(cfg *config.Config) *DefaultFormatterFactory {
	return &DefaultFormatterFactory{cfg: cfg}
}

// CreateFormatter returns the formatter registered for format.
func (f *DefaultFormatterFactory) CreateFormatter(format string) (Formatter, error) {
	switch format {
	case "console":
		return output.NewConsoleFormatter(f.cfg.Quiet, f.cfg.Verbose), nil
	case "compact":
		return output.NewCompactFormatter(f.cfg.Quiet, f.cfg.Verbose), nil
	case "json":
		return output.NewJSONFormatter(f.cfg.Quiet, true, f.cfg.Output), nil
	case "markdown":
		return output.NewMarkdownFormatter(f.cfg.Quiet, f.cfg.Verbose, f.cfg.Output), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Outputter handles output formatting
type Outputter struct {
	config  *config.Config
	factory FormatterFactory
}

// NewOutputter creates a new Outputter
func NewOutputter(config *config.Config) *Outputter {
	return NewOutputterWithFactory(config, NewDefaultFormatterFactory(config))
}

// NewOutputterWithFactory creates an Outputter with a custom factory.
func NewOutputterWithFactory(config *config.Config, factory FormatterFactory) *Outputter {
	return &Outputter{
		config:  config,
		factory: factory,
	}
}

// Format renders the report in the given format. An empty format falls
// back to the configured one.
func (o *Outputter) Format(r *service.Report, format string) error {
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}
	if r.UserID == "" {
		r.UserID = o.config.UserID
	}
	if format == "" {
		format = o.config.Format
	}

	formatter, err := o.factory.CreateFormatter(format)
	if err != nil {
		return err
	}
	return formatter.Format(r)
}
