package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dotcommander/autonomy/internal/service"
)

// Version is reported in machine-readable headers. The binary overrides it
// at startup.
var Version = "dev"

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	out        io.Writer
	quiet      bool
	indent     bool
	outputFile string
}

// NewJSONFormatter creates a new JSONFormatter. An empty outputFile writes
// to stdout.
func NewJSONFormatter(quiet bool, indent bool, outputFile string) *JSONFormatter {
	return &JSONFormatter{
		out:        os.Stdout,
		quiet:      quiet,
		indent:     indent,
		outputFile: outputFile,
	}
}

// JSONReport represents the complete JSON report structure
type JSONReport struct {
	Header JSONHeader      `json:"header"`
	Report *service.Report `json:"report"`
}

// JSONHeader contains report metadata
type JSONHeader struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Format writes the report as JSON. Quiet mode suppresses stdout but still
// writes an output file.
func (f *JSONFormatter) Format(r *service.Report) error {
	ts := r.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	report := JSONReport{
		Header: JSONHeader{
			Tool:      "autonomy",
			Version:   Version,
			Timestamp: ts.UTC().Format(time.RFC3339),
		},
		Report: r,
	}

	var (
		jsonBytes []byte
		err       error
	)
	if f.indent {
		jsonBytes, err = json.MarshalIndent(report, "", "  ")
	} else {
		jsonBytes, err = json.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	if f.outputFile != "" {
		if err := os.WriteFile(f.outputFile, append(jsonBytes, '\n'), 0644); err != nil {
			return fmt.Errorf("error writing to file %s: %w", f.outputFile, err)
		}
		return nil
	}
	if f.quiet {
		return nil
	}
	fmt.Fprintln(f.out, string(jsonBytes))
	return nil
}
