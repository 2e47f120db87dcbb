package outputters

import (
	"errors"
	"testing"
	"time"

	"github.com/dotcommander/autonomy/internal/config"
	"github.com/dotcommander/autonomy/internal/service"
)

// =============================================================================
// Mock Formatter for testing
// =============================================================================

type mockFormatter struct {
	formatCalled bool
	formatError  error
	report       *service.Report
}

func (m *mockFormatter) Format(r *service.Report) error {
	m.formatCalled = true
	m.report = r
	return m.formatError
}

// =============================================================================
// Mock FormatterFactory for testing
// =============================================================================

type mockFormatterFactory struct {
	createCalled    bool
	requestedFormat string
	formatter       Formatter
	createError     error
}

func (m *mockFormatterFactory) CreateFormatter(format string) (Formatter, error) {
	m.createCalled = true
	m.requestedFormat = format
	if m.createError != nil {
		return nil, m.createError
	}
	return m.formatter, nil
}

// =============================================================================
// Test constructors
// =============================================================================

func TestNewOutputter(t *testing.T) {
	cfg := &config.Config{UserID: "u1", Format: "console"}

	outputter := NewOutputter(cfg)

	if outputter == nil {
		t.Fatal("NewOutputter() returned nil")
	}
	if outputter.config != cfg {
		t.Errorf("NewOutputter() config = %v, want %v", outputter.config, cfg)
	}
	if _, ok := outputter.factory.(*DefaultFormatterFactory); !ok {
		t.Errorf("NewOutputter() factory type = %T, want *DefaultFormatterFactory", outputter.factory)
	}
}

func TestNewOutputterWithFactory(t *testing.T) {
	cfg := &config.Config{Format: "json"}
	mockFactory := &mockFormatterFactory{}

	outputter := NewOutputterWithFactory(cfg, mockFactory)

	if outputter.factory != mockFactory {
		t.Errorf("NewOutputterWithFactory() factory = %v, want %v", outputter.factory, mockFactory)
	}
}

// =============================================================================
// Test Format method
// =============================================================================

func TestOutputter_Format(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		report      *service.Report
		format      string
		wantFormat  string
		wantUser    string
		keepGenTime bool
	}{
		{"explicit format", &service.Report{}, "markdown", "markdown", "cfg-user", false},
		{"falls back to configured format", &service.Report{}, "", "compact", "cfg-user", false},
		{"keeps report user and time", &service.Report{UserID: "u9", GeneratedAt: fixed}, "json", "json", "u9", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{UserID: "cfg-user", Format: "compact"}
			mockForm := &mockFormatter{}
			mockFactory := &mockFormatterFactory{formatter: mockForm}
			outputter := NewOutputterWithFactory(cfg, mockFactory)

			before := time.Now()
			if err := outputter.Format(tt.report, tt.format); err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			if mockFactory.requestedFormat != tt.wantFormat {
				t.Errorf("requested format = %s, want %s", mockFactory.requestedFormat, tt.wantFormat)
			}
			if !mockForm.formatCalled || mockForm.report != tt.report {
				t.Error("Format() did not pass the report to the formatter")
			}
			if tt.report.UserID != tt.wantUser {
				t.Errorf("UserID = %s, want %s", tt.report.UserID, tt.wantUser)
			}
			if tt.keepGenTime {
				if !tt.report.GeneratedAt.Equal(fixed) {
					t.Errorf("GeneratedAt changed to %v", tt.report.GeneratedAt)
				}
			} else if tt.report.GeneratedAt.Before(before) {
				t.Errorf("GeneratedAt = %v, want now", tt.report.GeneratedAt)
			}
		})
	}
}

func TestOutputter_Format_CreateFormatterError(t *testing.T) {
	expectedErr := errors.New("unsupported format: invalid")
	outputter := NewOutputterWithFactory(&config.Config{}, &mockFormatterFactory{createError: expectedErr})

	err := outputter.Format(&service.Report{}, "invalid")
	if err != expectedErr {
		t.Errorf("Format() error = %v, want %v", err, expectedErr)
	}
}

func TestOutputter_Format_FormatterError(t *testing.T) {
	expectedErr := errors.New("formatter failed")
	mockForm := &mockFormatter{formatError: expectedErr}
	outputter := NewOutputterWithFactory(&config.Config{}, &mockFormatterFactory{formatter: mockForm})

	err := outputter.Format(&service.Report{}, "console")
	if err != expectedErr {
		t.Errorf("Format() error = %v, want %v", err, expectedErr)
	}
	if !mockForm.formatCalled {
		t.Error("Format() did not call formatter.Format()")
	}
}

// =============================================================================
// Test DefaultFormatterFactory
// =============================================================================

func TestDefaultFormatterFactory_CreateFormatter(t *testing.T) {
	cfg := &config.Config{Quiet: true, Output: "/tmp/report.out"}
	factory := NewDefaultFormatterFactory(cfg)

	if factory.cfg != cfg {
		t.Errorf("NewDefaultFormatterFactory() cfg = %v, want %v", factory.cfg, cfg)
	}

	for _, format := range []string{"console", "compact", "json", "markdown"} {
		t.Run(format, func(t *testing.T) {
			formatter, err := factory.CreateFormatter(format)
			if err != nil {
				t.Fatalf("CreateFormatter(%q) error = %v", format, err)
			}
			if formatter == nil {
				t.Fatalf("CreateFormatter(%q) returned nil formatter", format)
			}
		})
	}

	formatter, err := factory.CreateFormatter("xml")
	if err == nil || formatter != nil {
		t.Errorf("CreateFormatter('xml') = %v, %v, want error", formatter, err)
	}
}
