package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/service"
	"github.com/dotcommander/autonomy/internal/trend"
)

func TestMarkdownFormatter_Format(t *testing.T) {
	tests := []struct {
		name            string
		report          *service.Report
		quiet           bool
		verbose         bool
		wantContains    []string
		wantNotContains []string
	}{
		{
			name:   "full report",
			report: sampleReport(),
			wantContains: []string{
				"# Autonomy Report",
				"**Generated:** 2025-05-02 08:00:00",
				"| a1 | 11 | ✅ ok |",
				"| a2 | 11 | ⚠️ 8 or more identical answers in a row |",
				"| Epistemic autonomy | 83.3 | 75.1-91.5 | 0.81 | high |",
				"| Reflective functioning | 50.0 | 40.0-60.0 | n/a | moderate |",
				"| Actively open-minded thinking | - | - | - | not measured |",
				"**Composite autonomy:** 48.3",
				"- Current: 7 (current)",
				"- Longest: 9",
				"Based on 4 snapshots.",
				"| EAI | ↑ improving | +12.5 |",
				"| Composite | ↑ improving | +5.5 |",
				"- ★ Reached a 7-day streak",
				"- 🔥 **Week Warrior** - Maintain a 7-day streak",
				"| 🔥 Week Warrior | common | ✅ unlocked 2025-05-02 |",
				"| 💭 Deep Thinker | uncommon | 40% |",
			},
			wantNotContains: []string{"Epistemic Autonomy |"},
		},
		{
			name:         "verbose lists locked badges",
			report:       sampleReport(),
			verbose:      true,
			wantContains: []string{"| 🏛️ Epistemic Autonomy | epic | 0% |"},
		},
		{
			name: "activity import",
			report: &service.Report{
				GeneratedAt: reportTime,
				Reflections: 2,
				Imported:    map[activity.Module]int{activity.ModuleSourceAudit: 4},
			},
			wantContains:    []string{"## Recorded Activity", "- reflections: 2", "- source_audit: 4"},
			wantNotContains: []string{"## Profile", "## Streak", "## Badges"},
		},
		{
			name:            "single snapshot hides trends",
			report:          &service.Report{GeneratedAt: reportTime, Trends: &trend.Report{Snapshots: 1}},
			wantNotContains: []string{"## Trends"},
		},
		{
			name:            "quiet mode",
			report:          sampleReport(),
			quiet:           true,
			wantNotContains: []string{"# Autonomy Report"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter := NewMarkdownFormatter(tt.quiet, tt.verbose, "")
			formatter.out = &buf

			if err := formatter.Format(tt.report); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			output := buf.String()
			for _, want := range tt.wantContains {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q\n%s", want, output)
				}
			}
			for _, notWant := range tt.wantNotContains {
				if strings.Contains(output, notWant) {
					t.Errorf("output should not contain %q", notWant)
				}
			}
		})
	}
}

func TestMarkdownFormatter_OutputFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "report.md")

	var buf bytes.Buffer
	formatter := NewMarkdownFormatter(false, false, outputFile)
	formatter.out = &buf

	if err := formatter.Format(sampleReport()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("file output should not write to stdout")
	}
	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Autonomy Report") {
		t.Errorf("unexpected file content: %s", data)
	}
}
