package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/service"
)

// MarkdownFormatter formats output as Markdown
type MarkdownFormatter struct {
	out        io.Writer
	quiet      bool
	verbose    bool
	outputFile string
}

// NewMarkdownFormatter creates a new MarkdownFormatter
func NewMarkdownFormatter(quiet, verbose bool, outputFile string) *MarkdownFormatter {
	return &MarkdownFormatter{
		out:        os.Stdout,
		quiet:      quiet,
		verbose:    verbose,
		outputFile: outputFile,
	}
}

// Format renders the report as a Markdown document.
func (f *MarkdownFormatter) Format(r *service.Report) error {
	var builder strings.Builder

	ts := r.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	builder.WriteString("# Autonomy Report\n\n")
	builder.WriteString(fmt.Sprintf("**Generated:** %s\n\n", ts.UTC().Format("2006-01-02 15:04:05")))
	builder.WriteString(strings.Repeat("-", 50) + "\n\n")

	if len(r.Assessments) > 0 {
		builder.WriteString("## Assessments\n\n")
		builder.WriteString("| Assessment | Responses | Integrity |\n")
		builder.WriteString("|------------|-----------|-----------|\n")
		for _, a := range r.Assessments {
			verdict := "✅ ok"
			if len(a.Flags) > 0 {
				verdict = "⚠️ " + strings.Join(a.Flags, "; ")
			}
			builder.WriteString(fmt.Sprintf("| %s | %d | %s |\n", a.AssessmentID, a.Responses, verdict))
		}
		builder.WriteString("\n")
	}

	if len(r.Imported) > 0 || r.Reflections > 0 {
		builder.WriteString("## Recorded Activity\n\n")
		if r.Reflections > 0 {
			builder.WriteString(fmt.Sprintf("- reflections: %d\n", r.Reflections))
		}
		for _, m := range activity.Modules {
			if n := r.Imported[m]; n > 0 {
				builder.WriteString(fmt.Sprintf("- %s: %d\n", m, n))
			}
		}
		builder.WriteString("\n")
	}

	if p := r.Profile; p != nil {
		builder.WriteString("## Profile\n\n")
		builder.WriteString("| Construct | Score | 95% CI | Alpha | Level |\n")
		builder.WriteString("|-----------|-------|--------|-------|-------|\n")
		for _, c := range itembank.Constructs {
			s, ok := p.Scores[c]
			if !ok || !s.Measured() {
				builder.WriteString(fmt.Sprintf("| %s | - | - | - | not measured |\n", c.Label()))
				continue
			}
			builder.WriteString(fmt.Sprintf("| %s | %.1f | %.1f-%.1f | %s | %s |\n",
				c.Label(), s.Raw, s.CILower, s.CIUpper, formatAlpha(s.Alpha), p.Interpretation[c]))
		}
		builder.WriteString(fmt.Sprintf("\n**Composite autonomy:** %.1f\n\n", p.CompositeAutonomy))
	}

	if s := r.Streak; s != nil {
		builder.WriteString("## Streak\n\n")
		builder.WriteString(fmt.Sprintf("- Current: %d (%s)\n", s.Display, statusLabel(s.Status)))
		builder.WriteString(fmt.Sprintf("- Longest: %d\n\n", s.Longest))
	}

	if t := r.Trends; t != nil && (t.Snapshots >= 2 || f.verbose) {
		builder.WriteString("## Trends\n\n")
		builder.WriteString(fmt.Sprintf("Based on %d snapshots.\n\n", t.Snapshots))
		builder.WriteString("| Series | Direction | Change |\n")
		builder.WriteString("|--------|-----------|--------|\n")
		for _, c := range itembank.Constructs {
			tr := t.Constructs[c]
			builder.WriteString(fmt.Sprintf("| %s | %s %s | %+.1f |\n", c, arrow(tr.Direction), tr.Direction, tr.Change))
		}
		builder.WriteString(fmt.Sprintf("| Composite | %s %s | %+.1f |\n\n", arrow(t.Composite.Direction), t.Composite.Direction, t.Composite.Change))
	}

	if len(r.Milestones) > 0 || len(r.NewBadges) > 0 {
		builder.WriteString("## New Achievements\n\n")
		for _, m := range r.Milestones {
			builder.WriteString(fmt.Sprintf("- ★ %s\n", milestoneText(m)))
		}
		for _, b := range r.NewBadges {
			builder.WriteString(fmt.Sprintf("- %s **%s** - %s\n", b.Icon, b.Name, b.Description))
		}
		builder.WriteString("\n")
	}

	if len(r.Badges) > 0 {
		builder.WriteString("## Badges\n\n")
		builder.WriteString("| Badge | Rarity | Status |\n")
		builder.WriteString("|-------|--------|--------|\n")
		for _, e := range r.Badges {
			if !e.Unlocked && e.Progress == 0 && !f.verbose {
				continue
			}
			status := fmt.Sprintf("%.0f%%", e.Progress*100)
			if e.Unlocked {
				status = "✅ unlocked"
				if e.UnlockedAt != nil {
					status += " " + e.UnlockedAt.UTC().Format("2006-01-02")
				}
			}
			builder.WriteString(fmt.Sprintf("| %s %s | %s | %s |\n", e.Icon, e.Name, e.Rarity, status))
		}
		builder.WriteString("\n")
	}

	content := builder.String()
	if f.outputFile != "" {
		if err := os.WriteFile(f.outputFile, []byte(content), 0644); err != nil {
			return fmt.Errorf("error writing to file %s: %w", f.outputFile, err)
		}
		return nil
	}
	if f.quiet {
		return nil
	}
	fmt.Fprint(f.out, content)
	return nil
}
