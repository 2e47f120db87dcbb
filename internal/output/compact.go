package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/service"
)

// CompactFormatter formats output in a compact, summary-first style: one
// aligned line per assessment and construct, then a single summary line.
type CompactFormatter struct {
	out       io.Writer
	quiet     bool
	verbose   bool
	colorize  bool
	celebrate bool
}

// NewCompactFormatter creates a new CompactFormatter.
func NewCompactFormatter(quiet, verbose bool) *CompactFormatter {
	return &CompactFormatter{
		out:       os.Stdout,
		quiet:     quiet,
		verbose:   verbose,
		colorize:  true,
		celebrate: isTTY(),
	}
}

// statusLineParams groups parameters for printing a status line.
type statusLineParams struct {
	icon     string
	name     string
	padding  string
	text     string
	style    lipgloss.Style
	dimStyle lipgloss.Style
}

func (f *CompactFormatter) Format(r *service.Report) error {
	if f.quiet {
		return nil
	}

	greenStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	maxNameLen := f.calculateNameWidth(r)
	flagged := 0
	for _, a := range r.Assessments {
		p := statusLineParams{icon: "✓", name: a.AssessmentID, style: greenStyle, dimStyle: dimStyle,
			text: fmt.Sprintf("%d responses", a.Responses)}
		if len(a.Flags) > 0 {
			flagged++
			p.icon, p.style = "⚠", yellowStyle
			p.text = strings.Join(a.Flags, "; ")
		}
		p.padding = strings.Repeat(" ", maxNameLen-len(p.name))
		f.printStatusLine(p)
	}

	if r.Profile != nil {
		for _, c := range itembank.Constructs {
			s := r.Profile.Scores[c]
			p := statusLineParams{name: string(c), padding: strings.Repeat(" ", maxNameLen-len(c)), dimStyle: dimStyle}
			if !s.Measured() {
				if !f.verbose {
					continue
				}
				p.icon, p.text, p.style = "·", "not measured", dimStyle
			} else {
				p.icon, p.style = "✓", greenStyle
				p.text = fmt.Sprintf("%5.1f %s", s.Raw, r.Profile.Interpretation[c])
			}
			f.printStatusLine(p)
		}
	}

	f.printSummaryLine(r, flagged, greenStyle, yellowStyle)
	return nil
}

// calculateNameWidth computes the name column width.
func (f *CompactFormatter) calculateNameWidth(r *service.Report) int {
	width := 0
	for _, a := range r.Assessments {
		if len(a.AssessmentID) > width {
			width = len(a.AssessmentID)
		}
	}
	for _, c := range itembank.Constructs {
		if len(c) > width {
			width = len(c)
		}
	}
	return width
}

// printStatusLine prints a single status line with appropriate styling.
func (f *CompactFormatter) printStatusLine(p statusLineParams) {
	if f.colorize {
		fmt.Fprintf(f.out, "  %s %s%s  %s\n",
			p.style.Render(p.icon),
			p.dimStyle.Render(p.name),
			p.padding,
			p.style.Render(p.text))
	} else {
		fmt.Fprintf(f.out, "  %s %s%s  %s\n", p.icon, p.name, p.padding, p.text)
	}
}

// printSummaryLine joins the headline numbers; a clean run that unlocked
// something is celebrated.
func (f *CompactFormatter) printSummaryLine(r *service.Report, flagged int, greenStyle, yellowStyle lipgloss.Style) {
	var parts []string
	if n := len(r.Assessments); n > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d clean", n-flagged, n))
	}
	if r.Profile != nil {
		parts = append(parts, fmt.Sprintf("composite %.1f", r.Profile.CompositeAutonomy))
	}
	if r.Streak != nil {
		parts = append(parts, "streak "+plural(r.Streak.Display, "day"))
	}
	if len(r.Badges) > 0 {
		unlocked := 0
		for _, e := range r.Badges {
			if e.Unlocked {
				unlocked++
			}
		}
		parts = append(parts, fmt.Sprintf("badges %d/%d", unlocked, len(r.Badges)))
	}
	if n := len(r.NewBadges); n > 0 {
		parts = append(parts, fmt.Sprintf("%d new %s", n, pluralWord("badge", n)))
	}
	if len(parts) == 0 {
		return
	}
	summaryText := strings.Join(parts, " · ")

	fmt.Fprintln(f.out)
	switch {
	case f.colorize && f.celebrate && flagged == 0 && r.HasUpdates():
		printCelebration(f.out, summaryText)
	case f.colorize && flagged > 0:
		fmt.Fprintln(f.out, yellowStyle.Render(summaryText))
	case f.colorize:
		fmt.Fprintln(f.out, greenStyle.Render(summaryText))
	default:
		fmt.Fprintln(f.out, summaryText)
	}
}

func pluralWord(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
