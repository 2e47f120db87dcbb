package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/badges"
	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/scoring"
	"github.com/dotcommander/autonomy/internal/service"
	"github.com/dotcommander/autonomy/internal/streak"
	"github.com/dotcommander/autonomy/internal/trend"
)

// ConsoleFormatter formats output for console display
type ConsoleFormatter struct {
	out       io.Writer
	quiet     bool
	verbose   bool
	colorize  bool
	celebrate bool
}

// NewConsoleFormatter creates a new ConsoleFormatter writing to stdout.
// Unlock animations only play when stdout is a terminal.
func NewConsoleFormatter(quiet, verbose bool) *ConsoleFormatter {
	return &ConsoleFormatter{
		out:       os.Stdout,
		quiet:     quiet,
		verbose:   verbose,
		colorize:  true,
		celebrate: isTTY(),
	}
}

func (f *ConsoleFormatter) style(color string) lipgloss.Style {
	if !f.colorize {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Format prints every section the report carries.
func (f *ConsoleFormatter) Format(r *service.Report) error {
	if f.quiet {
		return nil
	}

	f.printAssessments(r.Assessments)
	f.printImported(r)
	f.printProfile(r.Profile)
	f.printStreak(r.Streak)
	f.printTrends(r.Trends)
	f.printBadges(r.Badges)
	f.printUnlocks(r)
	return nil
}

func (f *ConsoleFormatter) printAssessments(results []service.AssessmentResult) {
	for _, res := range results {
		name := res.Source
		if name == "" {
			name = res.AssessmentID
		}
		if len(res.Flags) == 0 {
			fmt.Fprintf(f.out, "%s %s (%d responses)\n", f.style("10").Render("✓"), name, res.Responses)
			continue
		}
		fmt.Fprintf(f.out, "%s %s (%d responses)\n", f.style("3").Render("⚠"), name, res.Responses)
		for _, flag := range res.Flags {
			fmt.Fprintf(f.out, "    %s\n", f.style("3").Render(flag))
		}
	}
	if len(results) > 0 {
		fmt.Fprintln(f.out)
	}
}

func (f *ConsoleFormatter) printImported(r *service.Report) {
	var parts []string
	if r.Reflections > 0 {
		parts = append(parts, plural(r.Reflections, "reflection"))
	}
	for _, m := range activity.Modules {
		if n := r.Imported[m]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ReplaceAll(string(m), "_", " ")))
		}
	}
	if len(parts) == 0 {
		return
	}
	fmt.Fprintf(f.out, "%s Recorded %s\n\n", f.style("10").Render("✓"), strings.Join(parts, ", "))
}

func (f *ConsoleFormatter) printProfile(p *scoring.Profile) {
	if p == nil {
		return
	}
	bold := lipgloss.NewStyle().Bold(f.colorize)
	dim := f.style("8")

	fmt.Fprintln(f.out, bold.Render("Autonomy profile"))
	for _, c := range itembank.Constructs {
		s, ok := p.Scores[c]
		if !ok || !s.Measured() {
			fmt.Fprintf(f.out, "  %-4s %-30s %s\n", c, c.Label(), dim.Render("not measured"))
			continue
		}
		level := p.Interpretation[c]
		fmt.Fprintf(f.out, "  %-4s %-30s %5.1f  %s  %s",
			c, c.Label(), s.Raw,
			dim.Render(fmt.Sprintf("[%.1f-%.1f]", s.CILower, s.CIUpper)),
			f.levelStyle(level).Render(string(level)))
		if f.verbose {
			fmt.Fprintf(f.out, "  %s", dim.Render(fmt.Sprintf("n=%d alpha=%s", s.NItems, formatAlpha(s.Alpha))))
		}
		fmt.Fprintln(f.out)
	}
	fmt.Fprintf(f.out, "  %s %.1f\n\n", bold.Render("Composite"), p.CompositeAutonomy)
}

func (f *ConsoleFormatter) levelStyle(l scoring.Level) lipgloss.Style {
	switch l {
	case scoring.LevelHigh:
		return f.style("10")
	case scoring.LevelModerate:
		return f.style("3")
	default:
		return f.style("9")
	}
}

func (f *ConsoleFormatter) printStreak(s *service.StreakView) {
	if s == nil {
		return
	}
	var style lipgloss.Style
	switch s.Status {
	case streak.StatusCurrent:
		style = f.style("10")
	case streak.StatusAtRisk:
		style = f.style("3")
	default:
		style = f.style("8")
	}
	fmt.Fprintf(f.out, "🔥 Streak: %s (longest %d) %s\n\n",
		plural(s.Display, "day"), s.Longest, style.Render(statusLabel(s.Status)))
}

func (f *ConsoleFormatter) printTrends(t *trend.Report) {
	if t == nil {
		return
	}
	if t.Snapshots < 2 {
		if f.verbose {
			fmt.Fprintf(f.out, "Trends need at least 2 snapshots (have %d)\n\n", t.Snapshots)
		}
		return
	}
	fmt.Fprintf(f.out, "%s over %d snapshots\n", lipgloss.NewStyle().Bold(f.colorize).Render("Trends"), t.Snapshots)
	for _, c := range itembank.Constructs {
		f.printTrend(string(c), t.Constructs[c])
	}
	f.printTrend("ALL", t.Composite)
	fmt.Fprintln(f.out)
}

func (f *ConsoleFormatter) printTrend(name string, tr trend.Trend) {
	var style lipgloss.Style
	switch tr.Direction {
	case trend.Improving:
		style = f.style("10")
	case trend.Declining:
		style = f.style("9")
	default:
		style = f.style("7")
	}
	fmt.Fprintf(f.out, "  %-4s %s %+.1f\n", name, style.Render(arrow(tr.Direction)+" "+string(tr.Direction)), tr.Change)
}

func (f *ConsoleFormatter) printBadges(entries []badges.Entry) {
	if len(entries) == 0 {
		return
	}
	unlocked := 0
	for _, e := range entries {
		if e.Unlocked {
			unlocked++
		}
	}
	fmt.Fprintf(f.out, "%s %d/%d unlocked\n", lipgloss.NewStyle().Bold(f.colorize).Render("Badges"), unlocked, len(entries))
	for _, e := range entries {
		if !e.Unlocked && e.Progress == 0 && !f.verbose {
			continue
		}
		if e.Unlocked {
			fmt.Fprintf(f.out, "  %s %s %s\n", e.Icon, f.style("10").Render(e.Name), f.style("8").Render(string(e.Rarity)))
			continue
		}
		fmt.Fprintf(f.out, "  %s %-22s %s %3.0f%%\n", f.style("8").Render("·"), e.Name, progressBar(e.Progress, 10), e.Progress*100)
	}
	fmt.Fprintln(f.out)
}

func (f *ConsoleFormatter) printUnlocks(r *service.Report) {
	for _, m := range r.Milestones {
		fmt.Fprintf(f.out, "%s %s\n", f.style("11").Render("★"), milestoneText(m))
	}
	for _, b := range r.NewBadges {
		msg := fmt.Sprintf("%s Badge unlocked: %s", b.Icon, b.Name)
		if f.colorize && f.celebrate {
			printCelebration(f.out, msg)
		} else {
			fmt.Fprintln(f.out, msg)
		}
		if f.verbose && b.Description != "" {
			fmt.Fprintf(f.out, "    %s\n", f.style("8").Render(b.Description))
		}
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func formatAlpha(a *float64) string {
	if a == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *a)
}

func statusLabel(s streak.Status) string {
	switch s {
	case streak.StatusAtRisk:
		return "at risk"
	default:
		return string(s)
	}
}

func arrow(d trend.Direction) string {
	switch d {
	case trend.Improving:
		return "↑"
	case trend.Declining:
		return "↓"
	default:
		return "→"
	}
}

func progressBar(p float64, width int) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func milestoneText(m activity.Milestone) string {
	if m.Kind == service.MilestoneStreak {
		return fmt.Sprintf("Reached a %d-day streak", m.Value)
	}
	return fmt.Sprintf("Reached %s %d", m.Kind, m.Value)
}
