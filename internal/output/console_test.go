package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/badges"
	"github.com/dotcommander/autonomy/internal/integrity"
	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/scoring"
	"github.com/dotcommander/autonomy/internal/service"
	"github.com/dotcommander/autonomy/internal/streak"
	"github.com/dotcommander/autonomy/internal/trend"
)

var reportTime = time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)

func sampleProfile() *scoring.Profile {
	alpha := 0.81
	return &scoring.Profile{
		UserID: "u1",
		Scores: map[itembank.Construct]scoring.ConstructScore{
			itembank.ConstructEAI: {Raw: 83.3, CILower: 75.1, CIUpper: 91.5, CIWidth: 16.4, NItems: 5, Alpha: &alpha},
			itembank.ConstructRF:  {Raw: 50, CILower: 40, CIUpper: 60, CIWidth: 20, NItems: 5},
			itembank.ConstructAOT: scoring.Unmeasured(),
			itembank.ConstructIH:  scoring.Unmeasured(),
		},
		CompositeAutonomy: 48.3,
		Interpretation: map[itembank.Construct]scoring.Level{
			itembank.ConstructEAI: scoring.LevelHigh,
			itembank.ConstructRF:  scoring.LevelModerate,
			itembank.ConstructAOT: scoring.LevelLow,
			itembank.ConstructIH:  scoring.LevelLow,
		},
		LastUpdated: reportTime,
		Version:     scoring.ProfileVersion,
	}
}

func sampleReport() *service.Report {
	last := reportTime
	return &service.Report{
		UserID:      "u1",
		GeneratedAt: reportTime,
		Assessments: []service.AssessmentResult{
			{Source: "a1.yaml", AssessmentID: "a1", Responses: 11, Integrity: integrity.Neutral()},
			{Source: "a2.yaml", AssessmentID: "a2", Responses: 11,
				Integrity: integrity.Result{Straightlining: true, AttentionCheckPassed: true},
				Flags:     []string{"8 or more identical answers in a row"}},
		},
		Profile: sampleProfile(),
		Streak: &service.StreakView{
			Data:    streak.Data{Current: 7, Longest: 9, LastActivity: &last},
			Status:  streak.StatusCurrent,
			Display: 7,
		},
		Milestones: []activity.Milestone{{Kind: service.MilestoneStreak, Value: 7, ReachedAt: reportTime}},
		NewBadges:  []badges.Badge{{BadgeID: "streak_7", Name: "Week Warrior", Icon: "🔥", Description: "Maintain a 7-day streak"}},
		Badges: []badges.Entry{
			{ID: "streak_7", Name: "Week Warrior", Icon: "🔥", Rarity: badges.RarityCommon, Unlocked: true, UnlockedAt: &last, Progress: 1},
			{ID: "reflection_10", Name: "Deep Thinker", Icon: "💭", Rarity: badges.RarityUncommon, Progress: 0.4},
			{ID: "epistemic_autonomy", Name: "Epistemic Autonomy", Icon: "🏛️", Rarity: badges.RarityEpic},
		},
		Trends: &trend.Report{
			Snapshots: 4,
			Constructs: map[itembank.Construct]trend.Trend{
				itembank.ConstructEAI: {Direction: trend.Improving, Change: 12.5},
				itembank.ConstructRF:  {Direction: trend.Declining, Change: -6},
				itembank.ConstructAOT: {Direction: trend.Stable},
				itembank.ConstructIH:  {Direction: trend.Stable},
			},
			Composite: trend.Trend{Direction: trend.Improving, Change: 5.5},
		},
	}
}

func TestConsoleFormatter_Format(t *testing.T) {
	tests := []struct {
		name            string
		report          *service.Report
		quiet           bool
		verbose         bool
		wantContains    []string
		wantNotContains []string
	}{
		{
			name:            "quiet mode - no output",
			report:          sampleReport(),
			quiet:           true,
			wantNotContains: []string{"Autonomy profile", "Streak"},
		},
		{
			name:   "full report",
			report: sampleReport(),
			wantContains: []string{
				"✓ a1.yaml (11 responses)",
				"⚠ a2.yaml (11 responses)",
				"8 or more identical answers in a row",
				"Autonomy profile",
				"Epistemic autonomy",
				"83.3",
				"[75.1-91.5]",
				"high",
				"not measured",
				"Composite 48.3",
				"Streak: 7 days (longest 9) current",
				"Trends over 4 snapshots",
				"↑ improving +12.5",
				"↓ declining -6.0",
				"Badges 1/3 unlocked",
				"Deep Thinker",
				"40%",
				"★ Reached a 7-day streak",
				"🔥 Badge unlocked: Week Warrior",
			},
			wantNotContains: []string{"alpha=", "Epistemic Autonomy", "Maintain a 7-day streak"},
		},
		{
			name:    "verbose shows reliability and locked badges",
			report:  sampleReport(),
			verbose: true,
			wantContains: []string{
				"n=5 alpha=0.81",
				"n=5 alpha=n/a",
				"Epistemic Autonomy",
				"Maintain a 7-day streak",
			},
		},
		{
			name: "recorded activity",
			report: &service.Report{
				Reflections: 1,
				Imported:    map[activity.Module]int{activity.ModuleDisconfirm: 3, activity.ModuleArgumentFlip: 1},
			},
			wantContains: []string{"Recorded 1 reflection, 3 disconfirm, 1 argument flip"},
		},
		{
			name: "short trend history is hidden",
			report: &service.Report{
				Trends: &trend.Report{Snapshots: 1},
			},
			wantNotContains: []string{"Trends"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter := NewConsoleFormatter(tt.quiet, tt.verbose)
			formatter.out = &buf
			formatter.colorize = false
			formatter.celebrate = false

			if err := formatter.Format(tt.report); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			output := buf.String()

			if tt.quiet && output != "" {
				t.Errorf("expected no output in quiet mode, got %q", output)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q\n%s", want, output)
				}
			}
			for _, notWant := range tt.wantNotContains {
				if strings.Contains(output, notWant) {
					t.Errorf("output should not contain %q\n%s", notWant, output)
				}
			}
		})
	}
}

func TestCelebration(t *testing.T) {
	old := frameDelay
	frameDelay = 0
	defer func() { frameDelay = old }()

	var buf bytes.Buffer
	printCelebration(&buf, "Badge unlocked")
	out := buf.String()
	if !strings.Contains(out, "🎉") || !strings.HasSuffix(out, "\n") {
		t.Errorf("unexpected celebration output %q", out)
	}
}

func TestCompactFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewCompactFormatter(false, false)
	formatter.out = &buf
	formatter.colorize = false
	formatter.celebrate = false

	if err := formatter.Format(sampleReport()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"✓ a1   11 responses",
		"⚠ a2   8 or more identical answers in a row",
		"✓ EAI   83.3 high",
		"1/2 clean · composite 48.3 · streak 7 days · badges 1/3 · 1 new badge",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "AOT") {
		t.Errorf("unmeasured constructs are hidden unless verbose\n%s", output)
	}

	buf.Reset()
	formatter.quiet = true
	_ = formatter.Format(sampleReport())
	if buf.Len() != 0 {
		t.Errorf("quiet compact output = %q", buf.String())
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, "░░░░░░░░░░"},
		{0.4, "████░░░░░░"},
		{1, "██████████"},
		{1.7, "██████████"},
		{-1, "░░░░░░░░░░"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.p, 10); got != tt.want {
			t.Errorf("progressBar(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}
