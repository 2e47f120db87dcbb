package service

import (
	"time"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/badges"
	"github.com/dotcommander/autonomy/internal/integrity"
	"github.com/dotcommander/autonomy/internal/scoring"
	"github.com/dotcommander/autonomy/internal/streak"
	"github.com/dotcommander/autonomy/internal/trend"
)

// Report is what a command hands to the output formatters. Sections that
// an operation does not produce stay nil and are not rendered.
type Report struct {
	UserID      string    `json:"userId"`
	GeneratedAt time.Time `json:"generatedAt"`

	Assessments []AssessmentResult      `json:"assessments,omitempty"`
	Imported    map[activity.Module]int `json:"imported,omitempty"`
	Reflections int                     `json:"reflections,omitempty"`

	Profile    *scoring.Profile     `json:"profile,omitempty"`
	Streak     *StreakView          `json:"streak,omitempty"`
	Milestones []activity.Milestone `json:"milestones,omitempty"`
	NewBadges  []badges.Badge       `json:"newBadges,omitempty"`
	Badges     []badges.Entry       `json:"badges,omitempty"`
	Trends     *trend.Report        `json:"trends,omitempty"`
}

// AssessmentResult summarizes one scored document.
type AssessmentResult struct {
	Source       string           `json:"source,omitempty"`
	AssessmentID string           `json:"assessmentId"`
	Responses    int              `json:"responses"`
	Integrity    integrity.Result `json:"integrity"`
	Flags        []string         `json:"flags,omitempty"`
}

// StreakView is the stored streak plus its derived display state.
type StreakView struct {
	streak.Data
	Status  streak.Status `json:"status"`
	Display int           `json:"display"`
}

func newStreakView(d streak.Data, now time.Time) *StreakView {
	return &StreakView{
		Data:    d,
		Status:  streak.StatusOf(d, now),
		Display: streak.Display(d, now),
	}
}

// HasUpdates reports whether the run unlocked anything worth celebrating.
func (r *Report) HasUpdates() bool {
	return len(r.NewBadges) > 0 || len(r.Milestones) > 0
}
