// Package streak implements the daily activity streak state machine.
package streak

import "time"

// Milestone thresholds. Flags are monotonic: once reached they stay set even
// after the streak breaks.
const (
	Seven     = 7
	TwentyOne = 21
	Sixty     = 60
	Hundred   = 100
)

// Milestones records which streak lengths have ever been reached.
type Milestones struct {
	Seven     bool `json:"seven"`
	TwentyOne bool `json:"twentyOne"`
	Sixty     bool `json:"sixty"`
	Hundred   bool `json:"hundred"`
}

// Data is the persisted streak state of one user.
type Data struct {
	Current      int        `json:"current"`
	Longest      int        `json:"longest"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
	Milestones   Milestones `json:"milestones"`
}

// Status classifies a streak for display. It is never stored.
type Status string

const (
	StatusCurrent Status = "current"
	StatusAtRisk  Status = "at_risk"
	StatusBroken  Status = "broken"
)

// Record applies one qualifying activity at now. Calendar days are compared
// in now's location. A second activity on the same day is a no-op.
func Record(d Data, now time.Time) Data {
	if d.LastActivity != nil {
		switch DaysBetween(*d.LastActivity, now) {
		case 0:
			return d
		case 1:
			d.Current++
		default:
			d.Current = 1
		}
	} else {
		d.Current = 1
	}

	if d.Current > d.Longest {
		d.Longest = d.Current
	}
	ts := now
	d.LastActivity = &ts
	d.Milestones = d.Milestones.reach(d.Current)
	return d
}

func (m Milestones) reach(current int) Milestones {
	m.Seven = m.Seven || current >= Seven
	m.TwentyOne = m.TwentyOne || current >= TwentyOne
	m.Sixty = m.Sixty || current >= Sixty
	m.Hundred = m.Hundred || current >= Hundred
	return m
}

// Newly returns the milestone thresholds set in after but not in before.
func Newly(before, after Milestones) []int {
	var out []int
	if after.Seven && !before.Seven {
		out = append(out, Seven)
	}
	if after.TwentyOne && !before.TwentyOne {
		out = append(out, TwentyOne)
	}
	if after.Sixty && !before.Sixty {
		out = append(out, Sixty)
	}
	if after.Hundred && !before.Hundred {
		out = append(out, Hundred)
	}
	return out
}

// StatusOf classifies d relative to now.
func StatusOf(d Data, now time.Time) Status {
	if d.LastActivity == nil {
		return StatusBroken
	}
	switch days := DaysBetween(*d.LastActivity, now); {
	case days <= 0:
		return StatusCurrent
	case days == 1:
		return StatusAtRisk
	default:
		return StatusBroken
	}
}

// Display returns the streak length to show: zero once the streak is
// broken, since the stored Current only resets on the next activity.
func Display(d Data, now time.Time) int {
	if StatusOf(d, now) == StatusBroken {
		return 0
	}
	return d.Current
}

// DaysBetween counts calendar days from a to b in b's location.
func DaysBetween(a, b time.Time) int {
	loc := b.Location()
	a = a.In(loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	// Civil dates compared at UTC midnight so DST shifts cannot skew the count.
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
