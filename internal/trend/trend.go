// Package trend classifies score movement across historical profile snapshots.
package trend

import (
	"sort"
	"time"

	"github.com/dotcommander/autonomy/internal/itembank"
)

// DefaultDelta is the minimum change in half-means that counts as movement.
const DefaultDelta = 5.0

// Direction labels one trend.
type Direction string

const (
	Improving Direction = "improving"
	Stable    Direction = "stable"
	Declining Direction = "declining"
)

// Snapshot is one historical profile reduced to its raw scores.
type Snapshot struct {
	Timestamp time.Time                      `json:"timestamp"`
	Scores    map[itembank.Construct]float64 `json:"scores"`
	Composite float64                        `json:"composite"`
}

// Trend is the comparison for one series.
type Trend struct {
	Direction  Direction `json:"direction"`
	FirstMean  float64   `json:"firstMean"`
	SecondMean float64   `json:"secondMean"`
	Change     float64   `json:"change"`
}

// Report holds the per-construct trends and the composite trend.
type Report struct {
	Snapshots  int                          `json:"snapshots"`
	Constructs map[itembank.Construct]Trend `json:"constructs"`
	Composite  Trend                        `json:"composite"`
}

// Analyze sorts snapshots by time, splits them into halves and compares the
// half means. Fewer than two snapshots yield stable trends throughout.
// A non-positive delta uses DefaultDelta.
func Analyze(snapshots []Snapshot, delta float64) Report {
	if delta <= 0 {
		delta = DefaultDelta
	}
	report := Report{
		Snapshots:  len(snapshots),
		Constructs: make(map[itembank.Construct]Trend, len(itembank.Constructs)),
	}
	if len(snapshots) < 2 {
		for _, c := range itembank.Constructs {
			report.Constructs[c] = Trend{Direction: Stable}
		}
		report.Composite = Trend{Direction: Stable}
		return report
	}

	sorted := make([]Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	mid := len(sorted) / 2
	first, second := sorted[:mid], sorted[mid:]

	for _, c := range itembank.Constructs {
		pick := func(s Snapshot) float64 { return s.Scores[c] }
		report.Constructs[c] = compare(meanOf(first, pick), meanOf(second, pick), delta)
	}
	composite := func(s Snapshot) float64 { return s.Composite }
	report.Composite = compare(meanOf(first, composite), meanOf(second, composite), delta)
	return report
}

func compare(first, second, delta float64) Trend {
	t := Trend{FirstMean: first, SecondMean: second, Change: second - first, Direction: Stable}
	switch {
	case t.Change > delta:
		t.Direction = Improving
	case t.Change < -delta:
		t.Direction = Declining
	}
	return t
}

func meanOf(ss []Snapshot, pick func(Snapshot) float64) float64 {
	if len(ss) == 0 {
		return 0
	}
	var sum float64
	for _, s := range ss {
		sum += pick(s)
	}
	return sum / float64(len(ss))
}
