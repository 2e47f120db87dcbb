package scoring

import (
	"time"

	"github.com/dotcommander/autonomy/internal/itembank"
)

// ProfileVersion tags persisted and exported profiles.
const ProfileVersion = "2.0.0"

// ConstructScore is the 0-100 score of one construct with its uncertainty.
type ConstructScore struct {
	Raw     float64  `json:"raw"`      // 0-100 rescaled mean
	CILower float64  `json:"ci_lower"` // 95% Wald interval, clamped to 0-100
	CIUpper float64  `json:"ci_upper"`
	CIWidth float64  `json:"ci_width"`
	NItems  int      `json:"n_items"`         // responses contributing to Raw
	Alpha   *float64 `json:"alpha,omitempty"` // nil when reliability was not measured
}

// Measured reports whether any response contributed.
func (s ConstructScore) Measured() bool { return s.NItems > 0 }

// Unmeasured is the score of a construct without responses.
func Unmeasured() ConstructScore {
	return ConstructScore{Raw: 0, CILower: 0, CIUpper: 100, CIWidth: 100}
}

// Level is the categorical interpretation of a raw score.
type Level string

const (
	LevelHigh     Level = "high"
	LevelModerate Level = "moderate"
	LevelLow      Level = "low"
)

// Interpret classifies a raw score. Thresholds are shared by all constructs.
func Interpret(raw float64) Level {
	switch {
	case raw >= 70:
		return LevelHigh
	case raw >= 40:
		return LevelModerate
	default:
		return LevelLow
	}
}

// Profile is the latest scoring snapshot for a user.
type Profile struct {
	UserID            string                                `json:"userId"`
	Scores            map[itembank.Construct]ConstructScore `json:"scores"`
	CompositeAutonomy float64                               `json:"composite_autonomy"`
	Interpretation    map[itembank.Construct]Level          `json:"interpretation"`
	LastUpdated       time.Time                             `json:"lastUpdated"`
	Version           string                                `json:"version"`
}

// Spread returns the difference between the highest and lowest raw score
// of measured constructs, and whether every construct was measured.
func (p *Profile) Spread() (float64, bool) {
	if p == nil {
		return 0, false
	}
	lo, hi := 101.0, -1.0
	for _, c := range itembank.Constructs {
		s, ok := p.Scores[c]
		if !ok || !s.Measured() {
			return 0, false
		}
		if s.Raw < lo {
			lo = s.Raw
		}
		if s.Raw > hi {
			hi = s.Raw
		}
	}
	return hi - lo, true
}
