package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/dotcommander/autonomy/internal/itembank"
)

// Weights blends construct raw scores into the composite autonomy score.
type Weights map[itembank.Construct]float64

// DefaultWeights favours the two constructs that carry autonomy most
// directly.
func DefaultWeights() Weights {
	return Weights{
		itembank.ConstructEAI: 0.40,
		itembank.ConstructRF:  0.30,
		itembank.ConstructAOT: 0.15,
		itembank.ConstructIH:  0.15,
	}
}

// Validate requires EAI and RF weights, known constructs, no negative
// weights, and a total of 1.
func (w Weights) Validate() error {
	var total float64
	for c, v := range w {
		if !c.IsValid() {
			return fmt.Errorf("unknown construct in weights: %q", c)
		}
		if v < 0 {
			return fmt.Errorf("weight for %s must not be negative", c)
		}
		total += v
	}
	for _, c := range []itembank.Construct{itembank.ConstructEAI, itembank.ConstructRF} {
		if w[c] <= 0 {
			return fmt.Errorf("composite weights must include %s", c)
		}
	}
	if math.Abs(total-1) > 1e-6 {
		return fmt.Errorf("composite weights must sum to 1 (got %.4f)", total)
	}
	return nil
}

// Composite returns the weighted blend of raw scores. Unmeasured constructs
// contribute their raw 0.
func Composite(scores map[itembank.Construct]ConstructScore, w Weights) float64 {
	var total float64
	for c, weight := range w {
		total += weight * scores[c].Raw
	}
	return clamp(total, 0, 100)
}

// InterpretAll classifies every scored construct.
func InterpretAll(scores map[itembank.Construct]ConstructScore) map[itembank.Construct]Level {
	out := make(map[itembank.Construct]Level, len(scores))
	for c, s := range scores {
		out[c] = Interpret(s.Raw)
	}
	return out
}

// BuildProfile runs the scorer for every construct and derives the
// composite and interpretation. The profile is rebuilt wholesale.
func BuildProfile(s *Scorer, userID string, in Input, w Weights, now time.Time) *Profile {
	if w == nil {
		w = DefaultWeights()
	}
	scores := s.ScoreAll(in)
	return &Profile{
		UserID:            userID,
		Scores:            scores,
		CompositeAutonomy: Composite(scores, w),
		Interpretation:    InterpretAll(scores),
		LastUpdated:       now.UTC(),
		Version:           ProfileVersion,
	}
}
