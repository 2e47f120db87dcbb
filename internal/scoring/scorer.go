package scoring

import (
	"sort"

	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/response"
)

// Options tunes interval and reliability estimation.
type Options struct {
	MinItemsForCI    int // below this the interval spans 0-100
	MinItemsForAlpha int // below this alpha is not reported
}

// DefaultOptions returns the built-in thresholds.
func DefaultOptions() Options {
	return Options{MinItemsForCI: 2, MinItemsForAlpha: 3}
}

// Input is the material for one construct. Current holds the answers being
// scored; History holds earlier assessment instances and only feeds the
// reliability estimate.
type Input struct {
	Current []response.UserResponse
	History []response.UserResponse
}

// Scorer turns responses into construct scores. It is stateless apart from
// its immutable bank and options, so one Scorer may serve many users.
type Scorer struct {
	bank *itembank.Bank
	opts Options
}

// NewScorer creates a Scorer. Non-positive option fields take defaults.
func NewScorer(bank *itembank.Bank, opts Options) *Scorer {
	d := DefaultOptions()
	if opts.MinItemsForCI < 1 {
		opts.MinItemsForCI = d.MinItemsForCI
	}
	if opts.MinItemsForAlpha < 2 {
		opts.MinItemsForAlpha = d.MinItemsForAlpha
	}
	if bank == nil {
		bank = itembank.Default()
	}
	return &Scorer{bank: bank, opts: opts}
}

// Bank returns the item bank used for scoring.
func (s *Scorer) Bank() *itembank.Bank { return s.bank }

type scoredAnswer struct {
	assessmentID string
	itemID       string
	value        float64 // direction-corrected 1-7 value
}

// direct filters rs to scored items of construct c and applies reverse
// keying. Unknown items and attention checks are skipped.
func (s *Scorer) direct(c itembank.Construct, rs []response.UserResponse) []scoredAnswer {
	var out []scoredAnswer
	for _, r := range rs {
		it, ok := s.bank.Item(r.ItemID)
		if !ok || it.Construct != c || it.IsAttentionCheck() {
			continue
		}
		out = append(out, scoredAnswer{
			assessmentID: r.AssessmentID,
			itemID:       r.ItemID,
			value:        it.Scored(r.Value),
		})
	}
	return out
}

// ScoreConstruct aggregates the answers for c. Responses are assumed to be
// validated; zero responses yield Unmeasured().
func (s *Scorer) ScoreConstruct(c itembank.Construct, in Input) ConstructScore {
	current := s.direct(c, in.Current)
	if len(current) == 0 {
		return Unmeasured()
	}

	xs := make([]float64, len(current))
	for i, a := range current {
		xs[i] = rescale(a.value)
	}
	raw := clamp(mean(xs), 0, 100)

	score := ConstructScore{Raw: raw, NItems: len(current)}
	if len(current) < s.opts.MinItemsForCI {
		score.CILower, score.CIUpper = 0, 100
	} else {
		score.CILower, score.CIUpper = waldInterval(raw, sampleVariance(xs), len(current))
	}
	score.CIWidth = score.CIUpper - score.CILower

	if len(current) >= s.opts.MinItemsForAlpha {
		all := append(s.direct(c, in.History), current...)
		if alpha, ok := s.alpha(all); ok {
			score.Alpha = &alpha
		}
	}
	return score
}

// alpha builds an occasions x items matrix from answers grouped by
// assessment instance, keeping only items answered on every occasion.
func (s *Scorer) alpha(answers []scoredAnswer) (float64, bool) {
	byOccasion := make(map[string]map[string]float64)
	for _, a := range answers {
		row, ok := byOccasion[a.assessmentID]
		if !ok {
			row = make(map[string]float64)
			byOccasion[a.assessmentID] = row
		}
		row[a.itemID] = a.value
	}
	if len(byOccasion) < 2 {
		return 0, false
	}

	occasions := make([]string, 0, len(byOccasion))
	for id := range byOccasion {
		occasions = append(occasions, id)
	}
	sort.Strings(occasions)

	var items []string
	for itemID := range byOccasion[occasions[0]] {
		shared := true
		for _, occ := range occasions[1:] {
			if _, ok := byOccasion[occ][itemID]; !ok {
				shared = false
				break
			}
		}
		if shared {
			items = append(items, itemID)
		}
	}
	if len(items) < s.opts.MinItemsForAlpha {
		return 0, false
	}
	sort.Strings(items)

	matrix := make([][]float64, len(occasions))
	for i, occ := range occasions {
		row := make([]float64, len(items))
		for j, itemID := range items {
			row[j] = byOccasion[occ][itemID]
		}
		matrix[i] = row
	}
	return CronbachAlpha(matrix)
}

// ScoreAll scores every construct.
func (s *Scorer) ScoreAll(in Input) map[itembank.Construct]ConstructScore {
	out := make(map[itembank.Construct]ConstructScore, len(itembank.Constructs))
	for _, c := range itembank.Constructs {
		out[c] = s.ScoreConstruct(c, in)
	}
	return out
}
