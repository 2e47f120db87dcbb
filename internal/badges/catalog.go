// Package badges evaluates the static badge catalog against a user's
// activity snapshot.
//
// Every badge is a row in a table: metadata plus a pure Condition and a
// Progress closure over CheckData. Conditions tolerate empty collections.
package badges

import (
	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/scoring"
	"github.com/dotcommander/autonomy/internal/streak"
)

// Category groups badges for display.
type Category string

const (
	CategoryStreak      Category = "streak"
	CategoryModule      Category = "module"
	CategoryReflection  Category = "reflection"
	CategoryAchievement Category = "achievement"
)

// Rarity is a display hint only.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
	RarityEpic     Rarity = "epic"
)

// CheckData is the read-only snapshot the predicates run against. It is
// assembled fresh before each evaluation and never stored.
type CheckData struct {
	Streak streak.Data
	activity.Log
	Milestones []activity.Milestone
	Profile    *scoring.Profile // latest profile, nil before the first assessment
}

// Definition is one catalog entry.
type Definition struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Category    Category
	Rarity      Rarity
	Condition   func(CheckData) bool
	Progress    func(CheckData) float64
}

const (
	balancedSpread          = 15.0
	independenceThreshold   = 75.0
	independentAuditsNeeded = 14
)

var catalog = []Definition{
	streakBadge("streak_7", "Week of Inquiry", "Keep a 7-day streak", "🔥", streak.Seven, RarityCommon,
		func(m streak.Milestones) bool { return m.Seven }),
	streakBadge("streak_21", "Habit Formed", "Keep a 21-day streak", "🌱", streak.TwentyOne, RarityUncommon,
		func(m streak.Milestones) bool { return m.TwentyOne }),
	streakBadge("streak_60", "Steady Mind", "Keep a 60-day streak", "🌳", streak.Sixty, RarityRare,
		func(m streak.Milestones) bool { return m.Sixty }),
	streakBadge("streak_100", "Centurion", "Keep a 100-day streak", "💯", streak.Hundred, RarityEpic,
		func(m streak.Milestones) bool { return m.Hundred }),

	countBadge("disconfirm_master", "Disconfirmation Master", "Play 3 disconfirmation games", "🎯",
		CategoryModule, RarityUncommon, 3, func(d CheckData) int { return len(d.DisconfirmGames) }),
	countBadge("schema_reclaimer", "Schema Reclaimer", "Complete 2 schema reclaim sessions", "🧩",
		CategoryModule, RarityUncommon, 2, func(d CheckData) int { return len(d.SchemaReclaims) }),
	countBadge("source_auditor", "Source Auditor", "Map 5 sources of influence", "🔍",
		CategoryModule, RarityUncommon, 5, func(d CheckData) int { return len(d.InfluenceSources) }),

	countBadge("first_reflection", "First Reflection", "Write your first daily reflection", "✏️",
		CategoryReflection, RarityCommon, 1, func(d CheckData) int { return len(d.Reflections) }),
	countBadge("reflection_10", "Reflective Practice", "Write 10 daily reflections", "📓",
		CategoryReflection, RarityCommon, 10, func(d CheckData) int { return len(d.Reflections) }),
	countBadge("insight_hunter", "Insight Hunter", "Flag 5 reflections as insightful", "💡",
		CategoryReflection, RarityUncommon, 5, insightfulCount),

	{
		ID:          "epistemic_autonomy",
		Name:        "Epistemic Autonomy",
		Description: "Use every core module, write 20 reflections and reach a 30-day streak",
		Icon:        "🦉",
		Category:    CategoryAchievement,
		Rarity:      RarityEpic,
		Condition: func(d CheckData) bool {
			return len(d.DisconfirmGames) >= 1 &&
				len(d.SchemaReclaims) >= 1 &&
				len(d.InfluenceSources) >= 1 &&
				len(d.Reflections) >= 20 &&
				d.Streak.Longest >= 30
		},
		Progress: func(d CheckData) float64 {
			return average(
				ratio(len(d.DisconfirmGames), 1),
				ratio(len(d.SchemaReclaims), 1),
				ratio(len(d.InfluenceSources), 1),
				ratio(len(d.Reflections), 20),
				ratio(d.Streak.Longest, 30),
			)
		},
	},
	{
		ID:          "steelman_initiate",
		Name:        "Steelman Initiate",
		Description: "Argue the other side with a charity score of 60 or more",
		Icon:        "🤝",
		Category:    CategoryModule,
		Rarity:      RarityCommon,
		Condition:   func(d CheckData) bool { return maxCharity(d) >= 60 },
		Progress:    func(d CheckData) float64 { return clamp01(maxCharity(d) / 60) },
	},
	{
		ID:          "intellectual_honesty",
		Name:        "Intellectual Honesty",
		Description: "Complete 5 argument flips with an average charity score of 70",
		Icon:        "⚖️",
		Category:    CategoryModule,
		Rarity:      RarityRare,
		Condition: func(d CheckData) bool {
			return len(d.ArgumentFlips) >= 5 && meanCharity(d) >= 70
		},
		Progress: func(d CheckData) float64 {
			return average(ratio(len(d.ArgumentFlips), 5), clamp01(meanCharity(d)/70))
		},
	},
	countBadge("source_detective", "Source Detective", "Complete 7 source audits", "🕵️",
		CategoryModule, RarityUncommon, 7, func(d CheckData) int { return len(d.SourceAudits) }),
	{
		ID:          "independent_thinker",
		Name:        "Independent Thinker",
		Description: "Complete 14 source audits with an independence score above 75",
		Icon:        "🧭",
		Category:    CategoryAchievement,
		Rarity:      RarityEpic,
		Condition: func(d CheckData) bool {
			return len(d.SourceAudits) >= independentAuditsNeeded && IndependenceScore(d) > independenceThreshold
		},
		Progress: func(d CheckData) float64 {
			if len(d.SourceAudits) == 0 {
				return 0
			}
			return average(
				ratio(len(d.SourceAudits), independentAuditsNeeded),
				clamp01(IndependenceScore(d)/independenceThreshold),
			)
		},
	},
	{
		ID:          "balanced_mind",
		Name:        "Balanced Mind",
		Description: "Score all four constructs within 15 points of each other",
		Icon:        "☯️",
		Category:    CategoryAchievement,
		Rarity:      RarityRare,
		Condition: func(d CheckData) bool {
			spread, ok := d.Profile.Spread()
			return ok && spread <= balancedSpread
		},
		Progress: balancedProgress,
	},
}

var byID = func() map[string]*Definition {
	m := make(map[string]*Definition, len(catalog))
	for i := range catalog {
		m[catalog[i].ID] = &catalog[i]
	}
	return m
}()

// Catalog returns a copy of every definition in display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// GetBadgeByID returns the definition for id, or nil when id is unknown.
func GetBadgeByID(id string) *Definition {
	def, ok := byID[id]
	if !ok {
		return nil
	}
	cp := *def
	return &cp
}

// ProgressForBadge reports how close data is to unlocking id, in [0,1].
// Unknown ids report 0. A satisfied condition always reports 1.
func ProgressForBadge(id string, data CheckData) float64 {
	def, ok := byID[id]
	if !ok {
		return 0
	}
	if def.Condition(data) {
		return 1
	}
	return clamp01(def.Progress(data))
}

// IndependenceScore rates how independently the user sources beliefs,
// 0-100. The most recent audit's dependency level sets the base penalty;
// every evidence gap across all audits costs half a point; mapping at least
// three distinct beneficiaries earns a bonus.
func IndependenceScore(d CheckData) float64 {
	score := 100.0
	if latest, ok := latestAudit(d.SourceAudits); ok {
		switch latest.DependencyLevel {
		case activity.DependencyHigh:
			score -= 30
		case activity.DependencyModerate:
			score -= 15
		}
	}
	gaps := 0
	for _, a := range d.SourceAudits {
		gaps += a.EvidenceGaps
	}
	score -= 0.5 * float64(gaps)

	beneficiaries := make(map[string]struct{})
	for _, s := range d.InfluenceSources {
		if s.Beneficiary != "" {
			beneficiaries[s.Beneficiary] = struct{}{}
		}
	}
	if len(beneficiaries) >= 3 {
		score += 5
	}
	return clamp(score, 0, 100)
}

func latestAudit(audits []activity.SourceAudit) (activity.SourceAudit, bool) {
	if len(audits) == 0 {
		return activity.SourceAudit{}, false
	}
	latest := audits[0]
	for _, a := range audits[1:] {
		if !a.CreatedAt.Before(latest.CreatedAt) {
			latest = a
		}
	}
	return latest, true
}

func streakBadge(id, name, desc, icon string, target int, rarity Rarity, reached func(streak.Milestones) bool) Definition {
	return Definition{
		ID:          id,
		Name:        name,
		Description: desc,
		Icon:        icon,
		Category:    CategoryStreak,
		Rarity:      rarity,
		Condition:   func(d CheckData) bool { return reached(d.Streak.Milestones) },
		Progress:    func(d CheckData) float64 { return ratio(d.Streak.Current, target) },
	}
}

func countBadge(id, name, desc, icon string, cat Category, rarity Rarity, threshold int, count func(CheckData) int) Definition {
	return Definition{
		ID:          id,
		Name:        name,
		Description: desc,
		Icon:        icon,
		Category:    cat,
		Rarity:      rarity,
		Condition:   func(d CheckData) bool { return count(d) >= threshold },
		Progress:    func(d CheckData) float64 { return ratio(count(d), threshold) },
	}
}

func insightfulCount(d CheckData) int {
	n := 0
	for _, r := range d.Reflections {
		if r.Insightful {
			n++
		}
	}
	return n
}

func maxCharity(d CheckData) float64 {
	var best float64
	for _, f := range d.ArgumentFlips {
		if f.CharityScore > best {
			best = f.CharityScore
		}
	}
	return best
}

func meanCharity(d CheckData) float64 {
	if len(d.ArgumentFlips) == 0 {
		return 0
	}
	var sum float64
	for _, f := range d.ArgumentFlips {
		sum += f.CharityScore
	}
	return sum / float64(len(d.ArgumentFlips))
}

func balancedProgress(d CheckData) float64 {
	if d.Profile == nil {
		return 0
	}
	measured := 0
	for _, c := range itembank.Constructs {
		if d.Profile.Scores[c].Measured() {
			measured++
		}
	}
	coverage := ratio(measured, len(itembank.Constructs))
	spread, ok := d.Profile.Spread()
	if !ok {
		return coverage / 2
	}
	closeness := 1.0
	if spread > balancedSpread {
		closeness = balancedSpread / spread
	}
	return average(coverage, closeness)
}

func ratio(n, target int) float64 {
	if target <= 0 {
		return 0
	}
	return clamp01(float64(n) / float64(target))
}

func average(parts ...float64) float64 {
	if len(parts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range parts {
		sum += clamp01(p)
	}
	return sum / float64(len(parts))
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
