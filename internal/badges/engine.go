package badges

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Badge is an unlocked catalog entry owned by one user.
type Badge struct {
	ID          string    `json:"id"`
	BadgeID     string    `json:"badgeId"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// Store persists unlocks. InsertBadge must be idempotent on
// (UserID, BadgeID) and report whether a new row was written.
type Store interface {
	InsertBadge(ctx context.Context, b Badge) (bool, error)
}

// Engine decides and persists unlocks.
type Engine struct {
	store Store
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the unlock timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides badge id generation.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs every catalog condition not already unlocked and persists
// each one that holds. Only rows actually inserted are returned, so a
// concurrent evaluation that lost the insert race reports nothing.
func (e *Engine) Evaluate(ctx context.Context, userID string, data CheckData, alreadyUnlocked []string) ([]Badge, error) {
	skip := make(map[string]struct{}, len(alreadyUnlocked))
	for _, id := range alreadyUnlocked {
		skip[id] = struct{}{}
	}

	var unlocked []Badge
	for _, def := range Pending(data, skip) {
		b := Badge{
			ID:          e.newID(),
			BadgeID:     def.ID,
			UserID:      userID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			UnlockedAt:  e.now().UTC(),
		}
		inserted, err := e.store.InsertBadge(ctx, b)
		if err != nil {
			return unlocked, fmt.Errorf("unlock %s: %w", def.ID, err)
		}
		if inserted {
			unlocked = append(unlocked, b)
		}
	}
	return unlocked, nil
}

// Pending returns the definitions whose condition holds and whose id is
// not in skip. It performs no I/O.
func Pending(data CheckData, skip map[string]struct{}) []Definition {
	var out []Definition
	for _, def := range catalog {
		if _, done := skip[def.ID]; done {
			continue
		}
		if def.Condition(data) {
			out = append(out, def)
		}
	}
	return out
}

// Entry is one row of a catalog overview.
type Entry struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Category    Category   `json:"category"`
	Rarity      Rarity     `json:"rarity"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
	Progress    float64    `json:"progress"`
}

// Overview lists every catalog entry with unlock state and progress.
func Overview(data CheckData, owned []Badge) []Entry {
	have := make(map[string]time.Time, len(owned))
	for _, b := range owned {
		have[b.BadgeID] = b.UnlockedAt
	}
	out := make([]Entry, 0, len(catalog))
	for _, def := range catalog {
		e := Entry{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Category:    def.Category,
			Rarity:      def.Rarity,
			Progress:    ProgressForBadge(def.ID, data),
		}
		if at, ok := have[def.ID]; ok {
			e.Unlocked = true
			e.UnlockedAt = &at
			e.Progress = 1
		}
		out = append(out, e)
	}
	return out
}
