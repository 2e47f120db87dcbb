// Package activity defines the user activity records produced by the
// practice modules and daily reflections.
package activity

import (
	"fmt"
	"strings"
	"time"
)

// Module names one practice module.
type Module string

const (
	ModuleDisconfirm    Module = "disconfirm"
	ModuleSchemaReclaim Module = "schema_reclaim"
	ModuleInfluence     Module = "influence"
	ModuleArgumentFlip  Module = "argument_flip"
	ModuleSourceAudit   Module = "source_audit"
)

// Modules lists every module in display order.
var Modules = []Module{
	ModuleDisconfirm,
	ModuleSchemaReclaim,
	ModuleInfluence,
	ModuleArgumentFlip,
	ModuleSourceAudit,
}

func (m Module) IsValid() bool {
	for _, known := range Modules {
		if m == known {
			return true
		}
	}
	return false
}

// DependencyLevel rates how much a source audit found the user leaning on
// a single source.
type DependencyLevel string

const (
	DependencyHigh     DependencyLevel = "high"
	DependencyModerate DependencyLevel = "moderate"
	DependencyLow      DependencyLevel = "low"
)

func (l DependencyLevel) IsValid() bool {
	switch l {
	case DependencyHigh, DependencyModerate, DependencyLow:
		return true
	default:
		return false
	}
}

// Reflection is one daily reflection entry.
type Reflection struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt,omitempty"`
	Text       string    `json:"text"`
	Insightful bool      `json:"insightful"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DisconfirmGame records a session spent looking for evidence against a
// held belief.
type DisconfirmGame struct {
	ID        string    `json:"id"`
	Belief    string    `json:"belief"`
	Evidence  []string  `json:"evidence,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SchemaReclaim records a session reworking an inherited belief schema.
type SchemaReclaim struct {
	ID        string    `json:"id"`
	Schema    string    `json:"schema"`
	Reframe   string    `json:"reframe,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// InfluenceSource is one mapped source of influence and who benefits from
// the user believing it.
type InfluenceSource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Beneficiary string    `json:"beneficiary,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ArgumentFlip records an attempt to argue the opposing side. CharityScore
// is 0-100.
type ArgumentFlip struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	CharityScore float64   `json:"charityScore"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SourceAudit records one audit of where a belief came from.
type SourceAudit struct {
	ID              string          `json:"id"`
	Belief          string          `json:"belief"`
	DependencyLevel DependencyLevel `json:"dependencyLevel"`
	EvidenceGaps    int             `json:"evidenceGaps"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Milestone is a recorded achievement event such as a streak threshold.
type Milestone struct {
	Kind      string    `json:"kind"`
	Value     int       `json:"value"`
	ReachedAt time.Time `json:"reachedAt"`
}

// Log is the full activity history of one user.
type Log struct {
	Reflections      []Reflection      `json:"reflections"`
	DisconfirmGames  []DisconfirmGame  `json:"disconfirmGames"`
	SchemaReclaims   []SchemaReclaim   `json:"schemaReclaims"`
	InfluenceSources []InfluenceSource `json:"influenceSources"`
	ArgumentFlips    []ArgumentFlip    `json:"argumentFlips"`
	SourceAudits     []SourceAudit     `json:"sourceAudits"`
}

// Count returns the number of records for m.
func (l *Log) Count(m Module) int {
	switch m {
	case ModuleDisconfirm:
		return len(l.DisconfirmGames)
	case ModuleSchemaReclaim:
		return len(l.SchemaReclaims)
	case ModuleInfluence:
		return len(l.InfluenceSources)
	case ModuleArgumentFlip:
		return len(l.ArgumentFlips)
	case ModuleSourceAudit:
		return len(l.SourceAudits)
	default:
		return 0
	}
}

// Len returns the total number of records including reflections.
func (l *Log) Len() int {
	n := len(l.Reflections)
	for _, m := range Modules {
		n += l.Count(m)
	}
	return n
}

// Validate checks field ranges that the storage layer relies on.
func (l *Log) Validate() error {
	for _, f := range l.ArgumentFlips {
		if f.CharityScore < 0 || f.CharityScore > 100 {
			return fmt.Errorf("argument flip %q: charity score %v outside 0-100", f.Topic, f.CharityScore)
		}
	}
	for _, a := range l.SourceAudits {
		if !a.DependencyLevel.IsValid() {
			return fmt.Errorf("source audit %q: unknown dependency level %q", a.Belief, a.DependencyLevel)
		}
		if a.EvidenceGaps < 0 {
			return fmt.Errorf("source audit %q: evidence gaps must not be negative", a.Belief)
		}
	}
	for _, r := range l.Reflections {
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("reflection %q: text is required", r.ID)
		}
	}
	return nil
}
