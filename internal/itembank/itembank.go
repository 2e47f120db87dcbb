// Package itembank holds the static assessment item catalog.
//
// Items are defined in an embedded YAML document and parsed once. A Bank is
// immutable after construction and safe for concurrent use.
package itembank

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	yamlv3 "gopkg.in/yaml.v3"
)

//go:embed items.yaml
var builtinItems []byte

// Construct is one of the measured psychological constructs.
type Construct string

const (
	ConstructEAI Construct = "EAI" // epistemic autonomy
	ConstructRF  Construct = "RF"  // reflective functioning
	ConstructAOT Construct = "AOT" // actively open-minded thinking
	ConstructIH  Construct = "IH"  // intellectual humility
)

// Constructs lists every construct in display order.
var Constructs = []Construct{ConstructEAI, ConstructRF, ConstructAOT, ConstructIH}

// Label is the display name of the construct.
func (c Construct) Label() string {
	switch c {
	case ConstructEAI:
		return "Epistemic autonomy"
	case ConstructRF:
		return "Reflective functioning"
	case ConstructAOT:
		return "Actively open-minded thinking"
	case ConstructIH:
		return "Intellectual humility"
	default:
		return string(c)
	}
}

func (c Construct) IsValid() bool {
	switch c {
	case ConstructEAI, ConstructRF, ConstructAOT, ConstructIH:
		return true
	default:
		return false
	}
}

// ParseConstruct normalizes user input. Unknown input yields ("", false).
func ParseConstruct(input string) (Construct, bool) {
	c := Construct(strings.ToUpper(strings.TrimSpace(input)))
	if !c.IsValid() {
		return "", false
	}
	return c, true
}

// Kind distinguishes Likert statements from multiple-choice vignettes.
type Kind string

const (
	KindLikert   Kind = "likert"
	KindVignette Kind = "vignette"
)

// Option is a vignette answer. Score is pre-normalized to the 1-7 scale.
type Option struct {
	ID    string  `yaml:"id" json:"id"`
	Label string  `yaml:"label" json:"label"`
	Score float64 `yaml:"score" json:"score"`
}

// AttentionCheck marks an item whose only correct answer is Expected.
type AttentionCheck struct {
	Expected float64 `yaml:"expected" json:"expected"`
}

// Item is a single catalog entry.
type Item struct {
	ID             string          `yaml:"id" json:"id"`
	Construct      Construct       `yaml:"construct" json:"construct"`
	Kind           Kind            `yaml:"kind" json:"kind"`
	Prompt         string          `yaml:"prompt" json:"prompt"`
	Reverse        bool            `yaml:"reverse,omitempty" json:"reverse,omitempty"`
	Options        []Option        `yaml:"options,omitempty" json:"options,omitempty"`
	AttentionCheck *AttentionCheck `yaml:"attention_check,omitempty" json:"attention_check,omitempty"`
}

// IsAttentionCheck reports whether the item is excluded from scoring.
func (i Item) IsAttentionCheck() bool {
	return i.AttentionCheck != nil
}

// Scored maps a raw 1-7 answer onto the construct direction. Reverse-keyed
// Likert items contribute 8-v.
func (i Item) Scored(value float64) float64 {
	if i.Kind == KindLikert && i.Reverse {
		return 8 - value
	}
	return value
}

// Option returns the vignette option with the given id.
func (i Item) Option(id string) (Option, bool) {
	for _, o := range i.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Bank is an indexed, read-only set of items.
type Bank struct {
	items []Item
	index map[string]int
}

type document struct {
	Items []Item `yaml:"items"`
}

// Load parses and validates a YAML item document.
func Load(data []byte) (*Bank, error) {
	var doc document
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing item bank: %w", err)
	}
	return New(doc.Items)
}

// New builds a Bank from items, rejecting duplicates and malformed entries.
func New(items []Item) (*Bank, error) {
	b := &Bank{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		if err := validateItem(it); err != nil {
			return nil, err
		}
		if _, dup := b.index[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id: %s", it.ID)
		}
		b.index[it.ID] = len(b.items)
		b.items = append(b.items, it)
	}
	return b, nil
}

func validateItem(it Item) error {
	if strings.TrimSpace(it.ID) == "" {
		return fmt.Errorf("item id is required")
	}
	if !it.Construct.IsValid() {
		return fmt.Errorf("item %s: invalid construct %q", it.ID, it.Construct)
	}
	switch it.Kind {
	case KindLikert:
		if len(it.Options) > 0 {
			return fmt.Errorf("item %s: likert items cannot have options", it.ID)
		}
	case KindVignette:
		if len(it.Options) == 0 {
			return fmt.Errorf("item %s: vignette items need options", it.ID)
		}
		if it.Reverse {
			return fmt.Errorf("item %s: vignette items cannot be reverse scored", it.ID)
		}
		for _, o := range it.Options {
			if o.Score < 1 || o.Score > 7 {
				return fmt.Errorf("item %s: option %s score %.2f outside 1-7", it.ID, o.ID, o.Score)
			}
		}
	default:
		return fmt.Errorf("item %s: invalid kind %q", it.ID, it.Kind)
	}
	return nil
}

// Item looks up an item by id.
func (b *Bank) Item(id string) (Item, bool) {
	i, ok := b.index[id]
	if !ok {
		return Item{}, false
	}
	return b.items[i], true
}

// Items returns a copy of all items in catalog order.
func (b *Bank) Items() []Item {
	out := make([]Item, len(b.items))
	copy(out, b.items)
	return out
}

// ByConstruct returns the scored (non attention-check) items for c.
func (b *Bank) ByConstruct(c Construct) []Item {
	var out []Item
	for _, it := range b.items {
		if it.Construct == c && !it.IsAttentionCheck() {
			out = append(out, it)
		}
	}
	return out
}

// AttentionChecks returns the ids of all attention-check items, sorted.
func (b *Bank) AttentionChecks() []string {
	var ids []string
	for _, it := range b.items {
		if it.IsAttentionCheck() {
			ids = append(ids, it.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of items.
func (b *Bank) Len() int { return len(b.items) }

var (
	defaultOnce sync.Once
	defaultBank *Bank
)

// Default returns the built-in bank. The embedded document is part of the
// binary, so a parse failure is a programming error.
func Default() *Bank {
	defaultOnce.Do(func() {
		b, err := Load(builtinItems)
		if err != nil {
			panic(fmt.Sprintf("itembank: builtin items: %v", err))
		}
		defaultBank = b
	})
	return defaultBank
}
