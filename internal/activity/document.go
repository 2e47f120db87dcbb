package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	yamlv3 "gopkg.in/yaml.v3"
)

// Document is the on-disk import form of activity records (YAML or JSON).
// Timestamps are RFC 3339 strings; absent ones take the import time.
// Record ids are optional; see RecordID.
type Document struct {
	UserID           string           `yaml:"userId,omitempty"`
	Reflections      []docReflection  `yaml:"reflections"`
	DisconfirmGames  []docDisconfirm  `yaml:"disconfirmGames"`
	SchemaReclaims   []docSchema      `yaml:"schemaReclaims"`
	InfluenceSources []docInfluence   `yaml:"influenceSources"`
	ArgumentFlips    []docFlip        `yaml:"argumentFlips"`
	SourceAudits     []docSourceAudit `yaml:"sourceAudits"`
}

type docReflection struct {
	ID         string `yaml:"id"`
	Prompt     string `yaml:"prompt"`
	Text       string `yaml:"text"`
	Insightful bool   `yaml:"insightful"`
	CreatedAt  string `yaml:"createdAt"`
}

type docDisconfirm struct {
	ID        string   `yaml:"id"`
	Belief    string   `yaml:"belief"`
	Evidence  []string `yaml:"evidence"`
	CreatedAt string   `yaml:"createdAt"`
}

type docSchema struct {
	ID        string `yaml:"id"`
	Schema    string `yaml:"schema"`
	Reframe   string `yaml:"reframe"`
	CreatedAt string `yaml:"createdAt"`
}

type docInfluence struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Beneficiary string `yaml:"beneficiary"`
	CreatedAt   string `yaml:"createdAt"`
}

type docFlip struct {
	ID           string  `yaml:"id"`
	Topic        string  `yaml:"topic"`
	CharityScore float64 `yaml:"charityScore"`
	CreatedAt    string  `yaml:"createdAt"`
}

type docSourceAudit struct {
	ID              string `yaml:"id"`
	Belief          string `yaml:"belief"`
	DependencyLevel string `yaml:"dependencyLevel"`
	EvidenceGaps    int    `yaml:"evidenceGaps"`
	CreatedAt       string `yaml:"createdAt"`
}

// ParseDocument decodes an activity document. Unknown fields are ignored.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing activity document: %w", err)
	}
	return &doc, nil
}

// recordNamespace seeds derived record ids.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dotcommander/autonomy/activity"))

// RecordID returns id when set, otherwise a name-based UUID over kind and
// the record's fields as written. Importing the same record twice yields
// the same id; the import time never takes part.
func RecordID(id, kind string, fields ...string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	name := kind + "\x00" + strings.Join(fields, "\x00")
	return uuid.NewSHA1(recordNamespace, []byte(name)).String()
}

// Log converts the document into typed records.
func (d *Document) Log(fallback time.Time) (*Log, error) {
	at := func(s string) (time.Time, error) {
		if s == "" {
			return fallback.UTC(), nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid createdAt %q: %w", s, err)
		}
		return t.UTC(), nil
	}

	var log Log
	for _, r := range d.Reflections {
		ts, err := at(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("reflection: %w", err)
		}
		log.Reflections = append(log.Reflections, Reflection{
			ID:         RecordID(r.ID, "reflection", r.CreatedAt, r.Prompt, r.Text),
			Prompt:     r.Prompt,
			Text:       r.Text,
			Insightful: r.Insightful,
			CreatedAt:  ts,
		})
	}
	for _, g := range d.DisconfirmGames {
		ts, err := at(g.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("disconfirm game: %w", err)
		}
		fields := append([]string{g.CreatedAt, g.Belief}, g.Evidence...)
		log.DisconfirmGames = append(log.DisconfirmGames, DisconfirmGame{
			ID:        RecordID(g.ID, string(ModuleDisconfirm), fields...),
			Belief:    g.Belief,
			Evidence:  g.Evidence,
			CreatedAt: ts,
		})
	}
	for _, s := range d.SchemaReclaims {
		ts, err := at(s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("schema reclaim: %w", err)
		}
		log.SchemaReclaims = append(log.SchemaReclaims, SchemaReclaim{
			ID:        RecordID(s.ID, string(ModuleSchemaReclaim), s.CreatedAt, s.Schema, s.Reframe),
			Schema:    s.Schema,
			Reframe:   s.Reframe,
			CreatedAt: ts,
		})
	}
	for _, i := range d.InfluenceSources {
		ts, err := at(i.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("influence source: %w", err)
		}
		log.InfluenceSources = append(log.InfluenceSources, InfluenceSource{
			ID:          RecordID(i.ID, string(ModuleInfluence), i.CreatedAt, i.Name, i.Beneficiary),
			Name:        i.Name,
			Beneficiary: i.Beneficiary,
			CreatedAt:   ts,
		})
	}
	for _, f := range d.ArgumentFlips {
		ts, err := at(f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("argument flip: %w", err)
		}
		score := strconv.FormatFloat(f.CharityScore, 'g', -1, 64)
		log.ArgumentFlips = append(log.ArgumentFlips, ArgumentFlip{
			ID:           RecordID(f.ID, string(ModuleArgumentFlip), f.CreatedAt, f.Topic, score),
			Topic:        f.Topic,
			CharityScore: f.CharityScore,
			CreatedAt:    ts,
		})
	}
	for _, a := range d.SourceAudits {
		ts, err := at(a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("source audit: %w", err)
		}
		log.SourceAudits = append(log.SourceAudits, SourceAudit{
			ID:              RecordID(a.ID, string(ModuleSourceAudit), a.CreatedAt, a.Belief, a.DependencyLevel, strconv.Itoa(a.EvidenceGaps)),
			Belief:          a.Belief,
			DependencyLevel: DependencyLevel(a.DependencyLevel),
			EvidenceGaps:    a.EvidenceGaps,
			CreatedAt:       ts,
		})
	}
	if err := log.Validate(); err != nil {
		return nil, err
	}
	return &log, nil
}
