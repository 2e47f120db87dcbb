package response

import (
	"fmt"
	"strings"
	"time"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/dotcommander/autonomy/internal/itembank"
)

// Document is the on-disk form of one completed assessment instance. JSON
// is accepted as well since it is a subset of YAML.
type Document struct {
	UserID         string           `yaml:"userId"`
	AssessmentID   string           `yaml:"assessmentId"`
	ElapsedSeconds float64          `yaml:"elapsedSeconds,omitempty"`
	Answers        []DocumentAnswer `yaml:"responses"`
}

// DocumentAnswer carries either a numeric value or, for vignettes, the id
// of the chosen option.
type DocumentAnswer struct {
	ItemID    string   `yaml:"itemId"`
	Value     *float64 `yaml:"value,omitempty"`
	Option    string   `yaml:"option,omitempty"`
	Timestamp string   `yaml:"timestamp,omitempty"`
}

// ParseDocument decodes a response document. Unknown fields are ignored.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing response document: %w", err)
	}
	if strings.TrimSpace(doc.AssessmentID) == "" {
		return nil, fmt.Errorf("response document: assessmentId is required")
	}
	return &doc, nil
}

// Elapsed returns the declared completion time, zero when absent.
func (d *Document) Elapsed() time.Duration {
	if d.ElapsedSeconds <= 0 {
		return 0
	}
	return time.Duration(d.ElapsedSeconds * float64(time.Second))
}

// Responses resolves answers into UserResponses. Option answers are mapped
// through the bank; missing timestamps default to fallback.
func (d *Document) Responses(bank *itembank.Bank, userID string, fallback time.Time) ([]UserResponse, error) {
	if d.UserID != "" {
		userID = d.UserID
	}
	out := make([]UserResponse, 0, len(d.Answers))
	for _, a := range d.Answers {
		value, err := a.resolve(bank)
		if err != nil {
			return nil, fmt.Errorf("assessment %s: %w", d.AssessmentID, err)
		}
		ts := fallback
		if a.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339, a.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("assessment %s item %s: invalid timestamp %q: %w", d.AssessmentID, a.ItemID, a.Timestamp, err)
			}
			ts = parsed
		}
		r := UserResponse{
			UserID:       userID,
			AssessmentID: d.AssessmentID,
			ItemID:       a.ItemID,
			Value:        value,
			Timestamp:    ts.UTC(),
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (a DocumentAnswer) resolve(bank *itembank.Bank) (float64, error) {
	if a.Value != nil {
		return *a.Value, nil
	}
	if a.Option == "" {
		return 0, fmt.Errorf("item %s: value or option is required", a.ItemID)
	}
	it, ok := bank.Item(a.ItemID)
	if !ok {
		return 0, fmt.Errorf("item %s: unknown item for option answer", a.ItemID)
	}
	opt, ok := it.Option(a.Option)
	if !ok {
		return 0, fmt.Errorf("item %s: unknown option %q", a.ItemID, a.Option)
	}
	return opt.Score, nil
}
