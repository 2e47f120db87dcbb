// Package response models user answers and their upsert-by-key storage.
package response

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	MinValue = 1.0
	MaxValue = 7.0
)

// ErrValueOutOfRange is returned for answers outside the 1-7 scale.
var ErrValueOutOfRange = errors.New("response value out of range")

// RangeError carries the offending answer. It unwraps to ErrValueOutOfRange.
type RangeError struct {
	AssessmentID string
	ItemID       string
	Value        float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("item %s in assessment %s: value %v outside %g-%g", e.ItemID, e.AssessmentID, e.Value, MinValue, MaxValue)
}

func (e *RangeError) Unwrap() error { return ErrValueOutOfRange }

// UserResponse is one answer to one item within one assessment instance.
type UserResponse struct {
	UserID       string    `json:"userId"`
	AssessmentID string    `json:"assessmentId"`
	ItemID       string    `json:"itemId"`
	Value        float64   `json:"value"`
	Timestamp    time.Time `json:"timestamp"`
}

// Validate enforces the 1-7 input contract. Out-of-range values are never
// clamped.
func (r UserResponse) Validate() error {
	if math.IsNaN(r.Value) || r.Value < MinValue || r.Value > MaxValue {
		return &RangeError{AssessmentID: r.AssessmentID, ItemID: r.ItemID, Value: r.Value}
	}
	if r.ItemID == "" {
		return fmt.Errorf("response in assessment %s: item id is required", r.AssessmentID)
	}
	return nil
}

// Key identifies the current answer slot for one user.
type Key struct {
	AssessmentID string
	ItemID       string
}

// Set holds at most one current answer per (assessment, item) for a single
// user. A later Put for the same key supersedes the earlier answer.
type Set struct {
	UserID  string
	answers map[Key]UserResponse
}

// NewSet creates an empty set for userID.
func NewSet(userID string) *Set {
	return &Set{UserID: userID, answers: make(map[Key]UserResponse)}
}

// Put validates and upserts r. Responses for other users are rejected.
func (s *Set) Put(r UserResponse) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.UserID == "" {
		r.UserID = s.UserID
	}
	if r.UserID != s.UserID {
		return fmt.Errorf("response for user %q added to set for %q", r.UserID, s.UserID)
	}
	s.answers[Key{AssessmentID: r.AssessmentID, ItemID: r.ItemID}] = r
	return nil
}

// PutAll upserts every response, stopping at the first invalid one.
func (s *Set) PutAll(rs []UserResponse) error {
	for _, r := range rs {
		if err := s.Put(r); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of current answers.
func (s *Set) Len() int { return len(s.answers) }

// All returns current answers in answer order.
func (s *Set) All() []UserResponse {
	out := make([]UserResponse, 0, len(s.answers))
	for _, r := range s.answers {
		out = append(out, r)
	}
	SortByTime(out)
	return out
}

// SortByTime orders responses by timestamp, breaking ties by assessment and
// item id so the order is deterministic.
func SortByTime(rs []UserResponse) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].Timestamp.Equal(rs[j].Timestamp) {
			return rs[i].Timestamp.Before(rs[j].Timestamp)
		}
		if rs[i].AssessmentID != rs[j].AssessmentID {
			return rs[i].AssessmentID < rs[j].AssessmentID
		}
		return rs[i].ItemID < rs[j].ItemID
	})
}

// ValidateAll returns the first contract violation in rs.
func ValidateAll(rs []UserResponse) error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
