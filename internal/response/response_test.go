package response

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/autonomy/internal/itembank"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"lower bound", 1, false},
		{"upper bound", 7, false},
		{"fractional", 4.5, false},
		{"zero", 0, true},
		{"above", 7.01, true},
		{"negative", -3, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := UserResponse{AssessmentID: "a1", ItemID: "eai_01", Value: tt.value}.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValueOutOfRange))
				var re *RangeError
				require.True(t, errors.As(err, &re))
				assert.Equal(t, "eai_01", re.ItemID)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSetUpsertSupersedes(t *testing.T) {
	s := NewSet("u1")
	require.NoError(t, s.Put(UserResponse{AssessmentID: "a1", ItemID: "eai_01", Value: 2, Timestamp: t0}))
	require.NoError(t, s.Put(UserResponse{AssessmentID: "a1", ItemID: "eai_01", Value: 6, Timestamp: t0.Add(time.Minute)}))
	require.NoError(t, s.Put(UserResponse{AssessmentID: "a2", ItemID: "eai_01", Value: 3, Timestamp: t0}))

	assert.Equal(t, 2, s.Len())
	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a2", all[0].AssessmentID, "ordered by answer time")
	assert.Equal(t, 6.0, all[1].Value)
	assert.Equal(t, "u1", all[1].UserID)
}

func TestSetRejectsInvalidAndForeignUser(t *testing.T) {
	s := NewSet("u1")
	assert.ErrorIs(t, s.Put(UserResponse{AssessmentID: "a1", ItemID: "x", Value: 8}), ErrValueOutOfRange)
	assert.Error(t, s.Put(UserResponse{UserID: "u2", AssessmentID: "a1", ItemID: "x", Value: 3}))
	assert.Equal(t, 0, s.Len())
}

func TestSortByTime(t *testing.T) {
	rs := []UserResponse{
		{AssessmentID: "a", ItemID: "b", Timestamp: t0},
		{AssessmentID: "a", ItemID: "c", Timestamp: t0.Add(-time.Second)},
		{AssessmentID: "a", ItemID: "a", Timestamp: t0},
	}
	SortByTime(rs)
	assert.Equal(t, "c", rs[0].ItemID)
	assert.Equal(t, "a", rs[1].ItemID)
	assert.Equal(t, "b", rs[2].ItemID)
}

func TestParseDocument(t *testing.T) {
	data := []byte(`
userId: u1
assessmentId: a1
elapsedSeconds: 90
responses:
  - itemId: eai_01
    value: 6
    timestamp: "2025-03-01T09:00:00Z"
  - itemId: eai_v1
    option: d
  - itemId: rf_01
    value: 3
    extra: ignored
`)
	doc, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, doc.Elapsed())

	rs, err := doc.Responses(itembank.Default(), "fallback", t0)
	require.NoError(t, err)
	require.Len(t, rs, 3)
	assert.Equal(t, "u1", rs[0].UserID)
	assert.Equal(t, 6.0, rs[0].Value)
	assert.Equal(t, 7.0, rs[1].Value)
	assert.Equal(t, t0, rs[1].Timestamp)
}

func TestDocumentResponsesErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"out of range", "assessmentId: a1\nresponses:\n  - itemId: eai_01\n    value: 9\n"},
		{"missing value", "assessmentId: a1\nresponses:\n  - itemId: eai_01\n"},
		{"unknown option", "assessmentId: a1\nresponses:\n  - itemId: eai_v1\n    option: z\n"},
		{"bad timestamp", "assessmentId: a1\nresponses:\n  - itemId: eai_01\n    value: 3\n    timestamp: yesterday\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.doc))
			require.NoError(t, err)
			_, err = doc.Responses(itembank.Default(), "u1", t0)
			assert.Error(t, err)
		})
	}

	_, err := ParseDocument([]byte("userId: u1\n"))
	assert.Error(t, err)
}
