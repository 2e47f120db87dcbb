package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/badges"
	"github.com/dotcommander/autonomy/internal/config"
	"github.com/dotcommander/autonomy/internal/cue"
	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/storage"
	"github.com/dotcommander/autonomy/internal/streak"
	"github.com/dotcommander/autonomy/internal/trend"
)

var day0 = time.Date(2025, 4, 7, 9, 30, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func testConfig() *config.Config {
	return &config.Config{
		UserID:      "u1",
		Format:      "console",
		Concurrency: 3,
		Timezone:    "UTC",
	}
}

func newTestService(t *testing.T, clk *fakeClock) (*Service, *sql.DB) {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "autonomy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	n := 0
	svc, err := New(db, testConfig(),
		WithClock(clk.Now),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%03d", n) }),
	)
	require.NoError(t, err)
	return svc, db
}

// responsesDoc renders a response document answering every EAI and RF
// Likert item with the given values, plus the attention check.
func responsesDoc(assessmentID string, eai, rf [5]float64, attention float64, elapsed int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "assessmentId: %s\n", assessmentID)
	if elapsed > 0 {
		fmt.Fprintf(&b, "elapsedSeconds: %d\n", elapsed)
	}
	b.WriteString("responses:\n")
	for i, v := range eai {
		fmt.Fprintf(&b, "  - itemId: eai_0%d\n    value: %g\n", i+1, v)
	}
	for i, v := range rf {
		fmt.Fprintf(&b, "  - itemId: rf_0%d\n    value: %g\n", i+1, v)
	}
	fmt.Fprintf(&b, "  - itemId: attn_01\n    value: %g\n", attention)
	return []byte(b.String())
}

func badgeIDs(bs []badges.Badge) []string {
	ids := make([]string, len(bs))
	for i, b := range bs {
		ids[i] = b.BadgeID
	}
	return ids
}

func TestScoreStoresProfileAndStreak(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: day0}
	svc, _ := newTestService(t, clk)

	doc := responsesDoc("a1", [5]float64{6, 6, 2, 6, 2}, [5]float64{4, 4, 4, 4, 4}, 5, 300)
	report, err := svc.Score(ctx, "u1", Submission{Source: "a1.yaml", Data: doc})
	require.NoError(t, err)

	require.Len(t, report.Assessments, 1)
	res := report.Assessments[0]
	assert.Equal(t, "a1", res.AssessmentID)
	assert.Equal(t, 11, res.Responses)
	assert.True(t, res.Integrity.AttentionCheckPassed)
	assert.False(t, res.Integrity.CompletionTimeFlag)
	assert.Empty(t, res.Flags)

	require.NotNil(t, report.Profile)
	eai := report.Profile.Scores[itembank.ConstructEAI]
	assert.Equal(t, 5, eai.NItems, "attention check is not scored")
	assert.InDelta(t, 83.333, eai.Raw, 0.01)
	assert.Nil(t, eai.Alpha, "one occasion cannot estimate reliability")
	assert.False(t, report.Profile.Scores[itembank.ConstructAOT].Measured())

	require.NotNil(t, report.Streak)
	assert.Equal(t, 1, report.Streak.Current)
	assert.Equal(t, streak.StatusCurrent, report.Streak.Status)

	latest, err := svc.ProfileRepo().Latest(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, report.Profile.CompositeAutonomy, latest.CompositeAutonomy, 1e-9)

	a, err := svc.AssessmentRepo().Get(ctx, "u1", "a1")
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, a.CompletedAt)
	require.NotNil(t, a.Integrity)
	assert.Equal(t, 300.0, a.ElapsedSeconds)
}

func TestScoreSecondOccasionEstimatesAlpha(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: day0}
	svc, _ := newTestService(t, clk)

	_, err := svc.Score(ctx, "u1", Submission{Source: "a1.yaml",
		Data: responsesDoc("a1", [5]float64{6, 6, 2, 6, 2}, [5]float64{4, 4, 4, 4, 4}, 5, 0)})
	require.NoError(t, err)

	clk.t = day0.AddDate(0, 0, 1)
	report, err := svc.Score(ctx, "u1", Submission{Source: "a2.yaml",
		Data: responsesDoc("a2", [5]float64{4, 5, 3, 5, 2}, [5]float64{5, 3, 4, 2, 6}, 5, 0)})
	require.NoError(t, err)

	eai := report.Profile.Scores[itembank.ConstructEAI]
	assert.NotNil(t, eai.Alpha)
	assert.Equal(t, 5, eai.NItems, "the latest answer per item is scored")
	assert.Equal(t, 2, report.Streak.Current)

	history, err := svc.ProfileRepo().History(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	tr, err := svc.Trends(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Snapshots)
	assert.Equal(t, trend.Declining, tr.Constructs[itembank.ConstructEAI].Direction)
}

func TestScoreRejectsBadDocuments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeClock{t: day0})

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"out of range", "assessmentId: a1\nresponses:\n  - itemId: eai_01\n    value: 9\n", cue.ErrInvalidDocument},
		{"no responses", "assessmentId: a1\nresponses: []\n", cue.ErrInvalidDocument},
		{"other user", "userId: u2\nassessmentId: a1\nresponses:\n  - itemId: eai_01\n    value: 3\n", ErrUserMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Score(ctx, "u1", Submission{Source: "bad.yaml", Data: []byte(tt.data)})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
		})
	}

	_, err := svc.Score(ctx, "u1", Submission{Source: "opt.yaml",
		Data: []byte("assessmentId: a1\nresponses:\n  - itemId: eai_v1\n    option: z\n")})
	assert.Error(t, err, "unknown vignette option")

	_, err = svc.ScoreBatch(ctx, "u1", nil)
	assert.ErrorIs(t, err, ErrNoDocuments)

	latest, err := svc.ProfileRepo().Latest(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, latest, "rejected documents store nothing")
}

func TestScoreBatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeClock{t: day0})

	var subs []Submission
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("batch-%d", i)
		subs = append(subs, Submission{
			Source: id + ".yaml",
			Data:   responsesDoc(id, [5]float64{float64(i%7 + 1), 4, 4, 4, 4}, [5]float64{3, 3, 3, 3, 3}, 5, 0),
		})
	}
	report, err := svc.ScoreBatch(ctx, "u1", subs)
	require.NoError(t, err)
	require.Len(t, report.Assessments, 6)
	for i, res := range report.Assessments {
		assert.Equal(t, fmt.Sprintf("batch-%d", i+1), res.AssessmentID, "results keep submission order")
	}

	history, err := svc.ProfileRepo().History(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 1, "a batch rebuilds the profile once")

	list, err := svc.AssessmentRepo().List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 6)

	// One bad document fails the whole batch before anything is written.
	subs = append(subs, Submission{Source: "bad.yaml", Data: []byte("responses: []")})
	_, err = svc.ScoreBatch(ctx, "u2", subs)
	require.Error(t, err)
	list, err = svc.AssessmentRepo().List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScoreFlagsIntegrity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeClock{t: day0})

	doc := responsesDoc("fast", [5]float64{7, 7, 7, 7, 7}, [5]float64{7, 7, 7, 7, 7}, 2, 5)
	report, err := svc.Score(ctx, "u1", Submission{Source: "fast.yaml", Data: doc})
	require.NoError(t, err)

	verdict := report.Assessments[0].Integrity
	assert.True(t, verdict.Straightlining)
	assert.True(t, verdict.CompletionTimeFlag)
	assert.False(t, verdict.AttentionCheckPassed)
	assert.True(t, verdict.Suspicious())
	assert.NotEmpty(t, report.Assessments[0].Flags)
	require.NotNil(t, report.Profile, "flagged assessments are still scored")
}

func TestScoreKeepsLastAnswerPerItem(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, &fakeClock{t: day0})

	var b strings.Builder
	b.WriteString("assessmentId: revised\nelapsedSeconds: 10\nresponses:\n")
	for i := 0; i < 8; i++ {
		b.WriteString("  - itemId: eai_01\n    value: 7\n")
	}
	b.WriteString("  - itemId: eai_01\n    value: 2\n")
	b.WriteString("  - itemId: attn_01\n    value: 5\n")

	report, err := svc.Score(ctx, "u1", Submission{Source: "revised.yaml", Data: []byte(b.String())})
	require.NoError(t, err)

	res := report.Assessments[0]
	assert.Equal(t, 2, res.Responses, "superseded answers are dropped")
	assert.False(t, res.Integrity.Straightlining)
	assert.False(t, res.Integrity.CompletionTimeFlag)
	assert.Zero(t, res.Integrity.AcquiescenceBias)
	assert.Empty(t, res.Flags)

	stored, err := storage.NewResponseRepo(db).ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, r := range stored {
		if r.ItemID == "eai_01" {
			assert.Equal(t, 2.0, r.Value)
		}
	}
}

func TestImportActivityUnlocksBadges(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeClock{t: day0})

	doc := `
reflections:
  - text: I noticed I only read sources I agree with
    insightful: true
disconfirmGames:
  - belief: remote work is always more productive
    evidence: [a, b]
  - belief: b
  - belief: c
schemaReclaims:
  - schema: I must never be wrong
    reframe: being wrong is how I learn
  - schema: s2
argumentFlips:
  - topic: zoning
    charityScore: 65
`
	report, err := svc.ImportActivity(ctx, "u1", Submission{Source: "week.yaml", Data: []byte(doc)})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Imported[activity.ModuleDisconfirm])
	assert.Equal(t, 2, report.Imported[activity.ModuleSchemaReclaim])
	assert.Equal(t, 1, report.Reflections)
	assert.ElementsMatch(t,
		[]string{"disconfirm_master", "schema_reclaimer", "first_reflection", "steelman_initiate"},
		badgeIDs(report.NewBadges))
	assert.Equal(t, 1, report.Streak.Current)

	again, err := svc.ImportActivity(ctx, "u1", Submission{Source: "week.yaml", Data: []byte(doc)})
	require.NoError(t, err)
	assert.Empty(t, again.NewBadges, "badges unlock once")
	assert.Empty(t, again.Imported, "stored records are skipped")
	assert.Zero(t, again.Reflections)
	assert.Nil(t, again.Streak)

	data, err := svc.CheckData(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, data.Log.Reflections, 1)
	assert.Equal(t, 3, data.Log.Count(activity.ModuleDisconfirm))
	assert.Equal(t, 7, data.Log.Len())

	owned, err := svc.BadgeRepo().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, owned, 4)

	_, err = svc.ImportActivity(ctx, "u1", Submission{Source: "bad.yaml",
		Data: []byte("argumentFlips:\n  - topic: t\n    charityScore: 140\n")})
	assert.ErrorIs(t, err, cue.ErrInvalidDocument)
}

func TestReimportDoesNotCountTwice(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: day0}
	svc, _ := newTestService(t, clk)

	doc := []byte("reflections:\n  - text: the same entry every time\n")
	for i := 0; i < 10; i++ {
		clk.t = day0.Add(time.Duration(i) * time.Hour)
		_, err := svc.ImportActivity(ctx, "u1", Submission{Source: "same.yaml", Data: doc})
		require.NoError(t, err)
	}

	data, err := svc.CheckData(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, data.Log.Reflections, 1)

	owned, err := svc.BadgeRepo().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first_reflection"}, badgeIDs(owned))
}

func TestImportEmptyActivityDoesNotTouchStreak(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeClock{t: day0})

	report, err := svc.ImportActivity(ctx, "u1", Submission{Source: "empty.yaml", Data: []byte("reflections: []\n")})
	require.NoError(t, err)
	assert.Nil(t, report.Streak)

	st, err := svc.Streak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, streak.StatusBroken, st.Status)
}

func TestReflectBuildsStreakMilestones(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: day0}
	svc, _ := newTestService(t, clk)

	_, err := svc.Reflect(ctx, "u1", "", "   ", false)
	require.Error(t, err)

	var last *Report
	for i := 0; i < 7; i++ {
		clk.t = day0.AddDate(0, 0, i)
		last, err = svc.Reflect(ctx, "u1", "What changed my mind today?", fmt.Sprintf("entry %d", i), i%2 == 0)
		require.NoError(t, err)
		if i == 0 {
			assert.Contains(t, badgeIDs(last.NewBadges), "first_reflection")
		}
	}

	assert.Equal(t, 7, last.Streak.Current)
	require.Len(t, last.Milestones, 1)
	assert.Equal(t, activity.Milestone{Kind: MilestoneStreak, Value: 7, ReachedAt: clk.t}, last.Milestones[0])
	assert.Contains(t, badgeIDs(last.NewBadges), "streak_7")

	// A second reflection on the same day changes nothing.
	again, err := svc.Reflect(ctx, "u1", "", "one more", false)
	require.NoError(t, err)
	assert.Equal(t, 7, again.Streak.Current)
	assert.Empty(t, again.Milestones)
	assert.Empty(t, again.NewBadges)

	p, err := svc.Progress(ctx, "u1", "reflection_10")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, p, 1e-9)

	_, err = svc.Progress(ctx, "u1", "nope")
	assert.ErrorIs(t, err, ErrUnknownBadge)
}

func TestSummaryForNewUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeClock{t: day0})

	report, err := svc.Summary(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, report.Profile)
	assert.Equal(t, streak.StatusBroken, report.Streak.Status)
	assert.Len(t, report.Badges, len(badges.Catalog()))
	for _, e := range report.Badges {
		assert.False(t, e.Unlocked)
		assert.Zero(t, e.Progress, e.ID)
	}
	require.NotNil(t, report.Trends)
	assert.Equal(t, trend.Stable, report.Trends.Composite.Direction)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: day0}
	src, _ := newTestService(t, clk)

	_, err := src.Score(ctx, "u1", Submission{Source: "a1.yaml",
		Data: responsesDoc("a1", [5]float64{6, 6, 2, 6, 2}, [5]float64{4, 4, 4, 4, 4}, 5, 0)})
	require.NoError(t, err)
	_, err = src.ImportActivity(ctx, "u1", Submission{Source: "a.yaml",
		Data: []byte("sourceAudits:\n  - belief: x\n    dependencyLevel: low\n    evidenceGaps: 1\n")})
	require.NoError(t, err)

	bundle, err := src.Export(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, bundle.Profile)
	assert.Len(t, bundle.History, 1)
	assert.Len(t, bundle.Activity.SourceAudits, 1)

	assert.Len(t, bundle.Responses, 11)

	dst, _ := newTestService(t, clk)
	require.NoError(t, dst.Import(ctx, "u1", bundle))
	require.NoError(t, dst.Import(ctx, "u1", bundle), "importing twice is harmless")

	restored, err := dst.Export(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, restored.History, 1)
	assert.Len(t, restored.Responses, 11)
	assert.Equal(t, badgeIDs(bundle.Badges), badgeIDs(restored.Badges))
	assert.Equal(t, bundle.Streak.Current, restored.Streak.Current)
	assert.Len(t, restored.Activity.SourceAudits, 1)
	assert.InDelta(t, bundle.Profile.CompositeAutonomy, restored.Profile.CompositeAutonomy, 1e-9)

	// Rescoring the restored answers reproduces the exported profile.
	clk.t = day0.Add(time.Hour)
	rescored, err := dst.Rescore(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, bundle.Profile.CompositeAutonomy, rescored.CompositeAutonomy, 1e-9)
	assert.InDelta(t, bundle.Profile.Scores[itembank.ConstructEAI].Raw, rescored.Scores[itembank.ConstructEAI].Raw, 1e-9)

	tr, err := dst.Trends(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, trend.Stable, tr.Composite.Direction)
}

func TestImportBundleUnderAnotherUser(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, &fakeClock{t: day0})

	_, err := svc.Score(ctx, "u1", Submission{Source: "a1.yaml",
		Data: responsesDoc("a1", [5]float64{6, 6, 2, 6, 2}, [5]float64{4, 4, 4, 4, 4}, 5, 0)})
	require.NoError(t, err)
	_, err = svc.ImportActivity(ctx, "u1", Submission{Source: "week.yaml",
		Data: []byte("reflections:\n  - text: first\ndisconfirmGames:\n  - belief: a\n  - belief: b\n  - belief: c\n")})
	require.NoError(t, err)

	bundle, err := svc.Export(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, bundle.Badges)
	require.NoError(t, svc.Import(ctx, "u2", bundle))

	owned, err := svc.BadgeRepo().ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, badgeIDs(bundle.Badges), badgeIDs(owned))
	for _, b := range owned {
		assert.Equal(t, "u2", b.UserID)
	}

	data, err := svc.CheckData(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, data.Log.Reflections, 1)
	assert.Equal(t, 3, data.Log.Count(activity.ModuleDisconfirm))
	require.NotNil(t, data.Profile)
	assert.Equal(t, "u2", data.Profile.UserID)

	answers, err := storage.NewResponseRepo(db).ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, answers, 11)

	source, err := svc.CheckData(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, source.Log.Len(), "the exporting user is untouched")
}
