package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/autonomy/internal/cue"
	"github.com/dotcommander/autonomy/internal/integrity"
	"github.com/dotcommander/autonomy/internal/response"
	"github.com/dotcommander/autonomy/internal/scoring"
	"github.com/dotcommander/autonomy/internal/storage"
)

// Submission is one raw response document and where it came from.
type Submission struct {
	Source string
	Data   []byte
}

type prepared struct {
	source    string
	doc       *response.Document
	responses []response.UserResponse
	startedAt time.Time
}

// Score validates, stores and scores one response document.
func (s *Service) Score(ctx context.Context, userID string, sub Submission) (*Report, error) {
	return s.ScoreBatch(ctx, userID, []Submission{sub})
}

// ScoreBatch scores several documents for one user. Documents are parsed
// and resolved concurrently, bounded by the configured concurrency; the
// writes happen in one transaction and the profile is rebuilt once.
func (s *Service) ScoreBatch(ctx context.Context, userID string, subs []Submission) (*Report, error) {
	if len(subs) == 0 {
		return nil, ErrNoDocuments
	}
	now := s.now().UTC()

	docs := make([]*prepared, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sub := range subs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := s.prepare(userID, sub, now)
			if err != nil {
				return err
			}
			docs[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		assessments := storage.NewAssessmentRepo(tx)
		responses := storage.NewResponseRepo(tx)
		for _, p := range docs {
			if err := assessments.Start(ctx, userID, p.doc.AssessmentID, p.startedAt); err != nil {
				return err
			}
			if err := responses.UpsertAll(ctx, p.responses); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results, profile, err := s.checkAndScore(ctx, userID, docs, now)
	if err != nil {
		return nil, err
	}

	err = storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		assessments := storage.NewAssessmentRepo(tx)
		for i, p := range docs {
			completed := now
			verdict := results[i].Integrity
			if err := assessments.Complete(ctx, storage.Assessment{
				UserID:         userID,
				AssessmentID:   p.doc.AssessmentID,
				StartedAt:      p.startedAt,
				CompletedAt:    &completed,
				ElapsedSeconds: p.doc.ElapsedSeconds,
				Integrity:      &verdict,
			}); err != nil {
				return err
			}
		}
		return storage.NewProfileRepo(tx).Save(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Integrity.Suspicious() {
			s.log.Warn("assessment integrity flags", "user_id", userID, "assessment", r.AssessmentID, "flags", r.Flags)
		}
	}
	s.log.Info("profile rebuilt", "user_id", userID, "documents", len(docs), "composite", profile.CompositeAutonomy)

	report := &Report{UserID: userID, GeneratedAt: now, Assessments: results, Profile: profile}
	if err := s.afterActivity(ctx, userID, report); err != nil {
		return report, err
	}
	return report, nil
}

// prepare validates sub against the response schema and resolves its
// answers. It touches no storage.
func (s *Service) prepare(userID string, sub Submission, now time.Time) (*prepared, error) {
	problems, err := s.validator.ValidateFile(sub.Source, sub.Data, cue.KindResponses)
	if err != nil {
		return nil, err
	}
	if err := cue.AsError(problems); err != nil {
		return nil, err
	}

	doc, err := response.ParseDocument(sub.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sub.Source, err)
	}
	if doc.UserID != "" && doc.UserID != userID {
		return nil, fmt.Errorf("%s: %w: %q", sub.Source, ErrUserMismatch, doc.UserID)
	}
	rs, err := doc.Responses(s.scorer.Bank(), userID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sub.Source, err)
	}
	// An item answered twice keeps its later answer, as storage would.
	set := response.NewSet(userID)
	if err := set.PutAll(rs); err != nil {
		return nil, fmt.Errorf("%s: %w", sub.Source, err)
	}
	if dropped := len(rs) - set.Len(); dropped > 0 {
		s.log.Debug("superseded answers dropped", "source", sub.Source, "assessment", doc.AssessmentID, "count", dropped)
	}
	rs = set.All()

	started := now
	for _, r := range rs {
		if r.Timestamp.Before(started) {
			started = r.Timestamp
		}
	}
	return &prepared{source: sub.Source, doc: doc, responses: rs, startedAt: started}, nil
}

// checkAndScore runs the integrity checks and the profile rebuild side by
// side. They share no state.
func (s *Service) checkAndScore(ctx context.Context, userID string, docs []*prepared, now time.Time) ([]AssessmentResult, *scoring.Profile, error) {
	results := make([]AssessmentResult, len(docs))
	var profile *scoring.Profile

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bank := s.scorer.Bank()
		for i, p := range docs {
			verdict := integrity.Check(p.responses, p.doc.Elapsed(), bank, s.integrity)
			results[i] = AssessmentResult{
				Source:       p.source,
				AssessmentID: p.doc.AssessmentID,
				Responses:    len(p.responses),
				Integrity:    verdict,
				Flags:        verdict.Flags(s.integrity),
			}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		profile, err = s.buildProfile(gctx, userID, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, profile, nil
}

// buildProfile rescores everything stored for the user. The latest answer
// to each item is scored; every stored occasion feeds reliability.
func (s *Service) buildProfile(ctx context.Context, userID string, now time.Time) (*scoring.Profile, error) {
	all, err := s.responses.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return scoring.BuildProfile(s.scorer, userID, scoring.Input{
		Current: latestPerItem(all),
		History: all,
	}, s.weights, now), nil
}

// Rescore rebuilds and stores the profile from the stored responses, for
// example after the weights changed.
func (s *Service) Rescore(ctx context.Context, userID string) (*scoring.Profile, error) {
	profile, err := s.buildProfile(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return storage.NewProfileRepo(tx).Save(ctx, profile)
	}); err != nil {
		return nil, err
	}
	return profile, nil
}

// latestPerItem keeps the most recent answer to each item across all
// assessments; ties keep the later assessment id.
func latestPerItem(rs []response.UserResponse) []response.UserResponse {
	latest := make(map[string]response.UserResponse, len(rs))
	var order []string
	for _, r := range rs {
		prev, ok := latest[r.ItemID]
		if !ok {
			order = append(order, r.ItemID)
			latest[r.ItemID] = r
			continue
		}
		if r.Timestamp.After(prev.Timestamp) ||
			(r.Timestamp.Equal(prev.Timestamp) && r.AssessmentID > prev.AssessmentID) {
			latest[r.ItemID] = r
		}
	}
	out := make([]response.UserResponse, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out
}
