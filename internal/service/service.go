// Package service wires the scoring pipeline, streak tracking and the badge
// engine to SQLite persistence. Commands talk to a Service; the packages it
// composes stay pure.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/badges"
	"github.com/dotcommander/autonomy/internal/config"
	"github.com/dotcommander/autonomy/internal/cue"
	"github.com/dotcommander/autonomy/internal/integrity"
	"github.com/dotcommander/autonomy/internal/logger"
	"github.com/dotcommander/autonomy/internal/scoring"
	"github.com/dotcommander/autonomy/internal/storage"
	"github.com/dotcommander/autonomy/internal/streak"
)

var (
	ErrUnknownBadge = errors.New("unknown badge")
	ErrUserMismatch = errors.New("document belongs to a different user")
	ErrNoDocuments  = errors.New("no documents to score")
)

// MilestoneStreak is the milestone kind recorded when a streak flag flips.
const MilestoneStreak = "streak"

type Service struct {
	db          *sql.DB
	responses   *storage.ResponseRepo
	assessments *storage.AssessmentRepo
	profiles    *storage.ProfileRepo
	badges      *storage.BadgeRepo
	streaks     *storage.StreakRepo
	activities  *storage.ActivityRepo

	scorer      *scoring.Scorer
	weights     scoring.Weights
	integrity   integrity.Options
	trendDelta  float64
	loc         *time.Location
	concurrency int

	validator *cue.Validator
	engine    *badges.Engine
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source for every timestamp the service
// writes, including badge unlocks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides record and badge id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New builds a Service over an open database. cfg supplies weights,
// thresholds and the streak timezone.
func New(db *sql.DB, cfg *config.Config, opts ...Option) (*Service, error) {
	weights, err := cfg.Weights()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	validator := cue.NewValidator()
	if err := validator.LoadSchemas(); err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}

	s := &Service{
		db:          db,
		responses:   storage.NewResponseRepo(db),
		assessments: storage.NewAssessmentRepo(db),
		profiles:    storage.NewProfileRepo(db),
		badges:      storage.NewBadgeRepo(db),
		streaks:     storage.NewStreakRepo(db),
		activities:  storage.NewActivityRepo(db),
		scorer:      scoring.NewScorer(nil, cfg.ScorerOptions()),
		weights:     weights,
		integrity:   cfg.IntegrityOptions(),
		trendDelta:  cfg.Trend.Delta,
		loc:         loc,
		concurrency: cfg.Concurrency,
		validator:   validator,
		log:         logger.Nop(),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	s.engine = badges.NewEngine(s.badges, badges.WithClock(s.now), badges.WithIDGenerator(s.newID))
	return s, nil
}

func (s *Service) AssessmentRepo() *storage.AssessmentRepo { return s.assessments }
func (s *Service) ProfileRepo() *storage.ProfileRepo       { return s.profiles }
func (s *Service) BadgeRepo() *storage.BadgeRepo           { return s.badges }

// localNow is the current time in the streak timezone.
func (s *Service) localNow() time.Time {
	return s.now().In(s.loc)
}

// touchStreak records one qualifying activity and stores any milestone
// whose flag flipped. Only milestones not seen before are returned.
func (s *Service) touchStreak(ctx context.Context, userID string) (streak.Data, []activity.Milestone, error) {
	before, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return streak.Data{}, nil, err
	}
	now := s.localNow()
	after := streak.Record(before, now)
	if err := s.streaks.Save(ctx, userID, after); err != nil {
		return streak.Data{}, nil, err
	}

	var reached []activity.Milestone
	for _, n := range streak.Newly(before.Milestones, after.Milestones) {
		m := activity.Milestone{Kind: MilestoneStreak, Value: n, ReachedAt: now.UTC()}
		inserted, err := s.activities.InsertMilestone(ctx, userID, m)
		if err != nil {
			return after, reached, err
		}
		if inserted {
			reached = append(reached, m)
			s.log.Info("streak milestone reached", "user_id", userID, "days", n)
		}
	}
	return after, reached, nil
}

// CheckData assembles the badge predicate input from storage.
func (s *Service) CheckData(ctx context.Context, userID string) (badges.CheckData, error) {
	var data badges.CheckData

	st, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return data, err
	}
	log, err := s.activities.Log(ctx, userID)
	if err != nil {
		return data, err
	}
	milestones, err := s.activities.Milestones(ctx, userID)
	if err != nil {
		return data, err
	}
	profile, err := s.profiles.Latest(ctx, userID)
	if err != nil {
		return data, err
	}

	data.Streak = st
	data.Log = *log
	data.Milestones = milestones
	data.Profile = profile
	return data, nil
}

// EvaluateBadges unlocks every badge whose condition now holds and returns
// the ones this call inserted.
func (s *Service) EvaluateBadges(ctx context.Context, userID string) ([]badges.Badge, error) {
	data, err := s.CheckData(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned, err := s.badges.UnlockedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.engine.Evaluate(ctx, userID, data, owned)
	for _, b := range unlocked {
		s.log.Info("badge unlocked", "user_id", userID, "badge", b.BadgeID)
	}
	if err != nil {
		return unlocked, fmt.Errorf("evaluate badges: %w", err)
	}
	return unlocked, nil
}
