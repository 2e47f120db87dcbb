package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dotcommander/autonomy/internal/activity"
	"github.com/dotcommander/autonomy/internal/cue"
	"github.com/dotcommander/autonomy/internal/storage"
)

// ImportActivity validates an activity document and stores its records.
// Records the user already has are skipped and not counted. An import that
// stores anything counts as activity for the streak and triggers badge
// evaluation.
func (s *Service) ImportActivity(ctx context.Context, userID string, sub Submission) (*Report, error) {
	problems, err := s.validator.ValidateFile(sub.Source, sub.Data, cue.KindActivity)
	if err != nil {
		return nil, err
	}
	if err := cue.AsError(problems); err != nil {
		return nil, err
	}

	doc, err := activity.ParseDocument(sub.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sub.Source, err)
	}
	if doc.UserID != "" && doc.UserID != userID {
		return nil, fmt.Errorf("%s: %w: %q", sub.Source, ErrUserMismatch, doc.UserID)
	}

	now := s.now().UTC()
	log, err := doc.Log(now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sub.Source, err)
	}
	var added *activity.Log
	if err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		added, err = storage.NewActivityRepo(tx).InsertLog(ctx, userID, log)
		return err
	}); err != nil {
		return nil, err
	}

	report := &Report{UserID: userID, GeneratedAt: now, Imported: make(map[activity.Module]int)}
	for _, m := range activity.Modules {
		if n := added.Count(m); n > 0 {
			report.Imported[m] = n
		}
	}
	report.Reflections = len(added.Reflections)
	s.log.Info("activity imported", "user_id", userID, "source", sub.Source, "records", added.Len(), "skipped", log.Len()-added.Len())

	if added.Len() == 0 {
		return report, nil
	}
	if err := s.afterActivity(ctx, userID, report); err != nil {
		return report, err
	}
	return report, nil
}

// Reflect stores one reflection entry.
func (s *Service) Reflect(ctx context.Context, userID, prompt, text string, insightful bool) (*Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("reflection text is required")
	}
	now := s.now().UTC()
	ref := activity.Reflection{
		ID:         s.newID(),
		Prompt:     strings.TrimSpace(prompt),
		Text:       strings.TrimSpace(text),
		Insightful: insightful,
		CreatedAt:  now,
	}
	if _, err := s.activities.InsertReflection(ctx, userID, ref); err != nil {
		return nil, err
	}
	s.log.Debug("reflection stored", "user_id", userID, "id", ref.ID)

	report := &Report{UserID: userID, GeneratedAt: now, Reflections: 1}
	if err := s.afterActivity(ctx, userID, report); err != nil {
		return report, err
	}
	return report, nil
}

// afterActivity is the hook run after every activity-producing action:
// advance the streak, then evaluate badges against the new state.
func (s *Service) afterActivity(ctx context.Context, userID string, report *Report) error {
	st, reached, err := s.touchStreak(ctx, userID)
	if err != nil {
		return err
	}
	report.Streak = newStreakView(st, s.localNow())
	report.Milestones = reached

	unlocked, err := s.EvaluateBadges(ctx, userID)
	report.NewBadges = unlocked
	return err
}
