package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dotcommander/autonomy/internal/badges"
	"github.com/dotcommander/autonomy/internal/export"
	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/response"
	"github.com/dotcommander/autonomy/internal/scoring"
	"github.com/dotcommander/autonomy/internal/storage"
	"github.com/dotcommander/autonomy/internal/trend"
)

// Overview lists the whole catalog with unlock state and progress.
func (s *Service) Overview(ctx context.Context, userID string) ([]badges.Entry, error) {
	data, err := s.CheckData(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned, err := s.badges.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return badges.Overview(data, owned), nil
}

// Progress returns the completion fraction of one badge.
func (s *Service) Progress(ctx context.Context, userID, badgeID string) (float64, error) {
	if badges.GetBadgeByID(badgeID) == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBadge, badgeID)
	}
	data, err := s.CheckData(ctx, userID)
	if err != nil {
		return 0, err
	}
	return badges.ProgressForBadge(badgeID, data), nil
}

// Trends classifies the stored profile history.
func (s *Service) Trends(ctx context.Context, userID string) (trend.Report, error) {
	history, err := s.profiles.History(ctx, userID)
	if err != nil {
		return trend.Report{}, err
	}
	return trend.Analyze(snapshots(history), s.trendDelta), nil
}

func snapshots(history []*scoring.Profile) []trend.Snapshot {
	out := make([]trend.Snapshot, 0, len(history))
	for _, p := range history {
		snap := trend.Snapshot{
			Timestamp: p.LastUpdated,
			Scores:    make(map[itembank.Construct]float64, len(p.Scores)),
			Composite: p.CompositeAutonomy,
		}
		for c, sc := range p.Scores {
			snap.Scores[c] = sc.Raw
		}
		out = append(out, snap)
	}
	return out
}

// Streak returns the stored streak with its status as of now.
func (s *Service) Streak(ctx context.Context, userID string) (*StreakView, error) {
	d, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newStreakView(d, s.localNow()), nil
}

// Summary combines the latest profile, streak, badge overview and trends.
func (s *Service) Summary(ctx context.Context, userID string) (*Report, error) {
	profile, err := s.profiles.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, err := s.Streak(ctx, userID)
	if err != nil {
		return nil, err
	}
	overview, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}
	tr, err := s.Trends(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Report{
		UserID:      userID,
		GeneratedAt: s.now().UTC(),
		Profile:     profile,
		Streak:      st,
		Badges:      overview,
		Trends:      &tr,
	}, nil
}

// Export collects everything stored for the user into a bundle.
func (s *Service) Export(ctx context.Context, userID string) (*export.Bundle, error) {
	b := export.New(userID, s.now())

	var err error
	if b.Responses, err = s.responses.ListByUser(ctx, userID); err != nil {
		return nil, err
	}
	if b.Profile, err = s.profiles.Latest(ctx, userID); err != nil {
		return nil, err
	}
	if b.History, err = s.profiles.History(ctx, userID); err != nil {
		return nil, err
	}
	if b.Badges, err = s.badges.ListByUser(ctx, userID); err != nil {
		return nil, err
	}
	if b.Streak, err = s.streaks.Get(ctx, userID); err != nil {
		return nil, err
	}
	if b.Activity, err = s.activities.Log(ctx, userID); err != nil {
		return nil, err
	}
	if b.Milestones, err = s.activities.Milestones(ctx, userID); err != nil {
		return nil, err
	}
	return b, nil
}

// Import restores a bundle into userID's records in one transaction.
// Every record is rewritten to userID, so a bundle exported by one user
// restores under another. History snapshots, badges, activity records and
// milestones that already exist are kept; answers are upserted; the latest
// profile and the streak are replaced when the bundle carries them.
func (s *Service) Import(ctx context.Context, userID string, b *export.Bundle) error {
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		answers := make([]response.UserResponse, len(b.Responses))
		for i, r := range b.Responses {
			r.UserID = userID
			answers[i] = r
		}
		if err := storage.NewResponseRepo(tx).UpsertAll(ctx, answers); err != nil {
			return err
		}

		profiles := storage.NewProfileRepo(tx)
		existing, err := profiles.History(ctx, userID)
		if err != nil {
			return err
		}
		seen := make(map[int64]bool, len(existing))
		for _, p := range existing {
			seen[p.LastUpdated.UnixNano()] = true
		}
		for _, p := range b.History {
			if p == nil || seen[p.LastUpdated.UnixNano()] {
				continue
			}
			seen[p.LastUpdated.UnixNano()] = true
			p.UserID = userID
			if err := profiles.AppendHistory(ctx, p); err != nil {
				return err
			}
		}
		if b.Profile != nil {
			b.Profile.UserID = userID
			if err := profiles.SaveLatest(ctx, b.Profile); err != nil {
				return err
			}
		}

		badgeRepo := storage.NewBadgeRepo(tx)
		for _, badge := range b.Badges {
			badge.UserID = userID
			if _, err := badgeRepo.InsertBadge(ctx, badge); err != nil {
				return err
			}
		}

		if b.Streak.LastActivity != nil || b.Streak.Longest > 0 {
			if err := storage.NewStreakRepo(tx).Save(ctx, userID, b.Streak); err != nil {
				return err
			}
		}

		activities := storage.NewActivityRepo(tx)
		if b.Activity != nil {
			if _, err := activities.InsertLog(ctx, userID, b.Activity); err != nil {
				return err
			}
		}
		for _, m := range b.Milestones {
			if _, err := activities.InsertMilestone(ctx, userID, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import bundle: %w", err)
	}
	s.log.Info("bundle imported", "user_id", userID, "version", b.Version, "responses", len(b.Responses), "history", len(b.History), "badges", len(b.Badges))
	return nil
}
