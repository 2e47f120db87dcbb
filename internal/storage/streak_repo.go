package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dotcommander/autonomy/internal/streak"
)

type StreakRepo struct {
	db Querier
}

func NewStreakRepo(db Querier) *StreakRepo {
	return &StreakRepo{db: db}
}

// Get returns the zero streak for users without a row.
func (r *StreakRepo) Get(ctx context.Context, userID string) (streak.Data, error) {
	var (
		d            streak.Data
		lastActivity sql.NullString
		m            [4]int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT current_count, longest_count, last_activity, seven, twenty_one, sixty, hundred
		FROM streaks WHERE user_id = ?
	`, userID).Scan(&d.Current, &d.Longest, &lastActivity, &m[0], &m[1], &m[2], &m[3])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return streak.Data{}, nil
		}
		return streak.Data{}, fmt.Errorf("streak get: %w", err)
	}
	if lastActivity.Valid {
		t, err := parseTime(lastActivity.String)
		if err != nil {
			return streak.Data{}, fmt.Errorf("streak get: %w", err)
		}
		d.LastActivity = &t
	}
	d.Milestones = streak.Milestones{Seven: m[0] == 1, TwentyOne: m[1] == 1, Sixty: m[2] == 1, Hundred: m[3] == 1}
	return d, nil
}

func (r *StreakRepo) Save(ctx context.Context, userID string, d streak.Data) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO streaks (user_id, current_count, longest_count, last_activity, seven, twenty_one, sixty, hundred)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			current_count = excluded.current_count,
			longest_count = excluded.longest_count,
			last_activity = excluded.last_activity,
			seven = excluded.seven,
			twenty_one = excluded.twenty_one,
			sixty = excluded.sixty,
			hundred = excluded.hundred
	`, userID, d.Current, d.Longest, nullTime(d.LastActivity),
		boolInt(d.Milestones.Seven), boolInt(d.Milestones.TwentyOne),
		boolInt(d.Milestones.Sixty), boolInt(d.Milestones.Hundred))
	if err != nil {
		return fmt.Errorf("streak save: %w", err)
	}
	return nil
}
