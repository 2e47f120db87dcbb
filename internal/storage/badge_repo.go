package storage

import (
	"context"
	"fmt"

	"github.com/dotcommander/autonomy/internal/badges"
)

// BadgeRepo stores unlocked badges. The unique (user_id, badge_id) index
// makes InsertBadge idempotent.
type BadgeRepo struct {
	db Querier
}

func NewBadgeRepo(db Querier) *BadgeRepo {
	return &BadgeRepo{db: db}
}

var _ badges.Store = (*BadgeRepo)(nil)

// InsertBadge reports false without error when the user already owns the
// badge or already has a row with b.ID.
func (r *BadgeRepo) InsertBadge(ctx context.Context, b badges.Badge) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO badges (id, user_id, badge_id, name, description, icon, unlocked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, b.ID, b.UserID, b.BadgeID, b.Name, b.Description, b.Icon, formatTime(b.UnlockedAt))
	if err != nil {
		return false, fmt.Errorf("badge insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("badge rows affected: %w", err)
	}
	return n > 0, nil
}

// ListByUser returns the user's badges in unlock order.
func (r *BadgeRepo) ListByUser(ctx context.Context, userID string) ([]badges.Badge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, badge_id, name, description, icon, unlocked_at
		FROM badges
		WHERE user_id = ?
		ORDER BY unlocked_at, badge_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("badge list: %w", err)
	}
	defer rows.Close()

	var out []badges.Badge
	for rows.Next() {
		var (
			b          badges.Badge
			unlockedAt string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.BadgeID, &b.Name, &b.Description, &b.Icon, &unlockedAt); err != nil {
			return nil, fmt.Errorf("badge scan: %w", err)
		}
		if b.UnlockedAt, err = parseTime(unlockedAt); err != nil {
			return nil, fmt.Errorf("badge scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("badge rows: %w", err)
	}
	return out, nil
}

// UnlockedIDs returns the catalog ids the user already owns.
func (r *BadgeRepo) UnlockedIDs(ctx context.Context, userID string) ([]string, error) {
	owned, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(owned))
	for i, b := range owned {
		ids[i] = b.BadgeID
	}
	return ids, nil
}
