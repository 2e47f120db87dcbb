package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dotcommander/autonomy/internal/scoring"
)

// ProfileRepo keeps the latest profile per user plus every prior snapshot.
type ProfileRepo struct {
	db Querier
}

func NewProfileRepo(db Querier) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Save overwrites the latest profile and appends a history snapshot. Run it
// inside WithTx to keep both writes atomic.
func (r *ProfileRepo) Save(ctx context.Context, p *scoring.Profile) error {
	if err := r.SaveLatest(ctx, p); err != nil {
		return err
	}
	return r.AppendHistory(ctx, p)
}

// SaveLatest overwrites the latest profile only.
func (r *ProfileRepo) SaveLatest(ctx context.Context, p *scoring.Profile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile save: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, p.UserID, string(payload), formatTime(p.LastUpdated))
	if err != nil {
		return fmt.Errorf("profile save: %w", err)
	}
	return nil
}

// AppendHistory records p as a snapshot without touching the latest row.
func (r *ProfileRepo) AppendHistory(ctx context.Context, p *scoring.Profile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile history append: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profile_history (user_id, payload, recorded_at)
		VALUES (?, ?, ?)
	`, p.UserID, string(payload), formatTime(p.LastUpdated))
	if err != nil {
		return fmt.Errorf("profile history append: %w", err)
	}
	return nil
}

// Latest returns nil when the user has no profile yet.
func (r *ProfileRepo) Latest(ctx context.Context, userID string) (*scoring.Profile, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM profiles WHERE user_id = ?`, userID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile latest: %w", err)
	}
	var p scoring.Profile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("profile latest decode: %w", err)
	}
	return &p, nil
}

// History returns every snapshot of userID, oldest first.
func (r *ProfileRepo) History(ctx context.Context, userID string) ([]*scoring.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM profile_history
		WHERE user_id = ?
		ORDER BY recorded_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("profile history: %w", err)
	}
	defer rows.Close()

	var out []*scoring.Profile
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("profile history scan: %w", err)
		}
		var p scoring.Profile
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("profile history decode: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile history rows: %w", err)
	}
	return out, nil
}
