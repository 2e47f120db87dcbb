package storage

import (
	"context"
	"fmt"

	"github.com/dotcommander/autonomy/internal/response"
)

// ResponseRepo stores one current answer per (user, assessment, item).
type ResponseRepo struct {
	db Querier
}

func NewResponseRepo(db Querier) *ResponseRepo {
	return &ResponseRepo{db: db}
}

// Upsert saves r, superseding any earlier answer for the same key.
func (r *ResponseRepo) Upsert(ctx context.Context, resp response.UserResponse) error {
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("response upsert: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO responses (user_id, assessment_id, item_id, value, answered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, assessment_id, item_id)
		DO UPDATE SET value = excluded.value, answered_at = excluded.answered_at
	`, resp.UserID, resp.AssessmentID, resp.ItemID, resp.Value, formatTime(resp.Timestamp))
	if err != nil {
		return fmt.Errorf("response upsert: %w", err)
	}
	return nil
}

func (r *ResponseRepo) UpsertAll(ctx context.Context, rs []response.UserResponse) error {
	for _, resp := range rs {
		if err := r.Upsert(ctx, resp); err != nil {
			return err
		}
	}
	return nil
}

// ListByUser returns every stored answer of userID in answer order.
func (r *ResponseRepo) ListByUser(ctx context.Context, userID string) ([]response.UserResponse, error) {
	return r.list(ctx, `
		SELECT user_id, assessment_id, item_id, value, answered_at
		FROM responses
		WHERE user_id = ?
		ORDER BY answered_at, assessment_id, item_id
	`, userID)
}

func (r *ResponseRepo) list(ctx context.Context, query string, args ...any) ([]response.UserResponse, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("response list: %w", err)
	}
	defer rows.Close()

	var out []response.UserResponse
	for rows.Next() {
		var (
			resp       response.UserResponse
			answeredAt string
		)
		if err := rows.Scan(&resp.UserID, &resp.AssessmentID, &resp.ItemID, &resp.Value, &answeredAt); err != nil {
			return nil, fmt.Errorf("response scan: %w", err)
		}
		if resp.Timestamp, err = parseTime(answeredAt); err != nil {
			return nil, fmt.Errorf("response scan: %w", err)
		}
		out = append(out, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("response rows: %w", err)
	}
	return out, nil
}
