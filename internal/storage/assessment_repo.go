package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dotcommander/autonomy/internal/integrity"
)

// Assessment is one assessment session of a user.
type Assessment struct {
	UserID         string            `json:"userId"`
	AssessmentID   string            `json:"assessmentId"`
	StartedAt      time.Time         `json:"startedAt"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
	ElapsedSeconds float64           `json:"elapsedSeconds"`
	Integrity      *integrity.Result `json:"integrity,omitempty"`
}

type AssessmentRepo struct {
	db Querier
}

func NewAssessmentRepo(db Querier) *AssessmentRepo {
	return &AssessmentRepo{db: db}
}

// Start records the session start. Restarting an existing session keeps the
// original start time.
func (r *AssessmentRepo) Start(ctx context.Context, userID, assessmentID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assessments (user_id, assessment_id, started_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, assessment_id) DO NOTHING
	`, userID, assessmentID, formatTime(at))
	if err != nil {
		return fmt.Errorf("assessment start: %w", err)
	}
	return nil
}

// Complete stores the finished session with its integrity verdict.
func (r *AssessmentRepo) Complete(ctx context.Context, a Assessment) error {
	var verdict sql.NullString
	if a.Integrity != nil {
		raw, err := json.Marshal(a.Integrity)
		if err != nil {
			return fmt.Errorf("assessment complete: %w", err)
		}
		verdict = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assessments (user_id, assessment_id, started_at, completed_at, elapsed_seconds, integrity)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, assessment_id) DO UPDATE SET
			completed_at = excluded.completed_at,
			elapsed_seconds = excluded.elapsed_seconds,
			integrity = excluded.integrity
	`, a.UserID, a.AssessmentID, formatTime(a.StartedAt), nullTime(a.CompletedAt), a.ElapsedSeconds, verdict)
	if err != nil {
		return fmt.Errorf("assessment complete: %w", err)
	}
	return nil
}

// Get returns nil when the session does not exist.
func (r *AssessmentRepo) Get(ctx context.Context, userID, assessmentID string) (*Assessment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, assessment_id, started_at, completed_at, elapsed_seconds, integrity
		FROM assessments
		WHERE user_id = ? AND assessment_id = ?
	`, userID, assessmentID)
	a, err := scanAssessment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("assessment get: %w", err)
	}
	return a, nil
}

func (r *AssessmentRepo) List(ctx context.Context, userID string) ([]Assessment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, assessment_id, started_at, completed_at, elapsed_seconds, integrity
		FROM assessments
		WHERE user_id = ?
		ORDER BY started_at, assessment_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("assessment list: %w", err)
	}
	defer rows.Close()

	var out []Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("assessment scan: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assessment rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(s rowScanner) (*Assessment, error) {
	var (
		a           Assessment
		startedAt   string
		completedAt sql.NullString
		verdict     sql.NullString
	)
	if err := s.Scan(&a.UserID, &a.AssessmentID, &startedAt, &completedAt, &a.ElapsedSeconds, &verdict); err != nil {
		return nil, err
	}
	var err error
	if a.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		a.CompletedAt = &t
	}
	if verdict.Valid {
		var res integrity.Result
		if err := json.Unmarshal([]byte(verdict.String), &res); err != nil {
			return nil, fmt.Errorf("decode integrity: %w", err)
		}
		a.Integrity = &res
	}
	return &a, nil
}
