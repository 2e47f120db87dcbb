package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dotcommander/autonomy/internal/activity"
)

// ActivityRepo stores reflections, module records and milestones. Module
// records share one table keyed by module name with a JSON payload.
type ActivityRepo struct {
	db Querier
}

func NewActivityRepo(db Querier) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// InsertReflection reports whether the reflection was new. Ids are scoped
// per user.
func (r *ActivityRepo) InsertReflection(ctx context.Context, userID string, ref activity.Reflection) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reflections (id, user_id, prompt, text, insightful, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO NOTHING
	`, ref.ID, userID, ref.Prompt, ref.Text, boolInt(ref.Insightful), formatTime(ref.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("reflection insert: %w", err)
	}
	return inserted(res, "reflection")
}

func (r *ActivityRepo) insertRecord(ctx context.Context, userID string, module activity.Module, id string, createdAt time.Time, record any) (bool, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("activity insert %s: %w", module, err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO activities (id, user_id, module, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO NOTHING
	`, id, userID, string(module), string(payload), formatTime(createdAt))
	if err != nil {
		return false, fmt.Errorf("activity insert %s: %w", module, err)
	}
	return inserted(res, "activity "+string(module))
}

func inserted(res sql.Result, what string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows affected: %w", what, err)
	}
	return n > 0, nil
}

// InsertLog writes every record of log and returns the ones that were new.
// Records whose id the user already has are skipped. Run it inside WithTx
// for an all-or-nothing import.
func (r *ActivityRepo) InsertLog(ctx context.Context, userID string, log *activity.Log) (*activity.Log, error) {
	added := &activity.Log{}
	for _, ref := range log.Reflections {
		ok, err := r.InsertReflection(ctx, userID, ref)
		if err != nil {
			return nil, err
		}
		if ok {
			added.Reflections = append(added.Reflections, ref)
		}
	}
	for _, g := range log.DisconfirmGames {
		ok, err := r.insertRecord(ctx, userID, activity.ModuleDisconfirm, g.ID, g.CreatedAt, g)
		if err != nil {
			return nil, err
		}
		if ok {
			added.DisconfirmGames = append(added.DisconfirmGames, g)
		}
	}
	for _, s := range log.SchemaReclaims {
		ok, err := r.insertRecord(ctx, userID, activity.ModuleSchemaReclaim, s.ID, s.CreatedAt, s)
		if err != nil {
			return nil, err
		}
		if ok {
			added.SchemaReclaims = append(added.SchemaReclaims, s)
		}
	}
	for _, i := range log.InfluenceSources {
		ok, err := r.insertRecord(ctx, userID, activity.ModuleInfluence, i.ID, i.CreatedAt, i)
		if err != nil {
			return nil, err
		}
		if ok {
			added.InfluenceSources = append(added.InfluenceSources, i)
		}
	}
	for _, f := range log.ArgumentFlips {
		ok, err := r.insertRecord(ctx, userID, activity.ModuleArgumentFlip, f.ID, f.CreatedAt, f)
		if err != nil {
			return nil, err
		}
		if ok {
			added.ArgumentFlips = append(added.ArgumentFlips, f)
		}
	}
	for _, a := range log.SourceAudits {
		ok, err := r.insertRecord(ctx, userID, activity.ModuleSourceAudit, a.ID, a.CreatedAt, a)
		if err != nil {
			return nil, err
		}
		if ok {
			added.SourceAudits = append(added.SourceAudits, a)
		}
	}
	return added, nil
}

// Log loads the full activity history of userID, oldest first.
func (r *ActivityRepo) Log(ctx context.Context, userID string) (*activity.Log, error) {
	log := &activity.Log{}
	var err error
	if log.Reflections, err = r.Reflections(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT module, payload FROM activities
		WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("activity list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var module, payload string
		if err := rows.Scan(&module, &payload); err != nil {
			return nil, fmt.Errorf("activity scan: %w", err)
		}
		if err := appendRecord(log, activity.Module(module), []byte(payload)); err != nil {
			return nil, fmt.Errorf("activity decode %s: %w", module, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity rows: %w", err)
	}
	return log, nil
}

func appendRecord(log *activity.Log, module activity.Module, payload []byte) error {
	switch module {
	case activity.ModuleDisconfirm:
		var g activity.DisconfirmGame
		if err := json.Unmarshal(payload, &g); err != nil {
			return err
		}
		log.DisconfirmGames = append(log.DisconfirmGames, g)
	case activity.ModuleSchemaReclaim:
		var s activity.SchemaReclaim
		if err := json.Unmarshal(payload, &s); err != nil {
			return err
		}
		log.SchemaReclaims = append(log.SchemaReclaims, s)
	case activity.ModuleInfluence:
		var i activity.InfluenceSource
		if err := json.Unmarshal(payload, &i); err != nil {
			return err
		}
		log.InfluenceSources = append(log.InfluenceSources, i)
	case activity.ModuleArgumentFlip:
		var f activity.ArgumentFlip
		if err := json.Unmarshal(payload, &f); err != nil {
			return err
		}
		log.ArgumentFlips = append(log.ArgumentFlips, f)
	case activity.ModuleSourceAudit:
		var a activity.SourceAudit
		if err := json.Unmarshal(payload, &a); err != nil {
			return err
		}
		log.SourceAudits = append(log.SourceAudits, a)
	default:
		// Rows from a newer module are skipped.
	}
	return nil
}

// Reflections returns userID's reflections, oldest first.
func (r *ActivityRepo) Reflections(ctx context.Context, userID string) ([]activity.Reflection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, prompt, text, insightful, created_at
		FROM reflections
		WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("reflection list: %w", err)
	}
	defer rows.Close()

	var out []activity.Reflection
	for rows.Next() {
		var (
			ref        activity.Reflection
			insightful int
			createdAt  string
		)
		if err := rows.Scan(&ref.ID, &ref.Prompt, &ref.Text, &insightful, &createdAt); err != nil {
			return nil, fmt.Errorf("reflection scan: %w", err)
		}
		ref.Insightful = insightful == 1
		if ref.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("reflection scan: %w", err)
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reflection rows: %w", err)
	}
	return out, nil
}

// InsertMilestone reports whether the milestone was new.
func (r *ActivityRepo) InsertMilestone(ctx context.Context, userID string, m activity.Milestone) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO milestones (user_id, kind, value, reached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, kind, value) DO NOTHING
	`, userID, m.Kind, m.Value, formatTime(m.ReachedAt))
	if err != nil {
		return false, fmt.Errorf("milestone insert: %w", err)
	}
	return inserted(res, "milestone")
}

func (r *ActivityRepo) Milestones(ctx context.Context, userID string) ([]activity.Milestone, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, value, reached_at FROM milestones
		WHERE user_id = ?
		ORDER BY reached_at, kind, value
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("milestone list: %w", err)
	}
	defer rows.Close()

	var out []activity.Milestone
	for rows.Next() {
		var (
			m         activity.Milestone
			reachedAt string
		)
		if err := rows.Scan(&m.Kind, &m.Value, &reachedAt); err != nil {
			return nil, fmt.Errorf("milestone scan: %w", err)
		}
		if m.ReachedAt, err = parseTime(reachedAt); err != nil {
			return nil, fmt.Errorf("milestone scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("milestone rows: %w", err)
	}
	return out, nil
}
