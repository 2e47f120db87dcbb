package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates every table and index. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS responses (
			user_id TEXT NOT NULL,
			assessment_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			value REAL NOT NULL,
			answered_at TEXT NOT NULL,
			PRIMARY KEY (user_id, assessment_id, item_id)
		);`,
		`CREATE TABLE IF NOT EXISTS assessments (
			user_id TEXT NOT NULL,
			assessment_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			elapsed_seconds REAL NOT NULL DEFAULT 0,
			integrity TEXT,
			PRIMARY KEY (user_id, assessment_id)
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		// Prior snapshots feed trend analysis.
		`CREATE TABLE IF NOT EXISTS profile_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		// Record ids are unique per user so a bundle can be restored
		// under another user id.
		`CREATE TABLE IF NOT EXISTS badges (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			badge_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			icon TEXT NOT NULL,
			unlocked_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id),
			UNIQUE (user_id, badge_id)
		);`,
		`CREATE TABLE IF NOT EXISTS streaks (
			user_id TEXT PRIMARY KEY,
			current_count INTEGER NOT NULL DEFAULT 0,
			longest_count INTEGER NOT NULL DEFAULT 0,
			last_activity TEXT,
			seven INTEGER NOT NULL DEFAULT 0,
			twenty_one INTEGER NOT NULL DEFAULT 0,
			sixty INTEGER NOT NULL DEFAULT 0,
			hundred INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS reflections (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			prompt TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			insightful INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			module TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS milestones (
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			value INTEGER NOT NULL,
			reached_at TEXT NOT NULL,
			PRIMARY KEY (user_id, kind, value)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_profile_history_user ON profile_history(user_id, recorded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_reflections_user ON reflections(user_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_module ON activities(user_id, module, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
