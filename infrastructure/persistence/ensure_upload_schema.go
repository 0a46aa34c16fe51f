package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureUploadResultSchema creates the ledger table and its lookup index when missing.
// Safe to call at startup.
func EnsureUploadResultSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS upload_results (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			video_path TEXT NOT NULL,
			status TEXT NOT NULL,
			platform_id TEXT,
			payload TEXT,
			error_kind TEXT,
			step TEXT,
			status_code INTEGER NOT NULL DEFAULT 0,
			detail TEXT,
			finished_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_upload_results_video_platform ON upload_results (video_path, platform, status)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure upload_results schema: %w", err)
		}
	}
	return nil
}
