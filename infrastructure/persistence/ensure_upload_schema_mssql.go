package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureUploadResultSchemaMSSQL creates dbo.upload_results and its index when missing.
func EnsureUploadResultSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`IF OBJECT_ID('dbo.upload_results', 'U') IS NULL BEGIN
CREATE TABLE dbo.[upload_results] (
  id BIGINT IDENTITY(1,1) PRIMARY KEY,
  run_id NVARCHAR(64) NOT NULL,
  platform NVARCHAR(32) NOT NULL,
  video_path NVARCHAR(1024) NOT NULL,
  status NVARCHAR(16) NOT NULL,
  platform_id NVARCHAR(255) NULL,
  payload NVARCHAR(MAX) NULL,
  error_kind NVARCHAR(64) NULL,
  step NVARCHAR(32) NULL,
  status_code INT NOT NULL DEFAULT 0,
  detail NVARCHAR(MAX) NULL,
  finished_at DATETIME2 NOT NULL
)
END`,
		`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = 'idx_upload_results_video_platform') BEGIN
CREATE INDEX idx_upload_results_video_platform ON dbo.[upload_results] (platform, status) INCLUDE (video_path)
END`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure upload_results schema: %w", err)
		}
	}
	return nil
}
