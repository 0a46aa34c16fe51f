package persistence

import (
	"context"
	"database/sql"
	"time"

	"shorts-publisher/domain/model"
)

// UploadResultRepositoryMSSQL is the SQL Server ledger of upload attempts.
type UploadResultRepositoryMSSQL struct{ db *sql.DB }

func NewUploadResultRepositoryMSSQL(db *sql.DB) *UploadResultRepositoryMSSQL {
	return &UploadResultRepositoryMSSQL{db: db}
}

func (r *UploadResultRepositoryMSSQL) Record(ctx context.Context, res *model.UploadResult) error {
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	q := `INSERT INTO dbo.[upload_results] (run_id, platform, video_path, status, platform_id, payload, error_kind, step, status_code, detail, finished_at)
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10, @p11)`
	_, err := r.db.ExecContext(ctx, q,
		res.RunID, string(res.Platform), res.VideoPath, res.Status,
		nullString(res.PlatformID), nullString(string(res.Payload)), nullString(res.ErrorKind),
		nullString(res.Step), res.StatusCode, nullString(res.Detail), finished)
	return err
}

func (r *UploadResultRepositoryMSSQL) HasSucceeded(ctx context.Context, videoPath string, platform model.Platform) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM dbo.[upload_results] WHERE video_path=@p1 AND platform=@p2 AND status=@p3`,
		videoPath, string(platform), model.UploadStatusSuccess)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
