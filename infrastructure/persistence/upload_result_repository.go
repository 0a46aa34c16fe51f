package persistence

import (
	"context"
	"database/sql"
	"time"

	"shorts-publisher/domain/model"
)

// UploadResultRepository is the PostgreSQL ledger of upload attempts.
type UploadResultRepository struct{ db *sql.DB }

func NewUploadResultRepository(db *sql.DB) *UploadResultRepository {
	return &UploadResultRepository{db: db}
}

func (r *UploadResultRepository) Record(ctx context.Context, res *model.UploadResult) error {
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	q := `INSERT INTO upload_results (run_id, platform, video_path, status, platform_id, payload, error_kind, step, status_code, detail, finished_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.db.ExecContext(ctx, q,
		res.RunID, string(res.Platform), res.VideoPath, res.Status,
		nullString(res.PlatformID), nullString(string(res.Payload)), nullString(res.ErrorKind),
		nullString(res.Step), res.StatusCode, nullString(res.Detail), finished)
	return err
}

func (r *UploadResultRepository) HasSucceeded(ctx context.Context, videoPath string, platform model.Platform) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM upload_results WHERE video_path=$1 AND platform=$2 AND status=$3)`,
		videoPath, string(platform), model.UploadStatusSuccess)
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
