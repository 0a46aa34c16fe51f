package filecsv

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shorts-publisher/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	log := NewResultLog(path)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	log.Notify(context.Background(), model.UploadResult{
		RunID: "run-1", Platform: model.PlatformTikTok, VideoPath: "videos/b_part1.mp4",
		Status: model.UploadStatusSuccess, PlatformID: "pub-1", FinishedAt: at,
	})
	require.NoError(t, log.Append(model.UploadResult{
		RunID: "run-1", Platform: model.PlatformYouTube, VideoPath: "videos/b_part1.mp4",
		Status: model.UploadStatusFailed, ErrorKind: "PlatformApiError", Step: "insert", StatusCode: 403,
		Detail: "quota, exceeded", FinishedAt: at,
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"2024-05-01T10:00:00Z", "run-1", "tiktok", "videos/b_part1.mp4", "success", "pub-1", "", "", "", ""}, rows[1])
	assert.Equal(t, "403", rows[2][8])
	assert.Equal(t, "quota, exceeded", rows[2][9])
}

func TestResultLogUnwritablePath(t *testing.T) {
	log := NewResultLog(filepath.Join(t.TempDir(), "missing", "results.csv"))

	assert.Error(t, log.Append(model.UploadResult{Status: model.UploadStatusSkipped}))
	assert.NotPanics(t, func() { log.Notify(context.Background(), model.UploadResult{}) })
}
