package filecsv

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/logger"
)

var header = []string{"finished_at", "run_id", "platform", "video_path", "status", "platform_id", "error_kind", "step", "status_code", "detail"}

// ResultLog appends upload results to a CSV file, writing the header when the file is new.
type ResultLog struct {
	mu   sync.Mutex
	path string
}

func NewResultLog(path string) *ResultLog {
	return &ResultLog{path: path}
}

func NewFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while open file")
		return nil, err
	}

	return file, nil
}

// Notify never fails the run; write errors are logged.
func (l *ResultLog) Notify(ctx context.Context, res model.UploadResult) {
	if err := l.Append(res); err != nil {
		logger.GetLogger().WithField("path", l.path).WithField("error", err).Error("Error while appending upload result")
	}
}

func (l *ResultLog) Append(res model.UploadResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := NewFile(l.path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row(res)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func row(res model.UploadResult) []string {
	code := ""
	if res.StatusCode != 0 {
		code = strconv.Itoa(res.StatusCode)
	}
	return []string{
		res.FinishedAt.UTC().Format(time.RFC3339),
		res.RunID,
		string(res.Platform),
		res.VideoPath,
		res.Status,
		res.PlatformID,
		res.ErrorKind,
		res.Step,
		code,
		res.Detail,
	}
}
