package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	PlatformTikTok  Platform = "tiktok"
	PlatformYouTube Platform = "youtube"
)

// ParsePlatform accepts the configured platform names, case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tiktok":
		return PlatformTikTok, nil
	case "youtube", "youtube_shorts", "shorts":
		return PlatformYouTube, nil
	}
	return "", fmt.Errorf("unsupported platform: %s", s)
}

const (
	UploadStatusSuccess = "success"
	UploadStatusFailed  = "failed"
	UploadStatusSkipped = "skipped"
)

// UploadResult is the outcome of one (video, platform) attempt.
type UploadResult struct {
	RunID      string          `json:"run_id"`
	Platform   Platform        `json:"platform"`
	VideoPath  string          `json:"video_path"`
	Status     string          `json:"status"` // success | failed | skipped
	PlatformID string          `json:"platform_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Step       string          `json:"step,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

func (r *UploadResult) Succeeded() bool { return r.Status == UploadStatusSuccess }

// NewSuccessResult records a successful attempt.
func NewSuccessResult(runID string, platform Platform, videoPath string, receipt *UploadReceipt, now time.Time) UploadResult {
	res := UploadResult{
		RunID:      runID,
		Platform:   platform,
		VideoPath:  videoPath,
		Status:     UploadStatusSuccess,
		FinishedAt: now,
	}
	if receipt != nil {
		res.PlatformID = receipt.PlatformID
		res.Payload = receipt.Payload
	}
	return res
}

// NewFailureResult classifies err and records it with the failing step and status, when known.
func NewFailureResult(runID string, platform Platform, videoPath string, step string, err error, now time.Time) UploadResult {
	res := UploadResult{
		RunID:      runID,
		Platform:   platform,
		VideoPath:  videoPath,
		Status:     UploadStatusFailed,
		ErrorKind:  ErrorKind(err),
		Step:       step,
		FinishedAt: now,
	}
	if err != nil {
		res.Detail = err.Error()
	}
	var apiErr *PlatformAPIError
	if errors.As(err, &apiErr) {
		res.Step = apiErr.Step
		res.StatusCode = apiErr.StatusCode
	}
	return res
}

// UploadReceipt is what a platform returns for a successful upload.
type UploadReceipt struct {
	PlatformID string
	Status     string
	Payload    json.RawMessage
}

// PublishReport summarises one orchestrator run.
type PublishReport struct {
	RunID   string         `json:"run_id"`
	Results []UploadResult `json:"results"`
}

// Count returns the number of results with the given platform and status.
// An empty platform matches all.
func (r *PublishReport) Count(platform Platform, status string) int {
	n := 0
	for _, res := range r.Results {
		if (platform == "" || res.Platform == platform) && res.Status == status {
			n++
		}
	}
	return n
}

// UploadRequest is the input of a platform uploader. Credential is set only for
// platforms whose token lifecycle is owned by the auth manager.
type UploadRequest struct {
	Artifact   VideoArtifact
	Metadata   *PartMetadata
	Credential *Credential
}
