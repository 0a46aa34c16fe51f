package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"shorts-publisher/domain/model"
	"shorts-publisher/domain/repository"
	"shorts-publisher/infrastructure/logger"
)

type YouTubeUploadConfig struct {
	CategoryID    string
	PrivacyStatus string
}

type youtubeUploader struct {
	youtubeRepo repository.IYouTube
	cfg         YouTubeUploadConfig
	channelOnce sync.Once
}

func NewYouTubeUploader(youtubeRepo repository.IYouTube, cfg YouTubeUploadConfig) repository.IPlatformUploader {
	if cfg.CategoryID == "" {
		cfg.CategoryID = "22"
	}
	if cfg.PrivacyStatus == "" {
		cfg.PrivacyStatus = "public"
	}
	return &youtubeUploader{youtubeRepo: youtubeRepo, cfg: cfg}
}

func (u *youtubeUploader) Platform() model.Platform { return model.PlatformYouTube }

func (u *youtubeUploader) Upload(ctx context.Context, req *model.UploadRequest) (*model.UploadReceipt, error) {
	if req.Metadata == nil || req.Metadata.YouTubeShorts == nil {
		return nil, fmt.Errorf("%w: no youtube_shorts block for %s", model.ErrMetadataMissing, req.Artifact.FilePath)
	}
	u.logChannel(ctx)

	f, err := os.Open(req.Artifact.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}

	meta := req.Metadata.YouTubeShorts
	video, err := u.youtubeRepo.InsertVideo(ctx, &model.YouTubeVideoInsert{
		Title:         meta.Title,
		Description:   meta.Description,
		Tags:          meta.Tags,
		CategoryID:    u.cfg.CategoryID,
		PrivacyStatus: u.cfg.PrivacyStatus,
		Media:         f,
		Size:          info.Size(),
	})
	if err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("video", req.Artifact.FilePath).WithField("youtube_id", video.ID).WithField("url", video.URL()).Info("YouTube upload complete")

	payload, err := json.Marshal(video)
	if err != nil {
		return nil, err
	}
	return &model.UploadReceipt{PlatformID: video.ID, Status: video.UploadStatus, Payload: payload}, nil
}

// logChannel reports which channel is connected, once per process.
func (u *youtubeUploader) logChannel(ctx context.Context) {
	u.channelOnce.Do(func() {
		title, err := u.youtubeRepo.ChannelTitle(ctx)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Could not look up YouTube channel")
			return
		}
		logger.GetLogger().WithField("channel", title).Info("Connected to YouTube channel")
	})
}
