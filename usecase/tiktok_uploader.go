package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"shorts-publisher/domain/model"
	"shorts-publisher/domain/repository"
	"shorts-publisher/infrastructure/clients/tiktok"
	"shorts-publisher/infrastructure/logger"
)

// ITikTokPublisher is the Content Posting API surface used by the uploader.
type ITikTokPublisher interface {
	InitVideoPublish(ctx context.Context, accessToken string, post tiktok.PostInfo, videoSize int64) (*tiktok.InitResult, error)
	TransferVideo(ctx context.Context, uploadURL string, video io.Reader, size int64) error
	GetPublishStatus(ctx context.Context, accessToken, publishID string) (*tiktok.PublishStatus, error)
}

type tiktokUploader struct {
	client       ITikTokPublisher
	privacyLevel string
}

func NewTikTokUploader(client ITikTokPublisher, privacyLevel string) repository.IPlatformUploader {
	return &tiktokUploader{client: client, privacyLevel: privacyLevel}
}

func (u *tiktokUploader) Platform() model.Platform { return model.PlatformTikTok }

// Upload runs init, a single-chunk transfer and one status poll. Nothing is retried.
func (u *tiktokUploader) Upload(ctx context.Context, req *model.UploadRequest) (*model.UploadReceipt, error) {
	if req.Credential == nil || req.Credential.AccessToken == "" {
		return nil, model.ErrAuthAbsent
	}
	if req.Metadata == nil || req.Metadata.TikTok == nil {
		return nil, fmt.Errorf("%w: no tiktok block for %s", model.ErrMetadataMissing, req.Artifact.FilePath)
	}
	lg := logger.GetLogger().WithField("video", req.Artifact.FilePath).WithField("platform", model.PlatformTikTok)

	f, err := os.Open(req.Artifact.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return nil, fmt.Errorf("video %s is empty", req.Artifact.FilePath)
	}

	token := req.Credential.AccessToken
	session, err := u.client.InitVideoPublish(ctx, token, tiktok.PostInfo{
		Title:        TikTokCaption(req.Metadata.TikTok),
		PrivacyLevel: u.privacyLevel,
	}, size)
	if err != nil {
		return nil, err
	}
	lg.WithField("step", tiktok.StepInit).WithField("publish_id", session.PublishID).Info("TikTok upload initialised")

	if err := u.client.TransferVideo(ctx, session.UploadURL, f, size); err != nil {
		return nil, err
	}
	lg.WithField("step", tiktok.StepTransfer).WithField("bytes", size).Info("TikTok video transferred")

	status, err := u.client.GetPublishStatus(ctx, token, session.PublishID)
	if err != nil {
		return nil, err
	}
	lg.WithField("step", tiktok.StepStatus).WithField("status", status.Status).Info("TikTok publish status")

	return &model.UploadReceipt{
		PlatformID: session.PublishID,
		Status:     status.Status,
		Payload:    status.Data,
	}, nil
}

// TikTokCaption is the caption followed by a space and the space-joined hashtags.
func TikTokCaption(meta *model.TikTokMetadata) string {
	return meta.Caption + " " + strings.Join(meta.Hashtags, " ")
}
