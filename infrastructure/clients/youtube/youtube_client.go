package youtube

import (
	"context"
	"errors"
	"fmt"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/logger"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const defaultChunkSize = 8 * 1024 * 1024

// Client represents YouTube API client
type Client struct {
	service   *youtube.Service
	chunkSize int
}

// NewYouTubeClient authorizes with the installed-app flow and builds the Data API service.
func NewYouTubeClient(ctx context.Context, config *Config) (*Client, error) {
	httpClient, err := NewAuthorizedHTTPClient(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewYouTubeClientWithOptions(ctx, config.ChunkSize, option.WithHTTPClient(httpClient))
}

// NewYouTubeClientWithOptions builds a client over an already-authorized transport.
func NewYouTubeClientWithOptions(ctx context.Context, chunkSize int, opts ...option.ClientOption) (*Client, error) {
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Client{service: service, chunkSize: chunkSize}, nil
}

// InsertVideo performs a resumable, chunked videos.insert.
func (c *Client) InsertVideo(ctx context.Context, in *model.YouTubeVideoInsert) (*model.YouTubeVideo, error) {
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       in.Title,
			Description: in.Description,
			Tags:        in.Tags,
			CategoryId:  in.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: in.PrivacyStatus,
		},
	}

	log := logger.GetLogger().WithField("title", in.Title)
	lastPct := int64(-1)
	call := c.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(in.Media, googleapi.ChunkSize(c.chunkSize)).
		ProgressUpdater(func(current, total int64) {
			if total <= 0 {
				total = in.Size
			}
			if total <= 0 {
				return
			}
			if pct := current * 100 / total; pct != lastPct {
				lastPct = pct
				log.WithField("progress", fmt.Sprintf("%d%%", pct)).Debug("YouTube upload progress")
			}
		}).
		Context(ctx)

	response, err := call.Do()
	if err != nil {
		return nil, asPlatformError(err)
	}
	return convertToYouTubeVideo(response), nil
}

// ChannelTitle returns the title of the authenticated user's channel.
func (c *Client) ChannelTitle(ctx context.Context) (string, error) {
	response, err := c.service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get my channel: %w", err)
	}
	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		return "", fmt.Errorf("no channel found for authenticated user")
	}
	return response.Items[0].Snippet.Title, nil
}

func convertToYouTubeVideo(video *youtube.Video) *model.YouTubeVideo {
	out := &model.YouTubeVideo{ID: video.Id}
	if video.Snippet != nil {
		out.Title = video.Snippet.Title
		out.ChannelID = video.Snippet.ChannelId
		out.Tags = video.Snippet.Tags
	}
	if video.Status != nil {
		out.PrivacyStatus = video.Status.PrivacyStatus
		out.UploadStatus = video.Status.UploadStatus
	}
	return out
}

// asPlatformError maps googleapi HTTP failures onto the shared platform error.
func asPlatformError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &model.PlatformAPIError{
			Platform:   model.PlatformYouTube,
			Step:       "insert",
			StatusCode: gerr.Code,
			Body:       gerr.Message,
		}
	}
	return fmt.Errorf("youtube upload: %w", err)
}
