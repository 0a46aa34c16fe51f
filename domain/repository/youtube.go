package repository

import (
	"context"

	"shorts-publisher/domain/model"
)

// IYouTube is the subset of the YouTube Data API the publisher needs.
type IYouTube interface {
	InsertVideo(ctx context.Context, in *model.YouTubeVideoInsert) (*model.YouTubeVideo, error)
	ChannelTitle(ctx context.Context) (string, error)
}
