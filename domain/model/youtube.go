package model

import "io"

// YouTubeVideoInsert is a single Shorts upload: metadata plus the media stream.
type YouTubeVideoInsert struct {
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
	Media         io.Reader
	Size          int64
}

// YouTubeVideo is the resource returned by a successful insert.
type YouTubeVideo struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	ChannelID     string   `json:"channel_id,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	PrivacyStatus string   `json:"privacy_status,omitempty"`
	UploadStatus  string   `json:"upload_status,omitempty"`
}

// URL is the public watch link.
func (v *YouTubeVideo) URL() string {
	return "https://www.youtube.com/shorts/" + v.ID
}
