package model

// MetadataBundle holds the per-part platform metadata of one batch.
type MetadataBundle struct {
	BatchID string         `json:"-"`
	Videos  []PartMetadata `json:"videos"`
}

// PartMetadata is one bundle entry. A nil block means the platform has no metadata for the part.
type PartMetadata struct {
	Part          int              `json:"part"`
	TikTok        *TikTokMetadata  `json:"tiktok,omitempty"`
	YouTubeShorts *YouTubeMetadata `json:"youtube_shorts,omitempty"`
}

type TikTokMetadata struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

type YouTubeMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Entry returns the entry for part, or nil.
func (b *MetadataBundle) Entry(part int) *PartMetadata {
	if b == nil {
		return nil
	}
	for i := range b.Videos {
		if b.Videos[i].Part == part {
			return &b.Videos[i]
		}
	}
	return nil
}

// HasBlock reports whether the entry carries metadata for platform.
func (p *PartMetadata) HasBlock(platform Platform) bool {
	if p == nil {
		return false
	}
	switch platform {
	case PlatformTikTok:
		return p.TikTok != nil
	case PlatformYouTube:
		return p.YouTubeShorts != nil
	}
	return false
}
