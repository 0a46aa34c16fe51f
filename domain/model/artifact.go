package model

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const partMarker = "_part"

// VideoArtifact is a rendered video identified by its batch and 1-based part number.
type VideoArtifact struct {
	FilePath   string `json:"file_path"`
	BatchID    string `json:"batch_id"`
	PartNumber int    `json:"part_number"`
}

// ArtifactFileName is the naming contract for rendered parts: <batch>_part<N><ext>.
func ArtifactFileName(batchID string, part int, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s%s%d%s", batchID, partMarker, part, ext)
}

// ParseArtifactName is the inverse of ArtifactFileName. Directory and extension are ignored.
func ParseArtifactName(name string) (batchID string, part int, err error) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	idx := strings.LastIndex(stem, partMarker)
	if idx <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrNaming, base)
	}
	digits := stem[idx+len(partMarker):]
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return "", 0, fmt.Errorf("%w: %q", ErrNaming, base)
	}
	part, convErr := strconv.Atoi(digits)
	if convErr != nil || part < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrNaming, base)
	}
	return stem[:idx], part, nil
}

// MetadataFileName is the bundle file written next to a batch's audio and subtitles.
func MetadataFileName(batchID string) string {
	return batchID + "_metadata.json"
}
