package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"shorts-publisher/domain/model"
)

// IArtifactResolver turns rendered files into artifacts and pairs them with metadata.
type IArtifactResolver interface {
	Discover(videosDir string) ([]string, error)
	Resolve(path string) (*model.VideoArtifact, error)
	Match(artifact *model.VideoArtifact, bundle *model.MetadataBundle, platform model.Platform) (*model.PartMetadata, error)
}

type artifactResolver struct{}

func NewArtifactResolver() IArtifactResolver {
	return &artifactResolver{}
}

// Discover lists *.mp4 files in videosDir in lexical order.
func (r *artifactResolver) Discover(videosDir string) ([]string, error) {
	info, err := os.Stat(videosDir)
	if err != nil {
		return nil, fmt.Errorf("videos dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("videos dir %s is not a directory", videosDir)
	}
	paths, err := filepath.Glob(filepath.Join(videosDir, "*.mp4"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (r *artifactResolver) Resolve(path string) (*model.VideoArtifact, error) {
	batchID, part, err := model.ParseArtifactName(path)
	if err != nil {
		return nil, err
	}
	return &model.VideoArtifact{FilePath: path, BatchID: batchID, PartNumber: part}, nil
}

// Match selects the bundle entry with exactly the artifact's part number.
func (r *artifactResolver) Match(artifact *model.VideoArtifact, bundle *model.MetadataBundle, platform model.Platform) (*model.PartMetadata, error) {
	entry := bundle.Entry(artifact.PartNumber)
	if entry == nil {
		return nil, fmt.Errorf("%w: batch %s has no entry for part %d", model.ErrMetadataMissing, artifact.BatchID, artifact.PartNumber)
	}
	if !entry.HasBlock(platform) {
		return nil, fmt.Errorf("%w: part %d of batch %s has no %s block", model.ErrMetadataMissing, artifact.PartNumber, artifact.BatchID, platform)
	}
	return entry, nil
}
