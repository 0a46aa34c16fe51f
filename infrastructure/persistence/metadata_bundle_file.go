package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"shorts-publisher/domain/model"
)

// MetadataBundleFileRepository reads <dir>/<batch>_metadata.json bundles.
type MetadataBundleFileRepository struct {
	dir string
}

func NewMetadataBundleFileRepository(dir string) *MetadataBundleFileRepository {
	return &MetadataBundleFileRepository{dir: dir}
}

func (r *MetadataBundleFileRepository) BundlePath(batchID string) string {
	return filepath.Join(r.dir, model.MetadataFileName(batchID))
}

func (r *MetadataBundleFileRepository) LoadBundle(ctx context.Context, batchID string) (*model.MetadataBundle, error) {
	path := r.BundlePath(batchID)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no bundle for batch %s at %s", model.ErrMetadataMissing, batchID, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read bundle %s: %w", path, err)
	}

	bundle := &model.MetadataBundle{BatchID: batchID}
	if err := json.Unmarshal(data, bundle); err != nil {
		return nil, fmt.Errorf("%w: bundle %s is not valid JSON: %v", model.ErrMetadataMissing, path, err)
	}
	seen := make(map[int]struct{}, len(bundle.Videos))
	for _, v := range bundle.Videos {
		if _, dup := seen[v.Part]; dup {
			return nil, fmt.Errorf("%w: bundle %s lists part %d more than once", model.ErrMetadataMissing, path, v.Part)
		}
		seen[v.Part] = struct{}{}
	}
	return bundle, nil
}
