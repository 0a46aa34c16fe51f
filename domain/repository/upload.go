package repository

import (
	"context"

	"shorts-publisher/domain/model"
)

// IPlatformUploader drives one platform's upload protocol for a single video.
type IPlatformUploader interface {
	Platform() model.Platform
	Upload(ctx context.Context, req *model.UploadRequest) (*model.UploadReceipt, error)
}

// IMetadataBundle loads the metadata bundle of a batch.
type IMetadataBundle interface {
	LoadBundle(ctx context.Context, batchID string) (*model.MetadataBundle, error)
}

// IUploadResult is the ledger of upload attempts.
type IUploadResult interface {
	Record(ctx context.Context, res *model.UploadResult) error
	HasSucceeded(ctx context.Context, videoPath string, platform model.Platform) (bool, error)
}

// IUploadNotifier fans out upload results to observers.
type IUploadNotifier interface {
	Notify(ctx context.Context, res model.UploadResult)
}
