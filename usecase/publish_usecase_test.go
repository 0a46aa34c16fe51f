package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/domain/repository"
	"shorts-publisher/infrastructure/clients/tiktok"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publishFixture struct {
	dir      string
	auth     *MockAuthUsecase
	bundles  *MockMetadataBundle
	tiktok   *MockPlatformUploader
	youtube  *MockPlatformUploader
	notifier *recordingNotifier
	usecase  *PublishUsecase
}

var validCred = model.Credential{AccessToken: "A", RefreshToken: "R", ExpiresAt: fixedNow.Unix() + 3600}

func newPublishFixture(t *testing.T, files ...string) *publishFixture {
	t.Helper()
	f := &publishFixture{
		dir:      t.TempDir(),
		auth:     new(MockAuthUsecase),
		bundles:  new(MockMetadataBundle),
		tiktok:   &MockPlatformUploader{platform: model.PlatformTikTok},
		youtube:  &MockPlatformUploader{platform: model.PlatformYouTube},
		notifier: &recordingNotifier{},
	}
	for _, name := range files {
		writeVideo(t, f.dir, name, "data")
	}
	uc, err := NewPublishUsecase(f.auth, NewArtifactResolver(), f.bundles,
		[]repository.IPlatformUploader{f.tiktok, f.youtube},
		PublishConfig{VideosDir: f.dir, Platforms: []model.Platform{model.PlatformTikTok, model.PlatformYouTube}})
	require.NoError(t, err)
	uc.now = func() time.Time { return fixedNow }
	uc.newRunID = func() string { return "run-1" }
	f.usecase = uc.WithNotifiers(f.notifier)
	return f
}

func (f *publishFixture) path(name string) string { return filepath.Join(f.dir, name) }

func fullEntry(part int) model.PartMetadata {
	return model.PartMetadata{
		Part:          part,
		TikTok:        &model.TikTokMetadata{Caption: "c", Hashtags: []string{"#h"}},
		YouTubeShorts: &model.YouTubeMetadata{Title: "t"},
	}
}

func uploadFor(path string) interface{} {
	return mock.MatchedBy(func(req *model.UploadRequest) bool { return req.Artifact.FilePath == path })
}

func TestPublishAll_MissingMetadataIsIsolated(t *testing.T) {
	f := newPublishFixture(t, "abc123_part1.mp4", "abc123_part2.mp4")
	f.auth.On("EnsureValid", mock.Anything).Return(validCred, nil)
	f.bundles.On("LoadBundle", mock.Anything, "abc123").
		Return(&model.MetadataBundle{BatchID: "abc123", Videos: []model.PartMetadata{fullEntry(1)}}, nil).Once()
	f.tiktok.On("Upload", mock.Anything, uploadFor(f.path("abc123_part1.mp4"))).Return(&model.UploadReceipt{PlatformID: "p1"}, nil)
	f.youtube.On("Upload", mock.Anything, uploadFor(f.path("abc123_part1.mp4"))).Return(&model.UploadReceipt{PlatformID: "y1"}, nil)

	report, err := f.usecase.PublishAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 4)

	assert.Equal(t, model.UploadStatusSuccess, report.Results[0].Status)
	assert.Equal(t, model.UploadStatusSuccess, report.Results[1].Status)
	for _, res := range report.Results[2:] {
		assert.Equal(t, model.UploadStatusFailed, res.Status)
		assert.Equal(t, model.KindMetadataMissing, res.ErrorKind)
		assert.Equal(t, StepMetadata, res.Step)
		assert.Equal(t, f.path("abc123_part2.mp4"), res.VideoPath)
	}
	assert.Equal(t, 2, report.Count("", model.UploadStatusSuccess))
	assert.Len(t, f.notifier.results, 4)
	f.bundles.AssertNumberOfCalls(t, "LoadBundle", 1)
}

func TestPublishAll_TikTokInitFailureDoesNotStopRun(t *testing.T) {
	f := newPublishFixture(t, "abc123_part1.mp4", "abc123_part2.mp4")
	f.auth.On("EnsureValid", mock.Anything).Return(validCred, nil)
	f.bundles.On("LoadBundle", mock.Anything, "abc123").
		Return(&model.MetadataBundle{Videos: []model.PartMetadata{fullEntry(1), fullEntry(2)}}, nil)
	f.tiktok.On("Upload", mock.Anything, uploadFor(f.path("abc123_part1.mp4"))).
		Return(nil, &model.PlatformAPIError{Platform: model.PlatformTikTok, Step: tiktok.StepInit, StatusCode: 400, Body: "bad"})
	f.tiktok.On("Upload", mock.Anything, uploadFor(f.path("abc123_part2.mp4"))).
		Return(&model.UploadReceipt{PlatformID: "p2"}, nil)
	f.youtube.On("Upload", mock.Anything, mock.Anything).Return(&model.UploadReceipt{PlatformID: "y"}, nil)

	report, err := f.usecase.PublishAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 4)

	first := report.Results[0]
	assert.Equal(t, model.PlatformTikTok, first.Platform)
	assert.Equal(t, model.UploadStatusFailed, first.Status)
	assert.Equal(t, model.KindPlatformAPI, first.ErrorKind)
	assert.Equal(t, tiktok.StepInit, first.Step)
	assert.Equal(t, 400, first.StatusCode)

	assert.Equal(t, model.UploadStatusSuccess, report.Results[2].Status)
	assert.Equal(t, "p2", report.Results[2].PlatformID)
	f.tiktok.AssertNumberOfCalls(t, "Upload", 2)
	f.youtube.AssertNumberOfCalls(t, "Upload", 2)
}

func TestPublishAll_AuthFailureOnlyAffectsTikTok(t *testing.T) {
	f := newPublishFixture(t, "abc123_part1.mp4")
	f.auth.On("EnsureValid", mock.Anything).Return(model.Credential{}, model.ErrAuthAbsent)
	f.bundles.On("LoadBundle", mock.Anything, "abc123").
		Return(&model.MetadataBundle{Videos: []model.PartMetadata{fullEntry(1)}}, nil)
	f.youtube.On("Upload", mock.Anything, mock.Anything).Return(&model.UploadReceipt{PlatformID: "y1"}, nil)

	report, err := f.usecase.PublishAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, model.KindAuthAbsent, report.Results[0].ErrorKind)
	assert.Equal(t, StepAuth, report.Results[0].Step)
	assert.Equal(t, model.UploadStatusSuccess, report.Results[1].Status)
	f.tiktok.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestPublishAll_NamingErrorIsRecorded(t *testing.T) {
	f := newPublishFixture(t, "abc123.mp4")
	f.auth.On("EnsureValid", mock.Anything).Return(validCred, nil)

	report, err := f.usecase.PublishAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	for _, res := range report.Results {
		assert.Equal(t, model.KindNaming, res.ErrorKind)
		assert.Equal(t, StepResolve, res.Step)
	}
	f.bundles.AssertNotCalled(t, "LoadBundle", mock.Anything, mock.Anything)
}

func TestPublishAll_LedgerSkipsPriorSuccessAndRecordsAttempts(t *testing.T) {
	f := newPublishFixture(t, "abc123_part1.mp4")
	ledger := new(MockUploadResult)
	ledger.On("HasSucceeded", mock.Anything, f.path("abc123_part1.mp4"), model.PlatformTikTok).Return(true, nil)
	ledger.On("HasSucceeded", mock.Anything, f.path("abc123_part1.mp4"), model.PlatformYouTube).Return(false, nil)
	ledger.On("Record", mock.Anything, mock.MatchedBy(func(res *model.UploadResult) bool {
		return res.Platform == model.PlatformYouTube && res.Status == model.UploadStatusSuccess && res.RunID == "run-1"
	})).Return(nil).Once()
	f.usecase.WithLedger(ledger)

	f.bundles.On("LoadBundle", mock.Anything, "abc123").
		Return(&model.MetadataBundle{Videos: []model.PartMetadata{fullEntry(1)}}, nil)
	f.youtube.On("Upload", mock.Anything, mock.Anything).Return(&model.UploadReceipt{PlatformID: "y1"}, nil)

	report, err := f.usecase.PublishAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, model.UploadStatusSkipped, report.Results[0].Status)
	assert.Equal(t, model.UploadStatusSuccess, report.Results[1].Status)
	f.auth.AssertNotCalled(t, "EnsureValid", mock.Anything)
	f.tiktok.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	ledger.AssertExpectations(t)
}

func TestPublishAll_WholeRunErrors(t *testing.T) {
	t.Run("missing videos dir", func(t *testing.T) {
		f := newPublishFixture(t)
		f.usecase.cfg.VideosDir = filepath.Join(f.dir, "nope")
		_, err := f.usecase.PublishAll(context.Background())
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newPublishFixture(t, "abc123_part1.mp4")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		report, err := f.usecase.PublishAll(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, report.Results)
	})
}

func TestPublishVideo(t *testing.T) {
	f := newPublishFixture(t, "abc123_part3.mp4")
	f.auth.On("EnsureValid", mock.Anything).Return(validCred, nil)
	f.bundles.On("LoadBundle", mock.Anything, "abc123").
		Return(&model.MetadataBundle{Videos: []model.PartMetadata{fullEntry(3)}}, nil)
	f.tiktok.On("Upload", mock.Anything, mock.MatchedBy(func(req *model.UploadRequest) bool {
		return req.Credential != nil && req.Credential.AccessToken == "A" && req.Metadata.Part == 3
	})).Return(&model.UploadReceipt{PlatformID: "p3"}, nil)
	f.youtube.On("Upload", mock.Anything, mock.MatchedBy(func(req *model.UploadRequest) bool {
		return req.Credential == nil
	})).Return(&model.UploadReceipt{PlatformID: "y3"}, nil)

	report, err := f.usecase.PublishVideo(context.Background(), f.path("abc123_part3.mp4"))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count("", model.UploadStatusSuccess))
}

func TestNewPublishUsecase_RequiresUploaderPerPlatform(t *testing.T) {
	_, err := NewPublishUsecase(new(MockAuthUsecase), NewArtifactResolver(), new(MockMetadataBundle),
		[]repository.IPlatformUploader{&MockPlatformUploader{platform: model.PlatformYouTube}},
		PublishConfig{Platforms: []model.Platform{model.PlatformTikTok}})
	assert.Error(t, err)
}
