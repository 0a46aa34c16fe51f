package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/clients/tiktok"

	"github.com/stretchr/testify/mock"
)

type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Load(ctx context.Context) (*model.Credential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialStore) Save(ctx context.Context, cred model.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

type MockTokenRefresher struct {
	mock.Mock
}

func (m *MockTokenRefresher) RefreshToken(ctx context.Context, refreshToken string) (*model.Credential, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	c := *args.Get(0).(*model.Credential)
	return &c, args.Error(1)
}

type MockCredentialPrompt struct {
	mock.Mock
}

func (m *MockCredentialPrompt) RequestCredential(ctx context.Context, loginURL string) ([]byte, error) {
	args := m.Called(ctx, loginURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// blockingPrompt waits for ctx, like an operator who never answers.
type blockingPrompt struct{}

func (blockingPrompt) RequestCredential(ctx context.Context, loginURL string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type MockSchedulerStarter struct {
	mock.Mock
}

func (m *MockSchedulerStarter) Start() bool {
	return m.Called().Bool(0)
}

type MockAuthUsecase struct {
	mock.Mock
}

func (m *MockAuthUsecase) EnsureValid(ctx context.Context) (model.Credential, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *MockAuthUsecase) Current() *model.Credential {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*model.Credential)
}

func (m *MockAuthUsecase) RefreshIfDue(ctx context.Context, margin time.Duration) (bool, error) {
	args := m.Called(ctx, margin)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthUsecase) State() model.CredentialState {
	return m.Called().Get(0).(model.CredentialState)
}

func (m *MockAuthUsecase) AttachScheduler(s SchedulerStarter) {
	m.Called(s)
}

type MockMetadataBundle struct {
	mock.Mock
}

func (m *MockMetadataBundle) LoadBundle(ctx context.Context, batchID string) (*model.MetadataBundle, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MetadataBundle), args.Error(1)
}

type MockPlatformUploader struct {
	mock.Mock
	platform model.Platform
}

func (m *MockPlatformUploader) Platform() model.Platform { return m.platform }

func (m *MockPlatformUploader) Upload(ctx context.Context, req *model.UploadRequest) (*model.UploadReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadReceipt), args.Error(1)
}

type MockUploadResult struct {
	mock.Mock
}

func (m *MockUploadResult) Record(ctx context.Context, res *model.UploadResult) error {
	return m.Called(ctx, res).Error(0)
}

func (m *MockUploadResult) HasSucceeded(ctx context.Context, videoPath string, platform model.Platform) (bool, error) {
	args := m.Called(ctx, videoPath, platform)
	return args.Bool(0), args.Error(1)
}

// recordingNotifier keeps every notified result.
type recordingNotifier struct {
	mu      sync.Mutex
	results []model.UploadResult
}

func (n *recordingNotifier) Notify(ctx context.Context, res model.UploadResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, res)
}

type MockTikTokPublisher struct {
	mock.Mock
}

func (m *MockTikTokPublisher) InitVideoPublish(ctx context.Context, accessToken string, post tiktok.PostInfo, videoSize int64) (*tiktok.InitResult, error) {
	args := m.Called(ctx, accessToken, post, videoSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tiktok.InitResult), args.Error(1)
}

func (m *MockTikTokPublisher) TransferVideo(ctx context.Context, uploadURL string, video io.Reader, size int64) error {
	b, _ := io.ReadAll(video)
	return m.Called(ctx, uploadURL, string(b), size).Error(0)
}

func (m *MockTikTokPublisher) GetPublishStatus(ctx context.Context, accessToken, publishID string) (*tiktok.PublishStatus, error) {
	args := m.Called(ctx, accessToken, publishID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tiktok.PublishStatus), args.Error(1)
}

type MockYouTube struct {
	mock.Mock
}

func (m *MockYouTube) InsertVideo(ctx context.Context, in *model.YouTubeVideoInsert) (*model.YouTubeVideo, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.YouTubeVideo), args.Error(1)
}

func (m *MockYouTube) ChannelTitle(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
