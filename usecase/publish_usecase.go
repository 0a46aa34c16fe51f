package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/domain/repository"
	"shorts-publisher/infrastructure/logger"

	"github.com/google/uuid"
)

const (
	StepLedger   = "ledger"
	StepAuth     = "auth"
	StepResolve  = "resolve"
	StepMetadata = "metadata"
	StepUpload   = "upload"
)

// IPublishUsecase drives every rendered video through every configured platform.
type IPublishUsecase interface {
	PublishAll(ctx context.Context) (*model.PublishReport, error)
	PublishVideo(ctx context.Context, path string) (*model.PublishReport, error)
}

type PublishConfig struct {
	VideosDir string
	Platforms []model.Platform
}

type PublishUsecase struct {
	auth      IAuthUsecase
	resolver  IArtifactResolver
	bundles   repository.IMetadataBundle
	uploaders map[model.Platform]repository.IPlatformUploader
	ledger    repository.IUploadResult // optional
	notifiers []repository.IUploadNotifier
	cfg       PublishConfig
	now       func() time.Time
	newRunID  func() string
}

// NewPublishUsecase fails when a configured platform has no uploader.
func NewPublishUsecase(auth IAuthUsecase, resolver IArtifactResolver, bundles repository.IMetadataBundle, uploaders []repository.IPlatformUploader, cfg PublishConfig) (*PublishUsecase, error) {
	m := make(map[model.Platform]repository.IPlatformUploader, len(uploaders))
	for _, up := range uploaders {
		m[up.Platform()] = up
	}
	for _, p := range cfg.Platforms {
		if _, ok := m[p]; !ok {
			return nil, fmt.Errorf("no uploader registered for platform %s", p)
		}
	}
	return &PublishUsecase{
		auth:      auth,
		resolver:  resolver,
		bundles:   bundles,
		uploaders: m,
		cfg:       cfg,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}, nil
}

// WithLedger enables skip-on-prior-success and records every result (fluent)
func (u *PublishUsecase) WithLedger(ledger repository.IUploadResult) *PublishUsecase {
	u.ledger = ledger
	return u
}

// WithNotifiers fans results out to observers (fluent)
func (u *PublishUsecase) WithNotifiers(notifiers ...repository.IUploadNotifier) *PublishUsecase {
	u.notifiers = append(u.notifiers, notifiers...)
	return u
}

// batchBundle caches one bundle load, including its failure, for the duration of a run.
type batchBundle struct {
	bundle *model.MetadataBundle
	err    error
}

type publishRun struct {
	report  *model.PublishReport
	bundles map[string]batchBundle
}

func (u *PublishUsecase) newRun() *publishRun {
	return &publishRun{
		report:  &model.PublishReport{RunID: u.newRunID()},
		bundles: make(map[string]batchBundle),
	}
}

// PublishAll errors only when the run as a whole cannot proceed. Per-video failures are in the report.
func (u *PublishUsecase) PublishAll(ctx context.Context) (*model.PublishReport, error) {
	lg := logger.GetLogger()
	paths, err := u.resolver.Discover(u.cfg.VideosDir)
	if err != nil {
		return nil, fmt.Errorf("discover videos: %w", err)
	}
	run := u.newRun()
	lg.WithField("run_id", run.report.RunID).WithField("videos", len(paths)).Info("Publish run started")

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			u.logSummary(run.report)
			return run.report, err
		}
		u.publishOne(ctx, run, path)
	}
	u.logSummary(run.report)
	return run.report, nil
}

func (u *PublishUsecase) PublishVideo(ctx context.Context, path string) (*model.PublishReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run := u.newRun()
	u.publishOne(ctx, run, path)
	u.logSummary(run.report)
	return run.report, nil
}

func (u *PublishUsecase) publishOne(ctx context.Context, run *publishRun, path string) {
	for _, platform := range u.cfg.Platforms {
		if ctx.Err() != nil {
			return
		}
		res := u.attempt(ctx, run, path, platform)
		u.record(ctx, run.report, res)
	}
}

// attempt runs one (video, platform) pair and converts every failure into a result.
func (u *PublishUsecase) attempt(ctx context.Context, run *publishRun, path string, platform model.Platform) model.UploadResult {
	runID := run.report.RunID
	fail := func(step string, err error) model.UploadResult {
		return model.NewFailureResult(runID, platform, path, step, err, u.now())
	}

	if u.ledger != nil {
		done, err := u.ledger.HasSucceeded(ctx, path, platform)
		if err != nil {
			logger.GetLogger().WithField("video", path).WithField("platform", platform).WithField("error", err).Warn("Ledger lookup failed, uploading anyway")
		} else if done {
			return model.UploadResult{
				RunID:      runID,
				Platform:   platform,
				VideoPath:  path,
				Status:     model.UploadStatusSkipped,
				Step:       StepLedger,
				Detail:     "already uploaded",
				FinishedAt: u.now(),
			}
		}
	}

	req := &model.UploadRequest{}
	if platform == model.PlatformTikTok {
		cred, err := u.auth.EnsureValid(ctx)
		if err != nil {
			return fail(StepAuth, err)
		}
		req.Credential = &cred
	}

	artifact, err := u.resolver.Resolve(path)
	if err != nil {
		return fail(StepResolve, err)
	}
	req.Artifact = *artifact

	bundle, err := u.bundle(ctx, run, artifact.BatchID)
	if err != nil {
		return fail(StepMetadata, err)
	}
	entry, err := u.resolver.Match(artifact, bundle, platform)
	if err != nil {
		return fail(StepMetadata, err)
	}
	req.Metadata = entry

	receipt, err := u.uploaders[platform].Upload(ctx, req)
	if err != nil {
		return fail(StepUpload, err)
	}
	return model.NewSuccessResult(runID, platform, path, receipt, u.now())
}

func (u *PublishUsecase) bundle(ctx context.Context, run *publishRun, batchID string) (*model.MetadataBundle, error) {
	if cached, ok := run.bundles[batchID]; ok {
		return cached.bundle, cached.err
	}
	bundle, err := u.bundles.LoadBundle(ctx, batchID)
	if err != nil && !errors.Is(err, model.ErrMetadataMissing) {
		err = fmt.Errorf("%w: %w", model.ErrMetadataMissing, err)
	}
	run.bundles[batchID] = batchBundle{bundle: bundle, err: err}
	return bundle, err
}

func (u *PublishUsecase) record(ctx context.Context, report *model.PublishReport, res model.UploadResult) {
	report.Results = append(report.Results, res)

	entry := logger.GetLogger().WithField("run_id", res.RunID).
		WithField("video", res.VideoPath).
		WithField("platform", res.Platform).
		WithField("status", res.Status)
	switch res.Status {
	case model.UploadStatusSuccess:
		entry.WithField("platform_id", res.PlatformID).Info("Upload succeeded")
	case model.UploadStatusSkipped:
		entry.Info("Upload skipped, already published")
	default:
		entry.WithField("step", res.Step).
			WithField("error_kind", res.ErrorKind).
			WithField("status_code", res.StatusCode).
			WithField("detail", res.Detail).
			Error("Upload failed")
	}

	if u.ledger != nil && res.Status != model.UploadStatusSkipped {
		if err := u.ledger.Record(ctx, &res); err != nil {
			logger.GetLogger().WithField("video", res.VideoPath).WithField("error", err).Warn("Failed to record upload result")
		}
	}
	for _, n := range u.notifiers {
		n.Notify(ctx, res)
	}
}

func (u *PublishUsecase) logSummary(report *model.PublishReport) {
	fields := map[string]interface{}{"run_id": report.RunID, "total": len(report.Results)}
	for _, p := range u.cfg.Platforms {
		fields[string(p)+"_success"] = report.Count(p, model.UploadStatusSuccess)
		fields[string(p)+"_failed"] = report.Count(p, model.UploadStatusFailed)
		fields[string(p)+"_skipped"] = report.Count(p, model.UploadStatusSkipped)
	}
	logger.GetLogger().WithFields(fields).Info("Publish run finished")
}
