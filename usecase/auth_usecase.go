package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/domain/repository"
	"shorts-publisher/infrastructure/logger"
)

// IAuthUsecase owns the live TikTok credential.
type IAuthUsecase interface {
	// EnsureValid returns a valid credential, refreshing or prompting the operator as needed.
	EnsureValid(ctx context.Context) (model.Credential, error)
	// Current returns a copy of the live credential, or nil when absent.
	Current() *model.Credential
	// RefreshIfDue refreshes when the live credential expires within margin.
	RefreshIfDue(ctx context.Context, margin time.Duration) (bool, error)
	State() model.CredentialState
	AttachScheduler(s SchedulerStarter)
}

// SchedulerStarter starts background refreshing; Start is idempotent.
type SchedulerStarter interface {
	Start() bool
}

type AuthConfig struct {
	LoginURL      string
	PromptTimeout time.Duration
	// Seed is adopted when the store holds no credential.
	Seed *model.Credential
}

// mu serializes refresh, prompt and adopt cycles and may be held for a whole
// interactive login. credMu only guards cred, so snapshots never wait on a login.
type authUsecase struct {
	mu        sync.Mutex
	credMu    sync.RWMutex
	cred      *model.Credential
	store     repository.ICredentialStore
	refresher repository.ITokenRefresher
	prompt    repository.ICredentialPrompt
	scheduler SchedulerStarter
	cfg       AuthConfig
	now       func() time.Time
}

// NewAuthUsecase loads the persisted credential. prompt may be nil, in which case the
// interactive fallback always fails.
func NewAuthUsecase(ctx context.Context, store repository.ICredentialStore, refresher repository.ITokenRefresher, prompt repository.ICredentialPrompt, cfg AuthConfig) (IAuthUsecase, error) {
	u := &authUsecase{
		store:     store,
		refresher: refresher,
		prompt:    prompt,
		cfg:       cfg,
		now:       time.Now,
	}
	cred, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil && cfg.Seed.Present() {
		seed := *cfg.Seed
		cred = &seed
		logger.GetLogger().WithField("expires_at", seed.ExpiresAt).Info("Seeding TikTok credential from environment")
		u.persistLocked(ctx, seed)
	}
	u.cred = cred
	logger.GetLogger().WithField("state", u.cred.StateAt(u.now()).String()).Info("TikTok credential loaded")
	return u, nil
}

func (u *authUsecase) AttachScheduler(s SchedulerStarter) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.scheduler = s
}

func (u *authUsecase) Current() *model.Credential {
	u.credMu.RLock()
	defer u.credMu.RUnlock()
	if u.cred == nil {
		return nil
	}
	c := *u.cred
	return &c
}

func (u *authUsecase) State() model.CredentialState {
	u.credMu.RLock()
	defer u.credMu.RUnlock()
	return u.cred.StateAt(u.now())
}

func (u *authUsecase) EnsureValid(ctx context.Context) (model.Credential, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	lg := logger.GetLogger()
	var refreshErr error
	switch u.cred.StateAt(u.now()) {
	case model.CredentialValid:
		u.startSchedulerLocked()
		return *u.cred, nil
	case model.CredentialExpired:
		refreshErr = u.refreshLocked(ctx)
		if refreshErr == nil {
			u.startSchedulerLocked()
			return *u.cred, nil
		}
		lg.WithField("error", refreshErr).Warn("TikTok token refresh failed, falling back to interactive login")
	}
	return u.interactiveLocked(ctx, refreshErr)
}

func (u *authUsecase) RefreshIfDue(ctx context.Context, margin time.Duration) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.cred.Present() {
		return false, model.ErrAuthAbsent
	}
	if u.now().Before(u.cred.Expiry().Add(-margin)) {
		return false, nil
	}
	if err := u.refreshLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// refreshLocked performs exactly one refresh call and adopts the result.
func (u *authUsecase) refreshLocked(ctx context.Context) error {
	fresh, err := u.refresher.RefreshToken(ctx, u.cred.RefreshToken)
	if err != nil {
		if !errors.Is(err, model.ErrRefreshFailed) {
			err = fmt.Errorf("%w: %w", model.ErrRefreshFailed, err)
		}
		return err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = u.cred.RefreshToken
	}
	u.adoptLocked(fresh)
	u.persistLocked(ctx, *fresh)
	return nil
}

func (u *authUsecase) interactiveLocked(ctx context.Context, cause error) (model.Credential, error) {
	lg := logger.GetLogger()
	failure := model.ErrAuthAbsent
	if u.cred != nil {
		failure = model.ErrAuthExpiredUnrefreshable
	}
	if u.prompt == nil {
		return model.Credential{}, joinCause(failure, errors.New("no interactive prompt configured"), cause)
	}

	pctx := ctx
	if u.cfg.PromptTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, u.cfg.PromptTimeout)
		defer cancel()
	}
	lg.WithField("login_url", u.cfg.LoginURL).Info("Waiting for TikTok login")
	payload, err := u.prompt.RequestCredential(pctx, u.cfg.LoginURL)
	if err != nil {
		if errors.Is(err, model.ErrInteractiveAuthMalformed) {
			return model.Credential{}, err
		}
		return model.Credential{}, joinCause(failure, err, cause)
	}

	cred, err := model.ParseCredentialPayload(payload)
	if err != nil {
		lg.WithField("error", err).Warn("Rejected interactive credential payload")
		return model.Credential{}, err
	}
	u.adoptLocked(cred)
	u.persistLocked(ctx, *cred)
	u.startSchedulerLocked()
	lg.WithField("expires_at", cred.Expiry().Format(time.RFC3339)).Info("TikTok credential established interactively")
	return *cred, nil
}

// adoptLocked replaces the live credential. Callers hold mu, so reads of cred
// under mu need no credMu.
func (u *authUsecase) adoptLocked(cred *model.Credential) {
	u.credMu.Lock()
	defer u.credMu.Unlock()
	u.cred = cred
}

// persistLocked saves the credential. Failures are logged and never revert memory state.
func (u *authUsecase) persistLocked(ctx context.Context, cred model.Credential) {
	if err := u.store.Save(ctx, cred); err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to persist TikTok credential")
	}
}

func (u *authUsecase) startSchedulerLocked() {
	if u.scheduler != nil && u.scheduler.Start() {
		logger.GetLogger().Info("TikTok refresh scheduler started")
	}
}

func joinCause(sentinel, err, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %w (after %v)", sentinel, err, cause)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
