package usecase

import (
	"context"
	"sync"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/logger"
)

const (
	// RefreshSafetyMargin is how long before expiry the scheduler refreshes.
	RefreshSafetyMargin = 60 * time.Second
	// RefreshRetryInterval is the pause after a failed refresh.
	RefreshRetryInterval = 60 * time.Second
)

// credentialSource is the part of the auth usecase the scheduler drives.
type credentialSource interface {
	Current() *model.Credential
	RefreshIfDue(ctx context.Context, margin time.Duration) (bool, error)
}

// RefreshScheduler keeps the live credential fresh from a single background goroutine.
type RefreshScheduler struct {
	ctx  context.Context
	auth credentialSource

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRefreshScheduler binds the scheduler to ctx; cancelling ctx stops the loop.
func NewRefreshScheduler(ctx context.Context, auth credentialSource) *RefreshScheduler {
	return &RefreshScheduler{
		ctx:   ctx,
		auth:  auth,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Start launches the loop unless it is already running. It reports whether a loop was started.
func (s *RefreshScheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return false
		}
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	return true
}

// Stop cancels the loop and waits for it to exit.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *RefreshScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *RefreshScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	lg := logger.GetLogger()

	for ctx.Err() == nil {
		cred := s.auth.Current()
		if cred == nil {
			if s.sleep(ctx, RefreshRetryInterval) != nil {
				break
			}
			continue
		}

		if wait := RefreshDelay(*cred, s.now()); wait > 0 {
			lg.WithField("wake_at", s.now().Add(wait).Format(time.RFC3339)).Debug("Refresh scheduler sleeping")
			if s.sleep(ctx, wait) != nil {
				break
			}
		}

		if _, err := s.auth.RefreshIfDue(ctx, RefreshSafetyMargin); err != nil {
			if ctx.Err() != nil {
				break
			}
			lg.WithField("error", err).WithField("retry_in", RefreshRetryInterval.String()).Error("Background token refresh failed")
			if s.sleep(ctx, RefreshRetryInterval) != nil {
				break
			}
			continue
		}

		// A grant shorter than the margin would otherwise refresh back-to-back.
		if cur := s.auth.Current(); cur != nil && RefreshDelay(*cur, s.now()) <= 0 {
			lg.WithField("expires_at", cur.Expiry().Format(time.RFC3339)).Warn("Refreshed token is already inside the safety margin")
			if s.sleep(ctx, RefreshRetryInterval) != nil {
				break
			}
		}
	}
	lg.Info("Refresh scheduler stopped")
}

// RefreshDelay is the time until a refresh is due: expires_at - now - RefreshSafetyMargin.
func RefreshDelay(cred model.Credential, now time.Time) time.Duration {
	return cred.Expiry().Sub(now) - RefreshSafetyMargin
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
