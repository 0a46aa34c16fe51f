package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"shorts-publisher/infrastructure/logger"
	"shorts-publisher/infrastructure/utils"

	"github.com/pkg/browser"
)

var (
	ErrNoPendingRequest = errors.New("no credential request is pending")
	ErrAlreadyDelivered = errors.New("a credential payload was already delivered")
)

// WebPrompt waits for the callback server to deliver a credential payload, either from
// the TikTok consent redirect or from the token page posting its JSON.
type WebPrompt struct {
	baseURL   string
	secretKey string
	stateTTL  time.Duration
	openURL   func(string) error

	mu      sync.Mutex
	waiting chan []byte
}

// NewWebPrompt serves submissions on baseURL, for example http://localhost:8090.
func NewWebPrompt(baseURL, secretKey string, stateTTL time.Duration) *WebPrompt {
	return &WebPrompt{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		stateTTL:  stateTTL,
		openURL:   browser.OpenURL,
	}
}

// WithOpener replaces the browser launcher. A nil opener disables it.
func (p *WebPrompt) WithOpener(open func(string) error) *WebPrompt {
	p.openURL = open
	return p
}

func (p *WebPrompt) RequestCredential(ctx context.Context, loginURL string) ([]byte, error) {
	ch := make(chan []byte, 1)
	p.mu.Lock()
	if p.waiting != nil {
		p.mu.Unlock()
		return nil, errors.New("a credential request is already pending")
	}
	p.waiting = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.waiting = nil
		p.mu.Unlock()
	}()

	submitURL, err := p.SubmitURL()
	if err != nil {
		return nil, err
	}
	logger.GetLogger().
		WithField("login_url", loginURL).
		WithField("submit_url", submitURL).
		Info("TikTok login required: sign in, then POST the token JSON to the submit URL")
	if p.openURL != nil {
		if err := p.openURL(loginURL); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Could not open browser, open the login URL manually")
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload := <-ch:
		return payload, nil
	}
}

// SubmitURL returns the token submission endpoint carrying a fresh signed state.
func (p *WebPrompt) SubmitURL() (string, error) {
	state, err := utils.NewOAuthState(p.secretKey, p.stateTTL)
	if err != nil {
		return "", fmt.Errorf("sign submit state: %w", err)
	}
	return p.baseURL + "/auth/tiktok/tokens?state=" + url.QueryEscape(state), nil
}

// Pending reports whether a request is waiting for a payload.
func (p *WebPrompt) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waiting != nil
}

// Deliver hands payload to the pending request. Only the first payload per request is kept.
func (p *WebPrompt) Deliver(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.waiting == nil {
		return ErrNoPendingRequest
	}
	select {
	case p.waiting <- append([]byte(nil), payload...):
		return nil
	default:
		return ErrAlreadyDelivered
	}
}
