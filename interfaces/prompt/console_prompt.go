package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/logger"

	"github.com/pkg/browser"
)

var errInputClosed = errors.New("input closed before a payload arrived")

// ConsolePrompt asks the operator to log in through the hosted page and paste the
// resulting token JSON on the input stream.
type ConsolePrompt struct {
	in      io.Reader
	out     io.Writer
	openURL func(string) error

	readOnce sync.Once
	pastes   chan paste
}

// paste is one JSON value read from the input, or the reason none could be read.
type paste struct {
	payload json.RawMessage
	err     error
}

func NewConsolePrompt(in io.Reader, out io.Writer) *ConsolePrompt {
	return &ConsolePrompt{in: in, out: out, openURL: browser.OpenURL, pastes: make(chan paste)}
}

// WithOpener replaces the browser launcher. A nil opener disables it.
func (p *ConsolePrompt) WithOpener(open func(string) error) *ConsolePrompt {
	p.openURL = open
	return p
}

// RequestCredential prints loginURL, tries to open it and waits for one JSON value.
// A paste that arrives after an earlier request gave up is handed to the next one.
func (p *ConsolePrompt) RequestCredential(ctx context.Context, loginURL string) ([]byte, error) {
	fmt.Fprintf(p.out, "TikTok login required.\nOpen %s, sign in, then paste the token JSON below:\n", loginURL)
	if p.openURL != nil {
		if err := p.openURL(loginURL); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Could not open browser, open the login URL manually")
		}
	}
	p.readOnce.Do(func() { go p.readPastes() })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-p.pastes:
		if !ok {
			return nil, errInputClosed
		}
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInteractiveAuthMalformed, r.err)
		}
		return r.payload, nil
	}
}

// readPastes is the only reader of p.in. It closes pastes when the input ends.
func (p *ConsolePrompt) readPastes() {
	defer close(p.pastes)
	dec := json.NewDecoder(p.in)
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if err == io.EOF {
			return
		}
		p.pastes <- paste{payload: raw, err: err}
		if err == nil {
			continue
		}
		var syntaxErr *json.SyntaxError
		if !errors.As(err, &syntaxErr) {
			return
		}
		// The decoder is stuck on the bad input; start over on whatever comes next.
		dec = json.NewDecoder(p.in)
	}
}
