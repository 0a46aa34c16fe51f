package youtube

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shorts-publisher/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// Config represents YouTube API configuration
type Config struct {
	ClientSecretFile string
	TokenFile        string
	ChunkSize        int
	AuthTimeout      time.Duration
	// OpenURL shows the consent page to the operator. Defaults to the system browser.
	OpenURL func(url string) error
}

var scopes = []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope}

// NewAuthorizedHTTPClient returns an HTTP client carrying the cached YouTube token, running
// the installed-app consent flow first when no token is cached. Refreshed tokens are written back.
func NewAuthorizedHTTPClient(ctx context.Context, config *Config) (*http.Client, error) {
	secret, err := os.ReadFile(config.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("read client secrets file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(secret, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets file: %w", err)
	}

	token, err := loadToken(config.TokenFile)
	if err != nil {
		logger.GetLogger().WithField("path", config.TokenFile).WithField("error", err).Warn("Ignoring unreadable YouTube token file")
	}
	if token == nil {
		token, err = authorizeLoopback(ctx, oauthConfig, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(config.TokenFile, token); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed to save YouTube token")
		}
	}

	src := &persistingTokenSource{
		base: oauthConfig.TokenSource(ctx, token),
		path: config.TokenFile,
		last: token.AccessToken,
	}
	return oauth2.NewClient(ctx, src), nil
}

// persistingTokenSource saves every newly minted token to the token file.
type persistingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed to save refreshed YouTube token")
		} else {
			logger.GetLogger().WithField("expiry", tok.Expiry).Info("YouTube token refreshed")
		}
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, nil
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// authorizeLoopback runs the installed-app flow with a redirect to 127.0.0.1 on an ephemeral port.
func authorizeLoopback(ctx context.Context, oauthConfig *oauth2.Config, config *Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}
	cfg := *oauthConfig
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port)

	state, err := randomState()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		if e := c.Query("error"); e != "" {
			c.String(http.StatusBadRequest, "Authorization failed: %s", e)
			select {
			case errCh <- fmt.Errorf("youtube consent denied: %s", e):
			default:
			}
			return
		}
		if c.Query("state") != state {
			c.String(http.StatusBadRequest, "State mismatch")
			return
		}
		c.String(http.StatusOK, "YouTube authorization complete. You can close this window.")
		select {
		case codeCh <- c.Query("code"):
		default:
		}
	})
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	logger.GetLogger().WithField("url", authURL).Info("Open this URL to authorize YouTube uploads")
	open := config.OpenURL
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(authURL); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Could not open browser")
	}

	timeout := config.AuthTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange youtube code: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-waitCtx.Done():
		return nil, fmt.Errorf("waiting for youtube consent: %w", waitCtx.Err())
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
