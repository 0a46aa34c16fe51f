package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shorts-publisher/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewYouTubeClientWithOptions(context.Background(), 0,
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return c
}

func TestInsertVideo(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/youtube/v3/videos"), r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("part"), "snippet")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"vid123","snippet":{"title":"Part 1","channelId":"UC1","tags":["a"]},"status":{"privacyStatus":"public","uploadStatus":"uploaded"}}`)
	})

	got, err := c.InsertVideo(context.Background(), &model.YouTubeVideoInsert{
		Title:         "Part 1",
		Description:   "desc",
		Tags:          []string{"a"},
		CategoryID:    "22",
		PrivacyStatus: "public",
		Media:         strings.NewReader("fake-mp4-bytes"),
		Size:          14,
	})
	require.NoError(t, err)
	assert.Equal(t, &model.YouTubeVideo{
		ID:            "vid123",
		Title:         "Part 1",
		ChannelID:     "UC1",
		Tags:          []string{"a"},
		PrivacyStatus: "public",
		UploadStatus:  "uploaded",
	}, got)
	assert.Contains(t, body, `"categoryId":"22"`)
	assert.Contains(t, body, `"privacyStatus":"public"`)
	assert.Contains(t, body, "fake-mp4-bytes")
}

func TestInsertVideoPlatformError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"quotaExceeded"}}`)
	})

	_, err := c.InsertVideo(context.Background(), &model.YouTubeVideoInsert{Title: "x", Media: strings.NewReader("x")})
	var apiErr *model.PlatformAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.PlatformYouTube, apiErr.Platform)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "quotaExceeded")
}

func TestChannelTitle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/youtube/v3/channels"), r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("mine"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[{"id":"UC1","snippet":{"title":"My Shorts"}}]}`)
	})

	title, err := c.ChannelTitle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "My Shorts", title)
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yt", "token.json")

	tok, err := loadToken(path)
	require.NoError(t, err)
	assert.Nil(t, tok)

	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, saveToken(path, want))

	got, err := loadToken(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))
}

type sequenceSource struct {
	tokens []*oauth2.Token
	i      int
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	tok := s.tokens[s.i]
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return tok, nil
}

func TestPersistingTokenSourceWritesBackRefreshedTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	src := &persistingTokenSource{
		base: &sequenceSource{tokens: []*oauth2.Token{
			{AccessToken: "a1", RefreshToken: "r"},
			{AccessToken: "a2", RefreshToken: "r"},
		}},
		path: path,
		last: "a1",
	}

	_, err := src.Token()
	require.NoError(t, err)
	tok, err := loadToken(path)
	require.NoError(t, err)
	assert.Nil(t, tok, "unchanged token is not rewritten")

	_, err = src.Token()
	require.NoError(t, err)
	tok, err = loadToken(path)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "a2", tok.AccessToken)
}
