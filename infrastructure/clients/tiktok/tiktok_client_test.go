package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"shorts-publisher/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewTikTokClient(Config{
		ClientKey:    "ck",
		ClientSecret: "cs",
		RedirectURI:  "http://localhost:8090/auth/tiktok/callback",
		APIBase:      srv.URL,
		AuthorizeURL: "https://www.tiktok.com/v2/auth/authorize/",
		Scopes:       []string{"video.upload", "video.publish"},
		HTTPClient:   srv.Client(),
	})
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c, srv
}

func TestRefreshToken(t *testing.T) {
	t.Run("flat response", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, refreshPath, r.URL.Path)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "ck", r.PostForm.Get("client_key"))
			assert.Equal(t, "cs", r.PostForm.Get("client_secret"))
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "R", r.PostForm.Get("refresh_token"))
			_, _ = io.WriteString(w, `{"access_token":"A2","refresh_token":"R2","expires_in":3600}`)
		})

		cred, err := c.RefreshToken(context.Background(), "R")
		require.NoError(t, err)
		assert.Equal(t, model.Credential{AccessToken: "A2", RefreshToken: "R2", ExpiresAt: 1700003600}, *cred)
	})

	t.Run("nested data response keeps old refresh token when omitted", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":{"access_token":"A3","expires_in":60}}`)
		})

		cred, err := c.RefreshToken(context.Background(), "R")
		require.NoError(t, err)
		assert.Equal(t, "A3", cred.AccessToken)
		assert.Equal(t, "R", cred.RefreshToken)
		assert.Equal(t, int64(1700000060), cred.ExpiresAt)
	})

	t.Run("non-2xx wraps refresh failure", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
		})

		_, err := c.RefreshToken(context.Background(), "R")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrRefreshFailed)
		var apiErr *model.PlatformAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, StepRefresh, apiErr.Step)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("error body with 200", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"expired"}`)
		})

		_, err := c.RefreshToken(context.Background(), "R")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrRefreshFailed)
		assert.Contains(t, err.Error(), "invalid_grant")
	})
}

func TestExchangeCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tokenPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "http://localhost:8090/auth/tiktok/callback", r.PostForm.Get("redirect_uri"))
		_, _ = io.WriteString(w, `{"access_token":"A","refresh_token":"R","expires_in":86400,"open_id":"o"}`)
	})

	cred, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, int64(1700086400), cred.ExpiresAt)
}

func TestAuthorizeURL(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	raw := c.AuthorizeURL("signed-state")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.tiktok.com", u.Host)
	assert.Equal(t, "ck", u.Query().Get("client_key"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "video.upload,video.publish", u.Query().Get("scope"))
	assert.Equal(t, "signed-state", u.Query().Get("state"))
}

func TestInitVideoPublish(t *testing.T) {
	t.Run("sends post and source info", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, initPath, r.URL.Path)
			assert.Equal(t, "Bearer A", r.Header.Get("Authorization"))
			var body map[string]map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hello #a #b", body["post_info"]["title"])
			assert.Equal(t, "SELF_ONLY", body["post_info"]["privacy_level"])
			assert.Equal(t, "FILE_UPLOAD", body["source_info"]["source"])
			assert.EqualValues(t, 1234, body["source_info"]["video_size"])
			assert.EqualValues(t, 1234, body["source_info"]["chunk_size"])
			assert.EqualValues(t, 1, body["source_info"]["total_chunk_count"])
			_, _ = io.WriteString(w, `{"data":{"publish_id":"p1","upload_url":"https://upload.example/x"},"error":{"code":"ok"}}`)
		})

		res, err := c.InitVideoPublish(context.Background(), "A", PostInfo{Title: "hello #a #b", PrivacyLevel: "SELF_ONLY"}, 1234)
		require.NoError(t, err)
		assert.Equal(t, &InitResult{PublishID: "p1", UploadURL: "https://upload.example/x"}, res)
	})

	t.Run("400 is a platform error at init", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":"invalid_params"}}`)
		})

		_, err := c.InitVideoPublish(context.Background(), "A", PostInfo{}, 10)
		var apiErr *model.PlatformAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, model.PlatformTikTok, apiErr.Platform)
		assert.Equal(t, StepInit, apiErr.Step)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Contains(t, apiErr.Body, "invalid_params")
	})
}

func TestTransferVideo(t *testing.T) {
	var gotRange, gotType, gotBody string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotRange = r.Header.Get("Content-Range")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.TransferVideo(context.Background(), srv.URL+"/upload", strings.NewReader("0123456789"), 10))
	assert.Equal(t, "bytes 0-9/10", gotRange)
	assert.Equal(t, "video/mp4", gotType)
	assert.Equal(t, "0123456789", gotBody)
}

func TestTransferVideoFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	})

	err := c.TransferVideo(context.Background(), srv.URL+"/upload", strings.NewReader("x"), 1)
	var apiErr *model.PlatformAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, StepTransfer, apiErr.Step)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.StatusCode)
}

func TestGetPublishStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, statusPath, r.URL.Path)
		assert.Equal(t, "p1", r.URL.Query().Get("publish_id"))
		assert.Equal(t, "Bearer A", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data":{"status":"PROCESSING_UPLOAD","uploaded_bytes":10},"error":{"code":"ok"}}`)
	})

	st, err := c.GetPublishStatus(context.Background(), "A", "p1")
	require.NoError(t, err)
	assert.Equal(t, "PROCESSING_UPLOAD", st.Status)
	assert.JSONEq(t, `{"status":"PROCESSING_UPLOAD","uploaded_bytes":10}`, string(st.Data))
}

func TestContentRange(t *testing.T) {
	assert.Equal(t, "bytes 0-1048575/1048576", ContentRange(1048576))
}
