package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

const (
	StepRefresh  = "refresh"
	StepExchange = "exchange"
	StepInit     = "init"
	StepTransfer = "transfer"
	StepStatus   = "status"

	refreshPath  = "/v2/oauth/refresh_token/"
	tokenPath    = "/v2/oauth/token/"
	initPath     = "/v2/post/publish/video/init/"
	statusPath   = "/v2/post/publish/get_status/"
	maxErrorBody = 4096
)

// Config represents TikTok API configuration
type Config struct {
	ClientKey    string
	ClientSecret string
	RedirectURI  string
	APIBase      string
	AuthorizeURL string
	Scopes       []string
	HTTPClient   *http.Client
}

// Client speaks the TikTok OAuth and Content Posting endpoints.
type Client struct {
	httpClient   *http.Client
	apiBase      string
	clientKey    string
	clientSecret string
	redirectURI  string
	authorizeURL string
	scopes       []string
	now          func() time.Time
}

func NewTikTokClient(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		httpClient:   httpClient,
		apiBase:      strings.TrimRight(config.APIBase, "/"),
		clientKey:    config.ClientKey,
		clientSecret: config.ClientSecret,
		redirectURI:  config.RedirectURI,
		authorizeURL: config.AuthorizeURL,
		scopes:       config.Scopes,
		now:          time.Now,
	}
}

type refreshForm struct {
	ClientKey    string `url:"client_key"`
	ClientSecret string `url:"client_secret,omitempty"`
	GrantType    string `url:"grant_type"`
	RefreshToken string `url:"refresh_token"`
}

type exchangeForm struct {
	ClientKey    string `url:"client_key"`
	ClientSecret string `url:"client_secret,omitempty"`
	Code         string `url:"code"`
	GrantType    string `url:"grant_type"`
	RedirectURI  string `url:"redirect_uri,omitempty"`
}

type authorizeQuery struct {
	ClientKey    string `url:"client_key"`
	ResponseType string `url:"response_type"`
	Scope        string `url:"scope"`
	RedirectURI  string `url:"redirect_uri,omitempty"`
	State        string `url:"state"`
}

type tokenGrant struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	OpenID           string `json:"open_id"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// tokenResponse accepts both the flat v2 shape and the legacy {"data": {...}} envelope.
type tokenResponse struct {
	tokenGrant
	Data *tokenGrant `json:"data"`
}

func (r *tokenResponse) grant() tokenGrant {
	if r.AccessToken == "" && r.Data != nil {
		return *r.Data
	}
	return r.tokenGrant
}

// RefreshToken rotates the credential. Every failure wraps model.ErrRefreshFailed.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*model.Credential, error) {
	form, err := query.Values(refreshForm{
		ClientKey:    c.clientKey,
		ClientSecret: c.clientSecret,
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode form: %v", model.ErrRefreshFailed, err)
	}
	cred, err := c.postTokenForm(ctx, refreshPath, StepRefresh, form)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrRefreshFailed, err)
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	logger.GetLogger().WithField("expires_at", cred.Expiry().Format(time.RFC3339)).Info("TikTok token refreshed")
	return cred, nil
}

// ExchangeCode trades an authorization code from the consent redirect for a credential.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*model.Credential, error) {
	form, err := query.Values(exchangeForm{
		ClientKey:    c.clientKey,
		ClientSecret: c.clientSecret,
		Code:         code,
		GrantType:    "authorization_code",
		RedirectURI:  c.redirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	cred, err := c.postTokenForm(ctx, tokenPath, StepExchange, form)
	if err != nil {
		return nil, err
	}
	if !cred.Present() {
		return nil, fmt.Errorf("%w: code exchange returned no refresh token", model.ErrInteractiveAuthMalformed)
	}
	return cred, nil
}

// AuthorizeURL is the consent page the operator is sent to.
func (c *Client) AuthorizeURL(state string) string {
	v, err := query.Values(authorizeQuery{
		ClientKey:    c.clientKey,
		ResponseType: "code",
		Scope:        strings.Join(c.scopes, ","),
		RedirectURI:  c.redirectURI,
		State:        state,
	})
	if err != nil {
		return c.authorizeURL
	}
	sep := "?"
	if strings.Contains(c.authorizeURL, "?") {
		sep = "&"
	}
	return c.authorizeURL + sep + v.Encode()
}

func (c *Client) postTokenForm(ctx context.Context, path, step string, form url.Values) (*model.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	body, err := c.do(req, step)
	if err != nil {
		return nil, err
	}
	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", step, err)
	}
	g := resp.grant()
	if g.AccessToken == "" {
		if g.Error != "" {
			return nil, fmt.Errorf("%s rejected: %s %s", step, g.Error, g.ErrorDescription)
		}
		return nil, fmt.Errorf("%s response carries no access_token", step)
	}
	cred := model.NewCredentialFromGrant(g.AccessToken, g.RefreshToken, g.ExpiresIn, c.now())
	return &cred, nil
}

type PostInfo struct {
	Title        string `json:"title"`
	PrivacyLevel string `json:"privacy_level"`
}

type SourceInfo struct {
	Source          string `json:"source"`
	VideoSize       int64  `json:"video_size"`
	ChunkSize       int64  `json:"chunk_size"`
	TotalChunkCount int    `json:"total_chunk_count"`
}

type initRequest struct {
	PostInfo   PostInfo   `json:"post_info"`
	SourceInfo SourceInfo `json:"source_info"`
}

// InitResult is the upload session created by InitVideoPublish.
type InitResult struct {
	PublishID string `json:"publish_id"`
	UploadURL string `json:"upload_url"`
}

// InitVideoPublish opens a single-chunk FILE_UPLOAD session for a video of videoSize bytes.
func (c *Client) InitVideoPublish(ctx context.Context, accessToken string, post PostInfo, videoSize int64) (*InitResult, error) {
	payload, err := json.Marshal(initRequest{
		PostInfo: post,
		SourceInfo: SourceInfo{
			Source:          "FILE_UPLOAD",
			VideoSize:       videoSize,
			ChunkSize:       videoSize,
			TotalChunkCount: 1,
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+initPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	body, err := c.do(req, StepInit)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data InitResult `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode init response: %w", err)
	}
	if resp.Data.PublishID == "" || resp.Data.UploadURL == "" {
		return nil, fmt.Errorf("init response missing publish_id or upload_url: %s", truncate(body))
	}
	return &resp.Data, nil
}

// TransferVideo PUTs the whole file as one chunk. Any 2xx is success.
func (c *Client) TransferVideo(ctx context.Context, uploadURL string, video io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, video)
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("Content-Range", ContentRange(size))

	_, err = c.do(req, StepTransfer)
	return err
}

// ContentRange is the header value for a single chunk covering the whole file.
func ContentRange(size int64) string {
	return fmt.Sprintf("bytes 0-%d/%d", size-1, size)
}

// PublishStatus is the result of one status poll. Data is the provider payload verbatim.
type PublishStatus struct {
	Status string
	Data   json.RawMessage
}

func (c *Client) GetPublishStatus(ctx context.Context, accessToken, publishID string) (*PublishStatus, error) {
	u := c.apiBase + statusPath + "?" + url.Values{"publish_id": {publishID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := c.do(req, StepStatus)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	var status struct {
		Status string `json:"status"`
	}
	if len(resp.Data) > 0 {
		_ = json.Unmarshal(resp.Data, &status)
	}
	return &PublishStatus{Status: status.Status, Data: resp.Data}, nil
}

// do sends req and returns the body of a 2xx response. Other statuses become *model.PlatformAPIError.
func (c *Client) do(req *http.Request, step string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok %s request: %w", step, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tiktok %s read body: %w", step, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.PlatformAPIError{
			Platform:   model.PlatformTikTok,
			Step:       step,
			StatusCode: resp.StatusCode,
			Body:       truncate(body),
		}
	}
	return body, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
