package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/logger"
	"shorts-publisher/infrastructure/utils"

	"github.com/gin-gonic/gin"
)

const maxTokenPayload = 64 << 10

// ITikTokAuthHandler serves the local side of the TikTok login.
type ITikTokAuthHandler interface {
	Login(ctx *gin.Context)
	Callback(ctx *gin.Context)
	SubmitTokens(ctx *gin.Context)
	Status(ctx *gin.Context)
}

type consentClient interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*model.Credential, error)
}

// CredentialSink receives payloads for a pending interactive request.
type CredentialSink interface {
	Deliver(payload []byte) error
}

type credentialStatus interface {
	State() model.CredentialState
	Current() *model.Credential
}

type TikTokAuthHandler struct {
	client    consentClient
	sink      CredentialSink
	auth      credentialStatus
	secretKey string
	stateTTL  time.Duration
}

func NewTikTokAuthHandler(client consentClient, sink CredentialSink, auth credentialStatus, secretKey string, stateTTL time.Duration) ITikTokAuthHandler {
	return &TikTokAuthHandler{
		client:    client,
		sink:      sink,
		auth:      auth,
		secretKey: secretKey,
		stateTTL:  stateTTL,
	}
}

// Login handles GET /auth/tiktok by redirecting to the TikTok consent page.
func (h *TikTokAuthHandler) Login(ctx *gin.Context) {
	state, err := utils.NewOAuthState(h.secretKey, h.stateTTL)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while signing oauth state")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not start login"})
		return
	}
	ctx.Redirect(http.StatusFound, h.client.AuthorizeURL(state))
}

// Callback handles GET /auth/tiktok/callback.
func (h *TikTokAuthHandler) Callback(ctx *gin.Context) {
	if errorParam := ctx.Query("error"); errorParam != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       fmt.Sprintf("OAuth error: %s", errorParam),
			"description": ctx.Query("error_description"),
		})
		return
	}
	if err := utils.VerifyOAuthState(ctx.Query("state"), h.secretKey); err != nil {
		logger.GetLogger().WithField("error", err).Warn("TikTok callback with invalid state")
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":  "invalid state",
			"action": "Visit /auth/tiktok to start over",
		})
		return
	}
	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code not found"})
		return
	}

	cred, err := h.client.ExchangeCode(ctx.Request.Context(), code)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("TikTok code exchange failed")
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Failed to exchange code for token", "message": err.Error()})
		return
	}
	payload, err := json.Marshal(cred)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.deliver(ctx, payload, cred)
}

// SubmitTokens handles POST /auth/tiktok/tokens with the token JSON in the body.
func (h *TikTokAuthHandler) SubmitTokens(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxTokenPayload))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cred, err := model.ParseCredentialPayload(payload)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.deliver(ctx, payload, cred)
}

func (h *TikTokAuthHandler) deliver(ctx *gin.Context, payload []byte, cred *model.Credential) {
	if err := h.sink.Deliver(payload); err != nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	logger.GetLogger().WithField("expires_at", cred.ExpiresAt).Info("TikTok credential delivered to pending login")
	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"expires_at": cred.ExpiresAt,
		"message":    "Authentication received, you can close this window.",
	})
}

// Status handles GET /auth/tiktok/status. Tokens are never echoed.
func (h *TikTokAuthHandler) Status(ctx *gin.Context) {
	res := gin.H{"state": h.auth.State().String()}
	if cred := h.auth.Current(); cred != nil {
		res["expires_at"] = cred.Expiry().UTC().Format(time.RFC3339)
	}
	ctx.JSON(http.StatusOK, res)
}
