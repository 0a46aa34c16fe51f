package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

type HealthHandler struct {
	subscribers func() int
}

// NewHealthHandler reports liveness. subscribers may be nil.
func NewHealthHandler(subscribers func() int) IHealthHandler {
	return &HealthHandler{subscribers: subscribers}
}

// Healthz returns OK for health checks
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	res := gin.H{"status": "ok"}
	if h.subscribers != nil {
		res["stream_subscribers"] = h.subscribers()
	}
	ctx.JSON(http.StatusOK, res)
}
