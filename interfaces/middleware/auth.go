package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"shorts-publisher/infrastructure/logger"
	"shorts-publisher/infrastructure/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const StateHeader = "X-OAuth-State"

// RequireOAuthState admits requests carrying a state signed with secretKey, taken from
// the state query parameter, the X-OAuth-State header or a Bearer authorization.
func RequireOAuthState(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		state := stateFromRequest(ctx)
		if state == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "state missing"})
			return
		}
		if err := utils.VerifyOAuthState(state, secretKey); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Rejected request with invalid oauth state")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": abortMessage(err)})
			return
		}
		ctx.Next()
	}
}

func stateFromRequest(ctx *gin.Context) string {
	if s := ctx.Query("state"); s != "" {
		return s
	}
	if s := ctx.GetHeader(StateHeader); s != "" {
		return s
	}
	if auth := ctx.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func abortMessage(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Errors&jwt.ValidationErrorMalformed != 0:
			return "state is malformed"
		case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
			return "state expired, request a new submit URL"
		default:
			return fmt.Sprintf("state rejected: %v", err)
		}
	}
	return err.Error()
}
