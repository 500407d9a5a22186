package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voice-broker/internal/channels"
	"voice-broker/pkg/logger"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// ChannelFinder resolves routing tokens.
type ChannelFinder interface {
	FindByWebsiteToken(ctx context.Context, websiteToken string) (channels.Channel, error)
}

// RequireChannel resolves the :token path parameter to a channel and injects
// it into the request context. Unknown tokens answer 404 "Invalid token" in
// plain text before any other processing.
func RequireChannel(finder ChannelFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, err := finder.FindByWebsiteToken(c.Request.Context(), c.Param("token"))
		if errors.Is(err, channels.ErrNotFound) {
			c.Abort()
			c.String(http.StatusNotFound, "Invalid token")
			return
		}
		if err != nil {
			logger.FromGin(c).Error("channel lookup failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "channel lookup failed"})
			return
		}

		c.Request = c.Request.WithContext(WithChannel(c.Request.Context(), ch))
		c.Set("channel_id", ch.ID)
		c.Set("account_id", ch.AccountID)
		c.Next()
	}
}

// RequireChannelSecret checks Authorization: Bearer <hmac_token> against the
// channel injected by RequireChannel. It must run after RequireChannel.
func RequireChannelSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, err := ChannelFrom(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "channel not resolved"})
			return
		}
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)
		if ch.HMACToken == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(ch.HMACToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
