package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/logger"
)

// WebhookKeyAuth authenticates payment-provider callbacks by the X-API-Key
// header. The endpoint stays closed while no key is configured.
func WebhookKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			AbortWithError(c, apperrors.ErrWebhookNotConfigured)
			return
		}

		provided := c.GetHeader("X-API-Key")
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			logger.Get().Warnw("Webhook call with invalid API key",
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path,
			)
			AbortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}

		c.Next()
	}
}
