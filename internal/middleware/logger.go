package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"nodegate/internal/logging"
	"nodegate/internal/utils"
)

// RequestLogger logs admin API requests through the global logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger := logging.GetGlobalLogger()
		logger.LogHTTPRequest(
			c.Request.Method,
			c.Request.URL.Path,
			utils.GetRealIP(c),
			c.Writer.Status(),
			c.Writer.Size(),
			time.Since(start).String(),
		)
	}
}
