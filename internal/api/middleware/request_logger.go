package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/ipguard/internal/cerberus"
)

// RequestLogger logs one line per handled request with the request_id and
// the client address resolved by the pipeline, when it ran.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		client := c.GetString(cerberus.ClientIPKey)
		if client == "" {
			client = c.ClientIP()
		}
		GetRequestLogger(c).WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    SanitizePath(c.Request.URL.Path),
			"latency": time.Since(start).String(),
			"client":  client,
		}).Info("handled request")
	}
}
