package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one structured line per request with latency, status,
// and a parsed client descriptor.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ua := user_agent.New(c.Request.UserAgent())
		browser, version := ua.Browser()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"os":         ua.OS(),
			"browser":    browser + " " + version,
		}
		if principal, ok := GetPrincipal(c); ok {
			fields["user_id"] = principal.ID
			fields["role"] = principal.Role
		}

		entry := logger.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request completed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}
