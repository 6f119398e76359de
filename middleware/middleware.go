package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	U "custseg/util"
)

// scope constants.
const SCOPE_REQUEST_ID = "requestId"

const HEADER_REQUEST_ID = "X-Request-ID"

// RequestID scopes the request with the incoming X-Request-ID header, or a
// new uuid, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get(HEADER_REQUEST_ID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		U.SetScope(c, SCOPE_REQUEST_ID, requestID)
		c.Header(HEADER_REQUEST_ID, requestID)

		c.Next()
	}
}

// Logger logs every request after it is served.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logCtx := log.WithFields(log.Fields{
			"requestId": U.GetScopeByKeyAsString(c, SCOPE_REQUEST_ID),
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"query":     c.Request.URL.RawQuery,
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
		})
		if len(c.Errors) > 0 {
			logCtx.WithField("errors", c.Errors.String()).Error("Request failed.")
			return
		}
		logCtx.Info("Request served.")
	}
}
