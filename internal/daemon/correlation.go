package daemon

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	correlationIDKey    = "correlation_id"
	correlationIDHeader = "X-Correlation-ID"
)

// CorrelationMiddleware tags every request with an id, reusing the one the
// front end sent if present, and echoes it in the response.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(correlationIDHeader)

		if _, err := uuid.Parse(correlationID); err != nil {
			correlationID = uuid.New().String()
		}

		c.Set(correlationIDKey, correlationID)
		c.Header(correlationIDHeader, correlationID)

		c.Next()
	}
}

func GetCorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}

// LogWithCorrelation returns a log entry carrying the request's id
func LogWithCorrelation(c *gin.Context) *logrus.Entry {
	return logrus.WithField("correlation_id", GetCorrelationID(c))
}
