package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
	"github.com/noah-isme/lab-scheduler-api/pkg/middleware/requestid"
)

// AuditResourceIDKey lets a handler name the resource it created, for routes
// without an :id parameter.
const AuditResourceIDKey = "audit_resource_id"

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records an audit log entry after each successful request.
// Failures to write the entry are logged and never affect the response.
func Audit(writer auditWriter, logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		status := c.Writer.Status()
		if writer == nil || status >= 400 {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		if claims, ok := CurrentClaims(c); ok {
			userID := claims.UserID
			entry.UserID = &userID
		}
		resourceID := c.GetString(AuditResourceIDKey)
		if resourceID == "" {
			resourceID = c.Param("id")
		}
		if resourceID != "" {
			entry.ResourceID = &resourceID
		}

		payload, err := json.Marshal(map[string]interface{}{
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": requestid.Value(c),
		})
		if err == nil {
			entry.Payload = payload
		}

		if err := writer.CreateAuditLog(c.Request.Context(), entry); err != nil {
			logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
		}
	}
}
