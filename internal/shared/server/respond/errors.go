package respond

import (
	"github.com/gin-gonic/gin"

	"face-auth-backend/internal/shared/telemetry"
)

// FailureResponse is the body of every failed call.
type FailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Fail logs the failure and aborts with {success:false, message}. code is an
// internal classification that only appears in logs.
func Fail(c *gin.Context, status int, code, message string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Info("http.failure", fields)
	}

	c.AbortWithStatusJSON(status, FailureResponse{Success: false, Message: message})
}
