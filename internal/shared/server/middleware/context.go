package middleware

import "github.com/gin-gonic/gin"

const (
	requestIDKey = "requestId"
	userIDKey    = "userId"
	outcomeKey   = "outcome"
)

// SetUserID records the normalized user a handler is acting for so it lands
// in the request log.
func SetUserID(c *gin.Context, userID string) {
	if c != nil && userID != "" {
		c.Set(userIDKey, userID)
	}
}

// UserIDFromContext fetches the user ID recorded by SetUserID.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// SetOutcome records a short outcome label (for example "verified" or
// "no_face") for the request log.
func SetOutcome(c *gin.Context, outcome string) {
	if c != nil && outcome != "" {
		c.Set(outcomeKey, outcome)
	}
}

// RequestIDFromContext fetches the request ID stored by RequestID middleware.
func RequestIDFromContext(c *gin.Context) string {
	return stringFromContext(c, requestIDKey)
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
