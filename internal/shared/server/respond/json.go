package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OutcomeResponse is the body for calls that ran to a verdict.
type OutcomeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Outcome writes a 200 {success, message}; a structured failure is still a 200.
func Outcome(c *gin.Context, success bool, message string) {
	OK(c, OutcomeResponse{Success: success, Message: message})
}
