package faces

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"face-auth-backend/internal/shared/server/middleware"
	"face-auth-backend/internal/shared/server/respond"
)

const (
	maxEnrollBodySize = 64 << 20 // nine base64 images
	maxVerifyBodySize = 16 << 20
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches face routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, verifyMiddleware ...gin.HandlerFunc) {
	rg.POST("/register-face", h.register)
	rg.GET("/check-face-registered", h.checkRegistered)
	rg.POST("/verify-face", append(verifyMiddleware, h.verify)...)
	rg.GET("/face-attempts", h.attempts)
}

func (h *Handler) register(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxEnrollBodySize)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respond.Fail(c, http.StatusBadRequest, "validation_error", "userId is required")
		return
	}
	tagUser(c, req.UserID)

	res, err := h.Svc.Enroll(c.Request.Context(), req.UserID, req.Images)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			respond.Fail(c, http.StatusBadRequest, "validation_error", validationMessage(err))
		case errors.Is(err, ErrCountMismatch):
			middleware.SetOutcome(c, "count_mismatch")
			respond.OK(c, registerResponse{
				Success: false,
				Message: fmt.Sprintf("Not enough images. %d required, received %d.", RequiredImages, CountImages(req.Images)),
			})
		case errors.Is(err, ErrDecode):
			middleware.SetOutcome(c, "decode_failed")
			respond.OK(c, registerResponse{Success: false, Message: "Invalid image data"})
		default:
			respond.Fail(c, http.StatusInternalServerError, "upstream_error", "Failed to store face images")
		}
		return
	}

	middleware.SetOutcome(c, "enrolled")
	respond.OK(c, registerResponse{
		Success:   true,
		Message:   fmt.Sprintf("Uploaded %d images", len(res.ImageURLs)),
		ImageURLs: res.ImageURLs,
	})
}

func (h *Handler) checkRegistered(c *gin.Context) {
	userID := c.Query("userId")
	if strings.TrimSpace(userID) == "" {
		respond.Fail(c, http.StatusBadRequest, "validation_error", "userId is required")
		return
	}
	tagUser(c, userID)

	ok, err := h.Svc.IsRegistered(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			respond.Fail(c, http.StatusBadRequest, "validation_error", validationMessage(err))
			return
		}
		// A storage failure reads as "not registered".
		middleware.SetOutcome(c, "storage_error")
		respond.OK(c, checkRegisteredResponse{Success: true, Registered: false})
		return
	}
	respond.OK(c, checkRegisteredResponse{Success: true, Registered: ok})
}

func (h *Handler) verify(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxVerifyBodySize)

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Image) == "" {
		respond.Fail(c, http.StatusBadRequest, "validation_error", "userId and image are required")
		return
	}
	tagUser(c, req.UserID)

	_, err := h.Svc.Verify(c.Request.Context(), req.UserID, req.Image)
	switch {
	case err == nil:
		middleware.SetOutcome(c, "verified")
		respond.Outcome(c, true, "Face verified")
	case errors.Is(err, ErrValidation):
		respond.Fail(c, http.StatusBadRequest, "validation_error", validationMessage(err))
	case errors.Is(err, ErrDecode):
		middleware.SetOutcome(c, "decode_failed")
		respond.Outcome(c, false, "Invalid image data")
	case errors.Is(err, ErrNoFace):
		middleware.SetOutcome(c, "no_face")
		respond.Outcome(c, false, "No face found in image")
	case errors.Is(err, ErrNotRegistered):
		middleware.SetOutcome(c, "not_registered")
		respond.Outcome(c, false, "Face not registered")
	case errors.Is(err, ErrInsufficientMatches):
		middleware.SetOutcome(c, "rejected")
		respond.Outcome(c, false, "Not enough matching images to verify")
	default:
		respond.Fail(c, http.StatusInternalServerError, "upstream_error", "Face verification failed")
	}
}

func (h *Handler) attempts(c *gin.Context) {
	userID := c.Query("userId")
	if strings.TrimSpace(userID) == "" {
		respond.Fail(c, http.StatusBadRequest, "validation_error", "userId is required")
		return
	}
	tagUser(c, userID)

	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respond.Fail(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	list, err := h.Svc.History(c.Request.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			respond.Fail(c, http.StatusBadRequest, "validation_error", validationMessage(err))
			return
		}
		respond.Fail(c, http.StatusInternalServerError, "upstream_error", "Failed to list attempts")
		return
	}
	respond.OK(c, attemptsResponse{Success: true, Attempts: toAttemptResponses(list)})
}

func tagUser(c *gin.Context, raw string) {
	middleware.SetUserID(c, strings.ToLower(strings.TrimSpace(raw)))
}

// validationMessage strips the operation prefix from a wrapped ErrValidation.
func validationMessage(err error) string {
	msg := err.Error()
	marker := ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return "invalid request"
}
