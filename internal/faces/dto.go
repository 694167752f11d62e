package faces

import (
	"time"

	"face-auth-backend/internal/attempts"
)

type registerRequest struct {
	UserID string              `json:"userId"`
	Images map[string][]string `json:"images"`
}

type registerResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	ImageURLs []string `json:"imageUrls,omitempty"`
}

type checkRegisteredResponse struct {
	Success    bool `json:"success"`
	Registered bool `json:"registered"`
}

type verifyRequest struct {
	UserID string `json:"userId"`
	Image  string `json:"image"`
}

type attemptResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Success   bool      `json:"success"`
	Matches   int       `json:"matches"`
	Processed int       `json:"processed"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type attemptsResponse struct {
	Success  bool              `json:"success"`
	Attempts []attemptResponse `json:"attempts"`
}

func toAttemptResponses(list []attempts.Attempt) []attemptResponse {
	out := make([]attemptResponse, 0, len(list))
	for _, a := range list {
		out = append(out, attemptResponse{
			ID:        a.ID,
			Kind:      string(a.Kind),
			Success:   a.Success,
			Matches:   a.Matches,
			Processed: a.Processed,
			Message:   a.Message,
			CreatedAt: a.CreatedAt,
		})
	}
	return out
}
