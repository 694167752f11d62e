package attempts

import "time"

// Kind distinguishes enrollment from verification attempts.
type Kind string

const (
	KindEnroll Kind = "enroll"
	KindVerify Kind = "verify"
)

// Attempt is one audited enrollment or verification outcome.
type Attempt struct {
	ID        string
	UserID    string
	Kind      Kind
	Success   bool
	Matches   int
	Processed int
	Message   string
	CreatedAt time.Time
}
