package queue

import "encoding/json"

// MessageVersion is bumped when Message changes incompatibly.
const MessageVersion = 1

// Message is an attempt event sent to downstream consumers such as lockout
// or fraud monitoring.
type Message struct {
	AttemptID  string `json:"attemptId"`
	UserID     string `json:"userId"`
	Kind       string `json:"kind"`
	Success    bool   `json:"success"`
	Matches    int    `json:"matches"`
	Processed  int    `json:"processed"`
	OccurredAt string `json:"occurredAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
