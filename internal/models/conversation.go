// internal/models/conversation.go
package models

// QAPair is one question/answer exchange about the active case.
// A is empty until the answer composer fills it in.
type QAPair struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// IsOpen reports whether the pair is still waiting for an answer.
func (p QAPair) IsOpen() bool {
	return p.A == ""
}

// CloneHistory copies a conversation history. The result is never nil.
func CloneHistory(history []QAPair) []QAPair {
	out := make([]QAPair, len(history))
	copy(out, history)
	return out
}
