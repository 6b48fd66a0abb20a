package askcasequery

import "case-assistant/internal/agent/payload"

type Input struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

// Output is merged into the process variables. Response keeps its own
// snake_case wire shape so downstream tasks can pass it on unchanged.
type Output struct {
	SessionID      string          `json:"sessionId"`
	Response       payload.Payload `json:"response"`
	ResponseType   string          `json:"responseType"`
	RequiresAnswer bool            `json:"requiresAnswer"`
}
