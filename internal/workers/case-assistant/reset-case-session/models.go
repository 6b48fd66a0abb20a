package resetcasesession

import "case-assistant/internal/agent/payload"

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	SessionID string          `json:"sessionId"`
	Reset     bool            `json:"reset"`
	Response  payload.Payload `json:"response"`
}
