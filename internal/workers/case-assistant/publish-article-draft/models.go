package publisharticledraft

import "case-assistant/internal/agent/payload"

type Input struct {
	SessionID   string              `json:"sessionId"`
	Title       string              `json:"title"`
	Body        string              `json:"body"`
	ArticleData payload.ArticleData `json:"articleData"`
}

type Output struct {
	Published bool     `json:"published"`
	Channels  []string `json:"channels"`
}
