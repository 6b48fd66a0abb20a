package composecaseanswer

// Input carries the payload produced by ask-case-query. Response is kept
// as a generic object since it can be any answerable variant.
type Input struct {
	SessionID string                 `json:"sessionId"`
	Question  string                 `json:"question"`
	Response  map[string]interface{} `json:"response"`
}

type Output struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
	Recorded   bool     `json:"recorded"`
}

type generateRequest struct {
	Prompt      string                 `json:"prompt"`
	Context     map[string]interface{} `json:"context"`
	MaxTokens   int                    `json:"max_tokens"`
	Temperature float64                `json:"temperature"`
}

type generateResponse struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}
