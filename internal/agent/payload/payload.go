// Package payload defines the typed response envelope returned for every
// routed query. Each variant tells the downstream text generator what data it
// has and how to phrase the answer.
package payload

import (
	"fmt"

	"case-assistant/internal/models"
)

// Type is the wire tag of a payload variant.
type Type string

const (
	TypeClarification     Type = "clarification"
	TypeCaseResponse      Type = "case_response"
	TypeTechnicalFollowup Type = "technical_followup"
	TypeFollowupAnswer    Type = "followup_answer"
	TypeKnowledgeArticle  Type = "knowledge_article"
	TypeCaseComments      Type = "case_comments"
	TypeCaseHistory       Type = "case_history"
	TypeCaseFeed          Type = "case_feed"
	TypeInProgressCases   Type = "in_progress_cases"
	TypeCaseSearchResults Type = "case_search_results"
	TypeError             Type = "error"
	TypeOK                Type = "ok"
)

// Payload is implemented only by the variant types in this package.
type Payload interface {
	PayloadType() Type
	Session() string
	isPayload()
}

type envelope struct {
	Type      Type   `json:"type"`
	SessionID string `json:"session_id"`
}

func (e envelope) PayloadType() Type { return e.Type }
func (e envelope) Session() string   { return e.SessionID }
func (envelope) isPayload()          {}

type Clarification struct {
	envelope
	Message   string   `json:"message"`
	Questions []string `json:"questions"`
}

type CaseResponse struct {
	envelope
	CaseNumber   string           `json:"case_number"`
	CaseData     *models.CaseData `json:"case_data"`
	RawCase      *models.Case     `json:"raw_case"`
	Instructions string           `json:"instructions"`
	CaseSource   string           `json:"case_source"`
	QueryFocus   string           `json:"query_focus,omitempty"`
}

type TechnicalFollowup struct {
	envelope
	CaseData     *models.CaseData `json:"case_data"`
	UserQuestion string           `json:"user_question"`
	Instructions string           `json:"instructions"`
}

// FollowupContext is what the generator sees for a generic follow-up question.
type FollowupContext struct {
	CaseContext         *models.CaseData `json:"case_context"`
	ConversationHistory []models.QAPair  `json:"conversation_history"`
	CurrentQuestion     string           `json:"current_question"`
	Instructions        string           `json:"instructions"`
}

type FollowupAnswer struct {
	envelope
	ContextData          FollowupContext `json:"context_data"`
	StoredAsConversation bool            `json:"stored_as_conversation"`
	NewQAPair            *models.QAPair  `json:"new_qa_pair,omitempty"`
	Instructions         string          `json:"instructions"`
}

// ArticleData is the material a knowledge article draft is written from.
type ArticleData struct {
	CaseData            *models.CaseData `json:"case_data"`
	ConversationHistory []models.QAPair  `json:"conversation_history"`
	TitleHint           string           `json:"title_hint,omitempty"`
	Instructions        string           `json:"instructions"`
}

type KnowledgeArticle struct {
	envelope
	ArticleData  ArticleData `json:"article_data"`
	Instructions string      `json:"instructions"`
}

type CaseComments struct {
	envelope
	CaseID       string           `json:"case_id"`
	CaseNumber   string           `json:"case_number"`
	Items        []models.Comment `json:"items"`
	Message      string           `json:"message"`
	Instructions string           `json:"instructions,omitempty"`
}

type CaseHistory struct {
	envelope
	CaseID       string                `json:"case_id"`
	CaseNumber   string                `json:"case_number"`
	Items        []models.HistoryEntry `json:"items"`
	Message      string                `json:"message"`
	Instructions string                `json:"instructions,omitempty"`
}

type CaseFeed struct {
	envelope
	CaseID       string             `json:"case_id"`
	CaseNumber   string             `json:"case_number"`
	Items        []models.FeedEntry `json:"items"`
	Message      string             `json:"message"`
	Instructions string             `json:"instructions,omitempty"`
}

type InProgressCases struct {
	envelope
	Count   int                    `json:"count"`
	Cases   []models.CaseCandidate `json:"cases"`
	Message string                 `json:"message"`
}

type CaseSearchResults struct {
	envelope
	Candidates []models.CaseCandidate `json:"candidates"`
	Message    string                 `json:"message"`
}

// ErrorResponse reports a not-found or an upstream failure.
type ErrorResponse struct {
	envelope
	Error      string `json:"error"`
	CaseID     string `json:"case_id,omitempty"`
	CaseNumber string `json:"case_number,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

type OK struct {
	envelope
	Message string `json:"message"`
}

// RequiresAnswer reports whether the payload should be handed to the text
// generator. Clarifications, listings, errors and acknowledgements are shown
// as-is, and so is an empty sub-resource listing.
func RequiresAnswer(p Payload) bool {
	switch v := p.(type) {
	case *CaseResponse, *TechnicalFollowup, *FollowupAnswer, *KnowledgeArticle:
		return true
	case *CaseComments:
		return len(v.Items) > 0
	case *CaseHistory:
		return len(v.Items) > 0
	case *CaseFeed:
		return len(v.Items) > 0
	case *Clarification, *InProgressCases, *CaseSearchResults, *ErrorResponse, *OK:
		return false
	default:
		panic(fmt.Sprintf("payload: unhandled variant %T", p))
	}
}
