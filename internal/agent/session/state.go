package session

import (
	"strings"
	"time"

	"case-assistant/internal/models"
)

// PendingArticle marks a session that is waiting for a yes/no before a
// knowledge article draft is generated.
type PendingArticle struct {
	RequestedAt time.Time `json:"requested_at"`
}

// State is the conversational memory of one session.
// It must only be touched while the session is held via Store.Acquire.
type State struct {
	SessionID      string           `json:"session_id"`
	CaseData       *models.CaseData `json:"case_data"`
	History        []models.QAPair  `json:"conversation_history"`
	PendingArticle *PendingArticle  `json:"pending_knowledge_article"`
	LastAccess     time.Time        `json:"last_access"`
}

func newState(id string, now time.Time) *State {
	return &State{
		SessionID:  id,
		History:    []models.QAPair{},
		LastAccess: now,
	}
}

// HasActiveCase reports whether a case has been loaded into the session.
func (s *State) HasActiveCase() bool {
	return s.CaseData != nil
}

// LoadCase makes data the active case and starts a fresh conversation.
func (s *State) LoadCase(data *models.CaseData) {
	s.CaseData = data
	s.History = []models.QAPair{}
}

// AppendQuestion records a question with an empty answer placeholder.
func (s *State) AppendQuestion(q string) models.QAPair {
	pair := models.QAPair{Q: q}
	s.History = append(s.History, pair)
	return pair
}

// RecordAnswer fills the newest open placeholder asked as question. It
// returns false when no open placeholder matches, so an answer is never
// written against a different question.
func (s *State) RecordAnswer(question, answer string) bool {
	if answer == "" {
		return false
	}
	i := s.openIndex(question)
	if i < 0 {
		return false
	}
	s.History[i].A = answer
	return true
}

// HasOpenQuestion reports whether question is still waiting for an answer.
func (s *State) HasOpenQuestion(question string) bool {
	return s.openIndex(question) >= 0
}

func (s *State) openIndex(question string) int {
	question = strings.TrimSpace(question)
	if question == "" {
		return -1
	}
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].IsOpen() && strings.TrimSpace(s.History[i].Q) == question {
			return i
		}
	}
	return -1
}

// RequestArticle sets the pending confirmation marker.
func (s *State) RequestArticle(now time.Time) {
	s.PendingArticle = &PendingArticle{RequestedAt: now}
}

// ClearArticleRequest drops the pending confirmation marker.
func (s *State) ClearArticleRequest() {
	s.PendingArticle = nil
}

// Snapshot returns a deep copy that is safe to read without holding the session.
func (s *State) Snapshot() State {
	out := State{
		SessionID:  s.SessionID,
		CaseData:   s.CaseData.Clone(),
		History:    models.CloneHistory(s.History),
		LastAccess: s.LastAccess,
	}
	if s.PendingArticle != nil {
		p := *s.PendingArticle
		out.PendingArticle = &p
	}
	return out
}
