package payload

import (
	"fmt"

	apperrors "case-assistant/internal/common/errors"
	"case-assistant/internal/models"
)

// MaxCandidates caps the search results offered to the user.
const MaxCandidates = 10

const (
	MessageCaseNotFound     = "Case not found in the case repository"
	MessageRepositoryFailed = "Case repository query failed. Check repository credentials / connection."
	MessageArticleCancelled = "Okay, knowledge article creation cancelled."
	MessageSessionReset     = "Session memory cleared."
)

func newEnvelope(t Type, sessionID string) envelope {
	return envelope{Type: t, SessionID: sessionID}
}

// ==========================
// Clarifications
// ==========================

func NewClarification(sessionID, message string, questions ...string) *Clarification {
	if questions == nil {
		questions = []string{}
	}
	return &Clarification{
		envelope:  newEnvelope(TypeClarification, sessionID),
		Message:   message,
		Questions: questions,
	}
}

// ConfirmArticle is re-sent while a knowledge article confirmation is outstanding.
func ConfirmArticle(sessionID string) *Clarification {
	return NewClarification(sessionID,
		"Do you want me to generate a knowledge article draft from the validated solution?",
		"Reply 'confirm' to generate it, or 'cancel' to skip.",
	)
}

// RequestArticleConfirmation is the first prompt after a knowledge article request.
func RequestArticleConfirmation(sessionID string) *Clarification {
	return NewClarification(sessionID,
		"Before I create the knowledge article, please confirm the solution is validated.",
		"Reply 'confirm' to generate the knowledge article draft, or 'cancel'.",
	)
}

// ArticleNeedsCase is returned when an article is requested before any case was summarized.
func ArticleNeedsCase(sessionID string) *Clarification {
	return NewClarification(sessionID,
		"I can create a knowledge article after we summarize a case and validate the solution.",
		"Share the CaseNumber of the case.",
		"Confirm the solution is validated, then I'll convert it into a knowledge article.",
	)
}

// AmbiguousID asks for a full 18-character id or a case number.
func AmbiguousID(sessionID string) *Clarification {
	return NewClarification(sessionID,
		"That looks like a Case Id but it is not 18 characters long. Please enter the correct 18-character Case Id, or provide the numeric CaseNumber instead.",
		"Paste the full 18-character Case Id.",
		"Or share the CaseNumber.",
	)
}

// NeedMoreDetail is the fallback when nothing in the query could be acted on.
func NeedMoreDetail(sessionID string) *Clarification {
	return NewClarification(sessionID,
		"I can help, but I need a case number or enough details to search.",
		"Share the CaseNumber (for example, 00001163).",
		"Or describe the issue (subject keywords, error message, order number) and I'll search cases.",
	)
}

// ==========================
// Case answers
// ==========================

func NewCaseResponse(sessionID string, c *models.Case, data *models.CaseData, source, focus string) *CaseResponse {
	return &CaseResponse{
		envelope:     newEnvelope(TypeCaseResponse, sessionID),
		CaseNumber:   c.CaseNumber,
		CaseData:     data,
		RawCase:      c,
		Instructions: caseResponseInstructions,
		CaseSource:   source,
		QueryFocus:   focus,
	}
}

func NewTechnicalFollowup(sessionID string, data *models.CaseData, question string) *TechnicalFollowup {
	return &TechnicalFollowup{
		envelope:     newEnvelope(TypeTechnicalFollowup, sessionID),
		CaseData:     data,
		UserQuestion: question,
		Instructions: technicalFollowupInstructions,
	}
}

// NewFollowupContext copies history so later turns cannot change an emitted payload.
func NewFollowupContext(data *models.CaseData, history []models.QAPair, question string) FollowupContext {
	return FollowupContext{
		CaseContext:         data,
		ConversationHistory: models.CloneHistory(history),
		CurrentQuestion:     question,
		Instructions:        followupContextInstructions,
	}
}

func NewFollowupAnswer(sessionID string, ctx FollowupContext, stored bool, qa *models.QAPair) *FollowupAnswer {
	return &FollowupAnswer{
		envelope:             newEnvelope(TypeFollowupAnswer, sessionID),
		ContextData:          ctx,
		StoredAsConversation: stored,
		NewQAPair:            qa,
		Instructions:         followupAnswerInstructions,
	}
}

// NewArticleData uses the case subject as the title hint.
func NewArticleData(data *models.CaseData, history []models.QAPair) ArticleData {
	ad := ArticleData{
		CaseData:            data,
		ConversationHistory: models.CloneHistory(history),
		Instructions:        knowledgeArticleInstructions,
	}
	if data != nil {
		ad.TitleHint = data.Subject
	}
	return ad
}

func NewKnowledgeArticle(sessionID string, article ArticleData) *KnowledgeArticle {
	return &KnowledgeArticle{
		envelope:     newEnvelope(TypeKnowledgeArticle, sessionID),
		ArticleData:  article,
		Instructions: knowledgeArticleInstructions,
	}
}

// ==========================
// Sub-resources
// ==========================

func caseRef(caseID, caseNumber string) string {
	if caseNumber != "" {
		return caseNumber
	}
	return caseID
}

func subResourceMessage(singular, plural string, n int, caseID, caseNumber string) string {
	ref := caseRef(caseID, caseNumber)
	switch n {
	case 0:
		return fmt.Sprintf("No %s found for case %s.", plural, ref)
	case 1:
		return fmt.Sprintf("Found 1 %s for case %s.", singular, ref)
	default:
		return fmt.Sprintf("Found %d %s for case %s.", n, plural, ref)
	}
}

func NewCaseComments(sessionID, caseID, caseNumber string, items []models.Comment) *CaseComments {
	if items == nil {
		items = []models.Comment{}
	}
	p := &CaseComments{
		envelope:   newEnvelope(TypeCaseComments, sessionID),
		CaseID:     caseID,
		CaseNumber: caseNumber,
		Items:      items,
		Message:    subResourceMessage("comment", "comments", len(items), caseID, caseNumber),
	}
	if len(items) > 0 {
		p.Instructions = withFocus(caseResponseInstructions, FocusComments)
	}
	return p
}

func NewCaseHistory(sessionID, caseID, caseNumber string, items []models.HistoryEntry) *CaseHistory {
	if items == nil {
		items = []models.HistoryEntry{}
	}
	p := &CaseHistory{
		envelope:   newEnvelope(TypeCaseHistory, sessionID),
		CaseID:     caseID,
		CaseNumber: caseNumber,
		Items:      items,
		Message:    subResourceMessage("history entry", "history entries", len(items), caseID, caseNumber),
	}
	if len(items) > 0 {
		p.Instructions = withFocus(caseResponseInstructions, FocusHistory)
	}
	return p
}

func NewCaseFeed(sessionID, caseID, caseNumber string, items []models.FeedEntry) *CaseFeed {
	if items == nil {
		items = []models.FeedEntry{}
	}
	p := &CaseFeed{
		envelope:   newEnvelope(TypeCaseFeed, sessionID),
		CaseID:     caseID,
		CaseNumber: caseNumber,
		Items:      items,
		Message:    subResourceMessage("feed item", "feed items", len(items), caseID, caseNumber),
	}
	if len(items) > 0 {
		p.Instructions = withFocus(caseResponseInstructions, FocusFeed)
	}
	return p
}

// ==========================
// Listings
// ==========================

func NewInProgressCases(sessionID string, cases []models.CaseCandidate) *InProgressCases {
	if cases == nil {
		cases = []models.CaseCandidate{}
	}
	msg := "Reply with a CaseNumber to summarize any of these cases."
	if len(cases) == 0 {
		msg = "There are no cases in progress right now."
	}
	return &InProgressCases{
		envelope: newEnvelope(TypeInProgressCases, sessionID),
		Count:    len(cases),
		Cases:    cases,
		Message:  msg,
	}
}

func NewCaseSearchResults(sessionID string, candidates []models.CaseCandidate) *CaseSearchResults {
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	return &CaseSearchResults{
		envelope:   newEnvelope(TypeCaseSearchResults, sessionID),
		Candidates: candidates,
		Message:    "I found matching cases. Reply with the CaseNumber you want me to summarize.",
	}
}

// ==========================
// Errors and acknowledgements
// ==========================

func NotFound(sessionID, caseID, caseNumber string) *ErrorResponse {
	return &ErrorResponse{
		envelope:   newEnvelope(TypeError, sessionID),
		Error:      MessageCaseNotFound,
		CaseID:     caseID,
		CaseNumber: caseNumber,
	}
}

// Upstream reports a repository failure. Detail carries "<CODE>: <message>".
func Upstream(sessionID, caseID, caseNumber string, err error) *ErrorResponse {
	return &ErrorResponse{
		envelope:   newEnvelope(TypeError, sessionID),
		Error:      MessageRepositoryFailed,
		CaseID:     caseID,
		CaseNumber: caseNumber,
		Detail:     failureDetail(err),
	}
}

func failureDetail(err error) string {
	if err == nil {
		return ""
	}
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Message)
	}
	return fmt.Sprintf("%s: %s", apperrors.CodeOf(err), err.Error())
}

func NewOK(sessionID, message string) *OK {
	return &OK{
		envelope: newEnvelope(TypeOK, sessionID),
		Message:  message,
	}
}
