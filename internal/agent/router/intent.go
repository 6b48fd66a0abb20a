package router

import (
	"strings"

	"case-assistant/internal/agent/payload"
)

type intent string

const (
	intentArticlePending    intent = "article_pending"
	intentArticleConfirmed  intent = "article_confirmed"
	intentArticleCancelled  intent = "article_cancelled"
	intentArticleRequest    intent = "article_request"
	intentAmbiguousID       intent = "ambiguous_id"
	intentCaseLookup        intent = "case_lookup"
	intentComments          intent = "case_comments"
	intentHistory           intent = "case_history"
	intentFeed              intent = "case_feed"
	intentInProgress        intent = "in_progress_listing"
	intentTechnicalFollowup intent = "technical_followup"
	intentFollowup          intent = "followup"
	intentSearch            intent = "search"
	intentFallback          intent = "fallback"
)

type subResource int

const (
	subNone subResource = iota
	subComments
	subHistory
	subFeed
)

func (s subResource) intent() intent {
	switch s {
	case subComments:
		return intentComments
	case subHistory:
		return intentHistory
	default:
		return intentFeed
	}
}

var technicalVocabulary = []string{
	"status", "done", "resolved", "fix", "implementation",
	"changes", "monitoring", "closure", "complete",
}

// turn is one query as seen by the classifier.
type turn struct {
	text  string
	lower string
}

func newTurn(query string) turn {
	text := strings.TrimSpace(query)
	return turn{text: text, lower: strings.ToLower(text)}
}

func (t turn) has(s string) bool {
	return strings.Contains(t.lower, s)
}

// wantsArticle matches "kb" anywhere in the text, so "kbd" counts too.
func (t turn) wantsArticle() bool {
	return t.has("knowledge article") || t.has("kb") || t.has("convert")
}

func (t turn) wantsInProgressListing() bool {
	return (t.has("in progress") || t.has("in-progress") || t.has("working")) && t.has("case")
}

// subResource picks comments over history over feed when several are named.
func (t turn) subResource() subResource {
	switch {
	case t.has("comment"):
		return subComments
	case t.has("history"):
		return subHistory
	case t.has("feed"):
		return subFeed
	default:
		return subNone
	}
}

func (t turn) focus() string {
	if t.has("status") && !t.has("resolve") && !t.has("summary") {
		return payload.FocusStatus
	}
	return ""
}

func (t turn) isTechnicalFollowup() bool {
	if t.has("follow") && t.has("up") {
		return true
	}
	for _, w := range technicalVocabulary {
		if t.has(w) {
			return true
		}
	}
	return false
}

type confirmation int

const (
	confirmUnresolved confirmation = iota
	confirmYes
	confirmNo
)

var (
	yesReplies = map[string]struct{}{
		"yes": {}, "y": {}, "confirm": {}, "confirmed": {},
		"ok": {}, "okay": {}, "please do": {}, "go ahead": {},
	}
	noReplies = map[string]struct{}{
		"no": {}, "n": {}, "cancel": {}, "stop": {}, "don't": {}, "do not": {},
	}
)

// parseConfirmation accepts only whole-message replies, ignoring case,
// surrounding space and trailing punctuation.
func parseConfirmation(text string) confirmation {
	q := strings.ToLower(strings.TrimSpace(text))
	q = strings.TrimSpace(strings.TrimRight(q, ".!"))
	q = strings.ReplaceAll(q, "’", "'")

	if _, ok := yesReplies[q]; ok {
		return confirmYes
	}
	if _, ok := noReplies[q]; ok {
		return confirmNo
	}
	return confirmUnresolved
}
