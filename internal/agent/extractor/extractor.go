// Package extractor pulls case identifiers and case numbers out of free text.
package extractor

import (
	"regexp"
	"strings"
)

// Kind classifies what was found in the text.
type Kind int

const (
	KindNone Kind = iota
	KindCaseID
	KindAmbiguousID
	KindCaseNumber
)

func (k Kind) String() string {
	switch k {
	case KindCaseID:
		return "case_id"
	case KindAmbiguousID:
		return "ambiguous_id"
	case KindCaseNumber:
		return "case_number"
	default:
		return "none"
	}
}

// CaseIDLength is the length of a full case record id.
const CaseIDLength = 18

// Identifier is the outcome of one extraction.
type Identifier struct {
	Kind  Kind
	Value string
}

var (
	caseIDPattern       = regexp.MustCompile(`\b500[0-9A-Za-z]{15}\b`)
	longTokenPattern    = regexp.MustCompile(`\b[A-Za-z0-9]{15,18}\b`)
	mediumTokenPattern  = regexp.MustCompile(`\b[A-Za-z0-9]{9,14}\b`)
	labeledNumberRegexp = regexp.MustCompile(`(?i)(?:case|casenumber)\s*[=:]?\s*(\d+)`)
	bareNumberPattern   = regexp.MustCompile(`\b(\d{5,10})\b`)
)

var (
	defaultLongStopwords   = []string{"salesforce", "casenumber"}
	defaultMediumStopwords = []string{"salesforce", "casenumber", "case", "troubleshooting"}
)

// Extractor holds the stoplists. It is safe for concurrent use.
type Extractor struct {
	longStop   map[string]struct{}
	mediumStop map[string]struct{}
}

// New returns an extractor with the default stoplists plus extra words.
func New(extraStopwords ...string) *Extractor {
	e := &Extractor{
		longStop:   make(map[string]struct{}),
		mediumStop: make(map[string]struct{}),
	}
	for _, w := range defaultLongStopwords {
		e.longStop[w] = struct{}{}
	}
	for _, w := range defaultMediumStopwords {
		e.mediumStop[w] = struct{}{}
	}
	for _, w := range extraStopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		e.longStop[w] = struct{}{}
		e.mediumStop[w] = struct{}{}
	}
	return e
}

var defaultExtractor = New()

// Extract classifies text using the default stoplists.
func Extract(text string) Identifier {
	return defaultExtractor.Extract(text)
}

// Extract returns the first identifier in text, in priority order:
// a 500-prefixed record id, then a 15-18 char token, then a 9-14 char token,
// then a labeled or bare case number.
func (e *Extractor) Extract(text string) Identifier {
	if text == "" {
		return Identifier{Kind: KindNone}
	}

	if id := caseIDPattern.FindString(text); id != "" {
		return Identifier{Kind: KindCaseID, Value: id}
	}

	if token := e.PrimaryToken(text); token != "" {
		if len(token) == CaseIDLength {
			return Identifier{Kind: KindCaseID, Value: token}
		}
		// 9-17 characters: looks like a truncated record id, never a case number.
		return Identifier{Kind: KindAmbiguousID, Value: token}
	}

	if number := CaseNumber(text); number != "" {
		return Identifier{Kind: KindCaseNumber, Value: number}
	}

	return Identifier{Kind: KindNone}
}

// PrimaryToken returns the id-like token the router keys on, or "".
func (e *Extractor) PrimaryToken(text string) string {
	if id := caseIDPattern.FindString(text); id != "" {
		return id
	}
	if token := firstToken(longTokenPattern.FindAllString(text, -1), e.longStop); token != "" {
		return token
	}
	return firstToken(mediumTokenPattern.FindAllString(text, -1), e.mediumStop)
}

// CaseNumber extracts a numeric case number. A number after "case" or
// "casenumber" wins over any bare 5-10 digit run.
func CaseNumber(text string) string {
	if m := labeledNumberRegexp.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareNumberPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func firstToken(tokens []string, stop map[string]struct{}) string {
	for _, token := range tokens {
		if isAlpha(token) {
			continue
		}
		if _, skip := stop[strings.ToLower(token)]; skip {
			continue
		}
		return token
	}
	return ""
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return s != ""
}
