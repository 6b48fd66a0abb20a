// Package router turns one free-text query plus the session's memory into a
// single payload. It is the only place that decides which variant to emit and
// how the session state moves between turns.
package router

import (
	"context"
	"sort"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"case-assistant/internal/agent/extractor"
	"case-assistant/internal/agent/payload"
	"case-assistant/internal/agent/session"
	"case-assistant/internal/common/logger"
	"case-assistant/internal/common/metrics"
	"case-assistant/internal/models"
)

const (
	DefaultSearchLimit = 10
	DefaultListLimit   = 20

	minSearchLength = 5
)

// CaseRepository is the data source the router reads cases from.
// Empty results are (nil, nil) or an empty slice; failures are non-nil errors.
type CaseRepository interface {
	FetchByNumber(ctx context.Context, number string) (*models.Case, error)
	FetchByID(ctx context.Context, id string) (*models.Case, error)
	Search(ctx context.Context, text string, limit int) ([]models.Case, error)
	ListByStatus(ctx context.Context, statuses []string, limit int) ([]models.Case, error)
	Comments(ctx context.Context, caseID string) ([]models.Comment, error)
	History(ctx context.Context, caseID string) ([]models.HistoryEntry, error)
	Feed(ctx context.Context, caseID string) ([]models.FeedEntry, error)
	Name() string
}

// Options tunes a Router. Zero values fall back to the defaults.
type Options struct {
	ExtraStopwords []string
	SearchLimit    int
	ListLimit      int
	Now            func() time.Time
}

type Router struct {
	repo        CaseRepository
	store       *session.Store
	extractor   *extractor.Extractor
	logger      logger.Logger
	tracer      trace.Tracer
	searchLimit int
	listLimit   int
	now         func() time.Time
}

func New(repo CaseRepository, store *session.Store, log logger.Logger, opts Options) *Router {
	r := &Router{
		repo:        repo,
		store:       store,
		extractor:   extractor.New(opts.ExtraStopwords...),
		logger:      log.WithFields(map[string]interface{}{"component": "router"}),
		tracer:      otel.Tracer("case-assistant/router"),
		searchLimit: opts.SearchLimit,
		listLimit:   opts.ListLimit,
		now:         opts.Now,
	}
	if r.searchLimit <= 0 || r.searchLimit > payload.MaxCandidates {
		r.searchLimit = DefaultSearchLimit
	}
	if r.listLimit <= 0 {
		r.listLimit = DefaultListLimit
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Handle routes one query. It always returns a payload; repository failures
// become error payloads.
func (r *Router) Handle(ctx context.Context, query, sessionID string) payload.Payload {
	start := time.Now()
	sessionID = session.NormalizeID(sessionID)

	ctx, span := r.tracer.Start(ctx, "router.Handle", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	st, release := r.store.Acquire(sessionID)
	defer release()

	p, in := r.route(ctx, st, newTurn(query))

	elapsed := time.Since(start)
	metrics.RouterTurns.WithLabelValues(string(in), string(p.PayloadType())).Inc()
	metrics.RouterTurnDuration.WithLabelValues(string(in)).Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.String("router.intent", string(in)),
		attribute.String("router.payload_type", string(p.PayloadType())),
	)

	r.logger.Info("Routed query", map[string]interface{}{
		"sessionId":   sessionID,
		"intent":      string(in),
		"payloadType": string(p.PayloadType()),
		"hasCase":     st.HasActiveCase(),
		"historyLen":  len(st.History),
		"durationMs":  elapsed.Milliseconds(),
	})
	return p
}

// Reset forgets everything about the session.
func (r *Router) Reset(sessionID string) payload.Payload {
	sessionID = session.NormalizeID(sessionID)
	r.store.Reset(sessionID)
	r.logger.Info("Session reset", map[string]interface{}{"sessionId": sessionID})
	return payload.NewOK(sessionID, payload.MessageSessionReset)
}

// RecordAnswer stores a generated answer against the open placeholder for
// question. Nothing is written when that question is not waiting.
func (r *Router) RecordAnswer(sessionID, question, answer string) bool {
	st, release := r.store.Acquire(sessionID)
	defer release()
	return st.RecordAnswer(question, answer)
}

// Session returns a snapshot of the session's state.
func (r *Router) Session(sessionID string) session.State {
	return r.store.Get(sessionID)
}

func (r *Router) route(ctx context.Context, st *session.State, t turn) (payload.Payload, intent) {
	sid := st.SessionID

	if st.PendingArticle != nil {
		return r.resolveArticleConfirmation(st, t)
	}

	if t.wantsArticle() {
		if !st.HasActiveCase() {
			return payload.ArticleNeedsCase(sid), intentArticleRequest
		}
		st.RequestArticle(r.now())
		return payload.RequestArticleConfirmation(sid), intentArticleRequest
	}

	id := r.extractor.Extract(t.text)
	r.logger.Debug("Extracted identifier", map[string]interface{}{
		"sessionId": sid,
		"kind":      id.Kind.String(),
		"value":     id.Value,
	})

	switch id.Kind {
	case extractor.KindAmbiguousID:
		return payload.AmbiguousID(sid), intentAmbiguousID
	case extractor.KindCaseID, extractor.KindCaseNumber:
		return r.lookup(ctx, st, t, id)
	}

	if t.wantsInProgressListing() {
		return r.listInProgress(ctx, sid), intentInProgress
	}

	if st.HasActiveCase() {
		return r.followup(st, t)
	}

	if utf8.RuneCountInString(t.text) >= minSearchLength {
		if p := r.search(ctx, sid, t.text); p != nil {
			return p, intentSearch
		}
	}

	return payload.NeedMoreDetail(sid), intentFallback
}

func (r *Router) resolveArticleConfirmation(st *session.State, t turn) (payload.Payload, intent) {
	sid := st.SessionID
	switch parseConfirmation(t.text) {
	case confirmYes:
		article := payload.NewArticleData(st.CaseData.Clone(), st.History)
		st.ClearArticleRequest()
		return payload.NewKnowledgeArticle(sid, article), intentArticleConfirmed
	case confirmNo:
		st.ClearArticleRequest()
		return payload.NewOK(sid, payload.MessageArticleCancelled), intentArticleCancelled
	default:
		return payload.ConfirmArticle(sid), intentArticlePending
	}
}

func (r *Router) lookup(ctx context.Context, st *session.State, t turn, id extractor.Identifier) (payload.Payload, intent) {
	sid := st.SessionID
	var caseID, caseNumber string
	if id.Kind == extractor.KindCaseID {
		caseID = id.Value
	} else {
		caseNumber = id.Value
	}

	if sub := t.subResource(); sub != subNone {
		return r.subResource(ctx, st, sub, caseID, caseNumber), sub.intent()
	}

	var (
		c   *models.Case
		err error
	)
	if caseID != "" {
		c, err = r.repo.FetchByID(ctx, caseID)
	} else {
		c, err = r.repo.FetchByNumber(ctx, caseNumber)
	}
	if err != nil {
		r.logRepositoryFailure(sid, "fetch_case", err)
		return payload.Upstream(sid, caseID, caseNumber, err), intentCaseLookup
	}
	if c == nil {
		return payload.NotFound(sid, caseID, caseNumber), intentCaseLookup
	}

	data := models.NewCaseData(c)
	st.LoadCase(data)
	return payload.NewCaseResponse(sid, c, data.Clone(), r.repo.Name(), t.focus()), intentCaseLookup
}

// subResource fetches comments, history or feed. A case number has to be
// resolved to a record id first, which also makes that case the active one.
func (r *Router) subResource(ctx context.Context, st *session.State, sub subResource, caseID, caseNumber string) payload.Payload {
	sid := st.SessionID

	if caseID == "" {
		c, err := r.repo.FetchByNumber(ctx, caseNumber)
		if err != nil {
			r.logRepositoryFailure(sid, "fetch_case", err)
			return payload.Upstream(sid, caseID, caseNumber, err)
		}
		if c == nil {
			return payload.NotFound(sid, caseID, caseNumber)
		}
		st.LoadCase(models.NewCaseData(c))
		caseID = c.ID
	} else {
		// An unknown id still gets its (empty) sub-resource; a known one
		// becomes the active case just like the number path.
		c, err := r.repo.FetchByID(ctx, caseID)
		if err != nil {
			r.logRepositoryFailure(sid, "fetch_case", err)
			return payload.Upstream(sid, caseID, caseNumber, err)
		}
		if c != nil {
			st.LoadCase(models.NewCaseData(c))
			if caseNumber == "" {
				caseNumber = c.CaseNumber
			}
		}
	}

	switch sub {
	case subComments:
		items, err := r.repo.Comments(ctx, caseID)
		if err != nil {
			r.logRepositoryFailure(sid, "comments", err)
			return payload.Upstream(sid, caseID, caseNumber, err)
		}
		return payload.NewCaseComments(sid, caseID, caseNumber, items)
	case subHistory:
		items, err := r.repo.History(ctx, caseID)
		if err != nil {
			r.logRepositoryFailure(sid, "history", err)
			return payload.Upstream(sid, caseID, caseNumber, err)
		}
		return payload.NewCaseHistory(sid, caseID, caseNumber, items)
	default:
		items, err := r.repo.Feed(ctx, caseID)
		if err != nil {
			r.logRepositoryFailure(sid, "feed", err)
			return payload.Upstream(sid, caseID, caseNumber, err)
		}
		return payload.NewCaseFeed(sid, caseID, caseNumber, items)
	}
}

func (r *Router) listInProgress(ctx context.Context, sid string) payload.Payload {
	cases, err := r.repo.ListByStatus(ctx, []string{models.CaseStatusWorking, models.CaseStatusInProgress}, r.listLimit)
	if err != nil {
		r.logRepositoryFailure(sid, "list_by_status", err)
		return payload.Upstream(sid, "", "", err)
	}

	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].LastModifiedDate.After(cases[j].LastModifiedDate)
	})
	if len(cases) > r.listLimit {
		cases = cases[:r.listLimit]
	}

	candidates := make([]models.CaseCandidate, 0, len(cases))
	for _, c := range cases {
		candidates = append(candidates, models.NewCandidate(c, false))
	}
	return payload.NewInProgressCases(sid, candidates)
}

// followup appends an open question for the active case. The generic variant
// carries the history as it was before this question.
func (r *Router) followup(st *session.State, t turn) (payload.Payload, intent) {
	sid := st.SessionID

	if t.isTechnicalFollowup() {
		st.AppendQuestion(t.text)
		return payload.NewTechnicalFollowup(sid, st.CaseData.Clone(), t.text), intentTechnicalFollowup
	}

	fctx := payload.NewFollowupContext(st.CaseData.Clone(), st.History, t.text)
	qa := st.AppendQuestion(t.text)
	return payload.NewFollowupAnswer(sid, fctx, true, &qa), intentFollowup
}

// search returns nil when nothing matched so routing can fall through.
func (r *Router) search(ctx context.Context, sid, text string) payload.Payload {
	cases, err := r.repo.Search(ctx, text, r.searchLimit)
	if err != nil {
		r.logRepositoryFailure(sid, "search", err)
		return payload.Upstream(sid, "", "", err)
	}
	if len(cases) == 0 {
		return nil
	}

	candidates := make([]models.CaseCandidate, 0, len(cases))
	for _, c := range cases {
		candidates = append(candidates, models.NewCandidate(c, true))
	}
	return payload.NewCaseSearchResults(sid, candidates)
}

func (r *Router) logRepositoryFailure(sid, op string, err error) {
	r.logger.WithError(err).Warn("Case repository call failed", map[string]interface{}{
		"sessionId":  sid,
		"operation":  op,
		"repository": r.repo.Name(),
	})
}
