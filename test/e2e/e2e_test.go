// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-assistant/internal/agent/router"
	"case-assistant/internal/agent/session"
	"case-assistant/internal/common/logger"
	"case-assistant/internal/models"
	"case-assistant/internal/repository"
	"case-assistant/internal/transport/httpapi"
	composecaseanswer "case-assistant/internal/workers/case-assistant/compose-case-answer"
	resetcasesession "case-assistant/internal/workers/case-assistant/reset-case-session"
)

const sessionID = "e2e-session"

// memoryStore is a CaseStore backed by a fixed set of cases.
type memoryStore struct {
	mu       sync.Mutex
	cases    []models.Case
	comments map[string][]models.Comment
	fetches  int
}

func (m *memoryStore) FetchByNumber(_ context.Context, number string) (*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	for i := range m.cases {
		if m.cases[i].CaseNumber == number {
			c := m.cases[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) FetchByID(_ context.Context, id string) (*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	for i := range m.cases {
		if m.cases[i].ID == id {
			c := m.cases[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) Search(context.Context, string, int) ([]models.Case, error) {
	return nil, nil
}

func (m *memoryStore) ListByStatus(_ context.Context, statuses []string, limit int) ([]models.Case, error) {
	var out []models.Case
	for _, c := range m.cases {
		for _, s := range statuses {
			if c.Status == s {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (m *memoryStore) Comments(_ context.Context, caseID string) ([]models.Comment, error) {
	return m.comments[caseID], nil
}

func (m *memoryStore) History(context.Context, string) ([]models.HistoryEntry, error) {
	return nil, nil
}

func (m *memoryStore) Feed(context.Context, string) ([]models.FeedEntry, error) {
	return nil, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

type stack struct {
	store   *memoryStore
	router  *router.Router
	api     *httpapi.Server
	compose *composecaseanswer.Handler
	reset   *resetcasesession.Handler
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := &memoryStore{
		cases: []models.Case{
			{
				ID: "500000000000000001", CaseNumber: "00012345",
				Subject: "Login fails after password reset", Status: "Working",
				Priority: "High", CreatedDate: now.Add(-48 * time.Hour), LastModifiedDate: now,
			},
			{
				ID: "500000000000000002", CaseNumber: "00012346",
				Subject: "Export times out", Status: "In Progress",
				CreatedDate: now.Add(-24 * time.Hour), LastModifiedDate: now.Add(-time.Hour),
			},
		},
		comments: map[string][]models.Comment{
			"500000000000000001": {{CommentBody: "Reproduced on staging", CreatedDate: now}},
		},
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := repository.New(store, log, repository.Options{
		Cache: repository.NewCaseCache(rdb, time.Minute, "e2e", log),
	})
	sessions := session.NewStore(session.WithLogger(log))
	r := router.New(repo, sessions, log, router.Options{})

	genAI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"text":       "The fix is deployed and being monitored.",
			"confidence": 0.8,
			"sources":    []string{"case"},
		})
	}))
	t.Cleanup(genAI.Close)

	compose := composecaseanswer.NewHandler(&composecaseanswer.Config{
		Enabled:      true,
		Timeout:      2 * time.Second,
		MaxRetries:   1,
		GenAIBaseURL: genAI.URL,
		MaxTokens:    200,
	}, r, nil, log)

	return &stack{
		store:   store,
		router:  r,
		api:     httpapi.New(r, repo, log, httpapi.Options{}),
		compose: compose,
		reset:   resetcasesession.NewHandler(&resetcasesession.Config{Enabled: true}, r, nil, log),
	}
}

func (s *stack) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.api.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *stack) ask(t *testing.T, query string) map[string]interface{} {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/v1/query", map[string]string{
		"query":      query,
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusOK, status, body)
	return body
}

// ==========================
// Conversation Flow
// ==========================

func TestConversation_LookupFollowupAnswerArticle(t *testing.T) {
	s := newStack(t)

	p := s.ask(t, "show me case 00012345")
	assert.Equal(t, "case_response", p["type"])
	assert.Equal(t, "00012345", p["case_number"])

	// the second lookup is served from the cache
	p = s.ask(t, "case 00012345 please")
	assert.Equal(t, "case_response", p["type"])
	assert.Equal(t, 1, s.store.fetchCount())

	p = s.ask(t, "what is the status of the fix?")
	require.Equal(t, "technical_followup", p["type"])
	assert.Equal(t, "what is the status of the fix?", p["user_question"])

	out, err := s.compose.Execute(context.Background(), &composecaseanswer.Input{
		SessionID: sessionID,
		Response:  p,
	})
	require.NoError(t, err)
	assert.True(t, out.Recorded)

	status, st := s.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, status)
	history := st["conversation_history"].([]interface{})
	require.Len(t, history, 1)
	assert.Equal(t, "The fix is deployed and being monitored.", history[0].(map[string]interface{})["a"])

	p = s.ask(t, "can you convert this into a knowledge article")
	assert.Equal(t, "clarification", p["type"])

	p = s.ask(t, "Yes!")
	require.Equal(t, "knowledge_article", p["type"])
	article := p["article_data"].(map[string]interface{})
	assert.Len(t, article["conversation_history"], 1)
}

func TestConversation_SubResourcesAndListing(t *testing.T) {
	s := newStack(t)

	p := s.ask(t, "show comments for case 00012345")
	require.Equal(t, "case_comments", p["type"])
	assert.Len(t, p["items"], 1)

	p = s.ask(t, "which cases are in progress right now")
	require.Equal(t, "in_progress_cases", p["type"])
	assert.EqualValues(t, 2, p["count"])

	p = s.ask(t, "case 99999")
	assert.Equal(t, "error", p["type"])
}

func TestConversation_ResetForgetsCase(t *testing.T) {
	s := newStack(t)

	s.ask(t, "case 00012345")
	p := s.ask(t, "any update on the monitoring?")
	require.Equal(t, "technical_followup", p["type"])

	out := s.reset.Execute(&resetcasesession.Input{SessionID: sessionID})
	assert.True(t, out.Reset)

	_, st := s.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID, nil)
	assert.Nil(t, st["case_data"])

	p = s.ask(t, "convert to kb")
	assert.Equal(t, "clarification", p["type"])

	_, err := s.compose.Execute(context.Background(), &composecaseanswer.Input{
		SessionID: sessionID,
		Response:  map[string]interface{}{"type": "followup_answer"},
	})
	require.Error(t, err)
}

func TestRecordAnswerWithoutQuestion(t *testing.T) {
	s := newStack(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/answer",
		map[string]string{"question": "who owns it?", "answer": "nothing asked"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NO_OPEN_QUESTION", body["error"])
}

func TestRepositoryHealth(t *testing.T) {
	s := newStack(t)

	status, body := s.do(t, http.MethodGet, "/api/v1/health/repository", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["healthy"])
	deps := body["dependencies"].(map[string]interface{})
	assert.Contains(t, deps, "postgres")
	assert.Contains(t, deps, "redis")
}
