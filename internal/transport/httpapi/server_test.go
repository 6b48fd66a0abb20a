package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-assistant/internal/agent/payload"
	"case-assistant/internal/agent/session"
	"case-assistant/internal/common/logger"
	"case-assistant/internal/repository"
)

type fakeRouter struct {
	handleFn func(ctx context.Context, query, sessionID string) payload.Payload
	answers  map[string]string
	open     map[string]string
	seen     []string
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{answers: map[string]string{}, open: map[string]string{}}
}

func (f *fakeRouter) Handle(ctx context.Context, query, sessionID string) payload.Payload {
	if f.handleFn != nil {
		return f.handleFn(ctx, query, sessionID)
	}
	return payload.NeedMoreDetail(session.NormalizeID(sessionID))
}

func (f *fakeRouter) Reset(sessionID string) payload.Payload {
	f.seen = append(f.seen, sessionID)
	return payload.NewOK(session.NormalizeID(sessionID), payload.MessageSessionReset)
}

func (f *fakeRouter) RecordAnswer(sessionID, question, answer string) bool {
	f.seen = append(f.seen, sessionID)
	if q, ok := f.open[sessionID]; !ok || q != question {
		return false
	}
	f.answers[sessionID] = answer
	delete(f.open, sessionID)
	return true
}

func (f *fakeRouter) Session(sessionID string) session.State {
	f.seen = append(f.seen, sessionID)
	return session.State{SessionID: session.NormalizeID(sessionID)}
}

type fakeHealth struct {
	report repository.HealthReport
}

func (f fakeHealth) Health(context.Context) repository.HealthReport {
	return f.report
}

func newTestServer(t *testing.T, router Router, health HealthChecker, opts Options) *Server {
	t.Helper()
	return New(router, health, logger.NewTestLogger(t), opts)
}

func do(t *testing.T, s *Server, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

// ==========================
// Query
// ==========================

func TestQuery(t *testing.T) {
	router := newFakeRouter()
	router.handleFn = func(ctx context.Context, query, sessionID string) payload.Payload {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		assert.Equal(t, "status of 00001234", query)
		return payload.NotFound(sessionID, "", "00001234")
	}
	s := newTestServer(t, router, fakeHealth{}, Options{})

	resp, body := do(t, s, http.MethodPost, "/api/v1/query", map[string]string{
		"query":      "status of 00001234",
		"session_id": "s-1",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(headerRequestID))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, "s-1", got["session_id"])
	assert.Equal(t, payload.MessageCaseNotFound, got["error"])
}

func TestQuery_BadRequests(t *testing.T) {
	s := newTestServer(t, newFakeRouter(), fakeHealth{}, Options{})

	tests := []struct {
		name string
		body interface{}
	}{
		{"invalid json", "{not json"},
		{"missing query", map[string]string{"session_id": "s-1"}},
		{"empty query", map[string]string{"query": ""}},
		{"session id has wrong type", map[string]interface{}{"query": "hello", "session_id": 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, s, http.MethodPost, "/api/v1/query", tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var got errorBody
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, "INPUT_VALIDATION_FAILED", got.Error)
			assert.NotEmpty(t, got.RequestID)
		})
	}
}

func TestQuery_BodyLimit(t *testing.T) {
	s := newTestServer(t, newFakeRouter(), fakeHealth{}, Options{BodyLimit: 32})

	resp, _ := do(t, s, http.MethodPost, "/api/v1/query", map[string]string{
		"query": "this query is far longer than thirty-two bytes",
	})

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRequestID_IsEchoed(t *testing.T) {
	s := newTestServer(t, newFakeRouter(), fakeHealth{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "req-42")
	resp, err := s.App().Test(req, -1)

	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header.Get(headerRequestID))
}

// ==========================
// Sessions
// ==========================

func TestSessions(t *testing.T) {
	router := newFakeRouter()
	router.open["s-1"] = "who owns it?"
	s := newTestServer(t, router, fakeHealth{}, Options{})

	t.Run("reset returns an ok payload", func(t *testing.T) {
		resp, body := do(t, s, http.MethodDelete, "/api/v1/sessions/s-1", nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "ok", got["type"])
		assert.Equal(t, payload.MessageSessionReset, got["message"])
	})

	t.Run("snapshot", func(t *testing.T) {
		resp, body := do(t, s, http.MethodGet, "/api/v1/sessions/s-1", nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "s-1", got["session_id"])
	})

	t.Run("answer for a question that is not waiting", func(t *testing.T) {
		resp, _ := do(t, s, http.MethodPost, "/api/v1/sessions/s-1/answer", map[string]string{
			"question": "is it fixed?",
			"answer":   "No.",
		})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Empty(t, router.answers["s-1"])
	})

	t.Run("answer fills the open question", func(t *testing.T) {
		resp, _ := do(t, s, http.MethodPost, "/api/v1/sessions/s-1/answer", map[string]string{
			"question": "who owns it?",
			"answer":   "Alex.",
		})

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "Alex.", router.answers["s-1"])
	})

	t.Run("answer without an open question", func(t *testing.T) {
		resp, body := do(t, s, http.MethodPost, "/api/v1/sessions/s-1/answer", map[string]string{
			"question": "who owns it?",
			"answer":   "again",
		})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var got errorBody
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "NO_OPEN_QUESTION", got.Error)
	})

	t.Run("empty answer is rejected", func(t *testing.T) {
		resp, _ := do(t, s, http.MethodPost, "/api/v1/sessions/s-1/answer", map[string]string{
			"question": "who owns it?",
			"answer":   "",
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("answer without a question is rejected", func(t *testing.T) {
		resp, _ := do(t, s, http.MethodPost, "/api/v1/sessions/s-1/answer", map[string]string{"answer": "Alex."})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSessions_IDOutlivesRequest(t *testing.T) {
	router := newFakeRouter()
	s := newTestServer(t, router, fakeHealth{}, Options{})

	do(t, s, http.MethodGet, "/api/v1/sessions/aaaa", nil)
	do(t, s, http.MethodDelete, "/api/v1/sessions/bbbb", nil)
	do(t, s, http.MethodPost, "/api/v1/sessions/cccc/answer", map[string]string{
		"question": "who owns it?",
		"answer":   "Alex.",
	})
	do(t, s, http.MethodGet, "/api/v1/sessions/dddd", nil)

	assert.Equal(t, []string{"aaaa", "bbbb", "cccc", "dddd"}, router.seen)
}

// ==========================
// Health
// ==========================

func TestRepositoryHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(t, newFakeRouter(), fakeHealth{report: repository.HealthReport{
			Healthy: true,
			Dependencies: map[string]repository.DependencyStatus{
				"postgres": {Status: "up"},
			},
		}}, Options{})

		resp, body := do(t, s, http.MethodGet, "/api/v1/health/repository", nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `"postgres":{"status":"up"`)
	})

	t.Run("unhealthy", func(t *testing.T) {
		s := newTestServer(t, newFakeRouter(), fakeHealth{report: repository.HealthReport{
			Healthy: false,
			Dependencies: map[string]repository.DependencyStatus{
				"postgres": {Status: "down", Error: "connection refused"},
			},
		}}, Options{})

		resp, body := do(t, s, http.MethodGet, "/api/v1/health/repository", nil)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, string(body), "connection refused")
	})
}

func TestLivenessReadinessMetrics(t *testing.T) {
	ready := false
	s := newTestServer(t, newFakeRouter(), fakeHealth{}, Options{
		Ready:          func() bool { return ready },
		RequestTimeout: time.Second,
	})

	resp, _ := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ready = true
	resp, _ = do(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, newFakeRouter(), fakeHealth{}, Options{})

	resp, body := do(t, s, http.MethodGet, "/api/v1/nope", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var got errorBody
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "HTTP_ERROR", got.Error)
}
