package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-assistant/internal/common/config"
	"case-assistant/internal/common/database"
	apperrors "case-assistant/internal/common/errors"
)

type fakeTransport struct {
	status   int
	body     string
	requests []*http.Request
	bodies   []string
}

func (f *fakeTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, r)
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		f.bodies = append(f.bodies, string(raw))
	}

	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: f.status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func newTestSearcher(t *testing.T, ft *fakeTransport) *ElasticsearchSearcher {
	t.Helper()
	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: "http://es.test:9200"}, database.WithTransport(ft))
	require.NoError(t, err)
	return NewElasticsearchSearcher(es, "cases", time.Second)
}

const twoHits = `{
  "hits": {
    "hits": [
      {"_source": {"id": "500000000000001AAA", "case_number": "00001234", "subject": "Printer offline",
                   "status": "Working", "last_modified_at": "2026-03-01T10:00:00Z"}},
      {"_source": {"id": "500000000000002AAA", "case_number": "00001235", "subject": "Printer jams",
                   "description": "Tray 2", "status": "New"}}
    ]
  }
}`

func TestElasticsearchSearcher_Search(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: twoHits}
	searcher := newTestSearcher(t, ft)

	cases, err := searcher.Search(context.Background(), " printer ", 10)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "00001234", cases[0].CaseNumber)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), cases[0].LastModifiedDate)
	assert.Equal(t, "Tray 2", cases[1].Description)

	require.Len(t, ft.requests, 1)
	req := ft.requests[0]
	assert.Equal(t, "/cases/_search", req.URL.Path)
	assert.Equal(t, "10", req.URL.Query().Get("size"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(ft.bodies[0]), &body))
	match := body["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "printer", match["query"])
}

func TestElasticsearchSearcher_NoHits(t *testing.T) {
	searcher := newTestSearcher(t, &fakeTransport{status: http.StatusOK, body: `{"hits":{"hits":[]}}`})

	cases, err := searcher.Search(context.Background(), "nothing matches", 10)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestElasticsearchSearcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   apperrors.ErrorCode
	}{
		{"missing index", http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`, apperrors.ErrCodeIndexNotFound},
		{"bad request", http.StatusBadRequest, `{"error":{"type":"parsing_exception"}}`, apperrors.ErrCodeSearchQueryFailed},
		{"garbage body", http.StatusOK, `not json`, apperrors.ErrCodeSearchQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := newTestSearcher(t, &fakeTransport{status: tt.status, body: tt.body})
			_, err := searcher.Search(context.Background(), "printer", 10)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.CodeOf(err))
		})
	}
}
