package database

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-assistant/internal/common/config"
	apperrors "case-assistant/internal/common/errors"
)

// ==========================
// Postgres
// ==========================

func TestPostgres_PingFailureIsConnectionError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = NewPostgresFromDB(db, time.Second).Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatabaseConnectionFailed, apperrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WithQueryTimeout(t *testing.T) {
	client := NewPostgresFromDB(nil, 50*time.Millisecond)
	ctx, cancel := client.WithQueryTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)

	unbounded := NewPostgresFromDB(nil, 0)
	ctx2, cancel2 := unbounded.WithQueryTimeout(context.Background())
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok)
}

// ==========================
// Redis
// ==========================

func TestRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeCacheUnavailable, apperrors.CodeOf(err))
}

// ==========================
// Elasticsearch
// ==========================

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func esResponse(status int, body string) *http.Response {
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestES(t *testing.T, rt roundTripFunc) *ElasticsearchClient {
	t.Helper()
	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: "http://es.test:9200"}, WithTransport(rt))
	require.NoError(t, err)
	return client
}

func TestElasticsearch_Ping(t *testing.T) {
	client := newTestES(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodHead, r.Method)
		return esResponse(http.StatusOK, ""), nil
	})
	assert.NoError(t, client.Ping(context.Background()))
}

func TestElasticsearch_PingTransportError(t *testing.T) {
	client := newTestES(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: refused")
	})
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeElasticsearchConnectionFailed, apperrors.CodeOf(err))
}

func TestElasticsearch_EnsureIndex(t *testing.T) {
	client := newTestES(t, func(r *http.Request) (*http.Response, error) {
		if strings.HasPrefix(r.URL.Path, "/cases") {
			return esResponse(http.StatusOK, ""), nil
		}
		return esResponse(http.StatusNotFound, ""), nil
	})

	assert.NoError(t, client.EnsureIndex(context.Background(), "cases"))

	err := client.EnsureIndex(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeIndexNotFound, apperrors.CodeOf(err))
}
