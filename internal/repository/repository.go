// Package repository adapts Postgres, Elasticsearch and Redis into the case
// source the router reads from.
package repository

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"case-assistant/internal/common/logger"
	"case-assistant/internal/common/metrics"
	"case-assistant/internal/models"
)

const (
	backendPostgres      = "postgres"
	backendElasticsearch = "elasticsearch"
)

// CaseStore is the system of record for cases and their activity.
type CaseStore interface {
	FetchByNumber(ctx context.Context, number string) (*models.Case, error)
	FetchByID(ctx context.Context, id string) (*models.Case, error)
	Search(ctx context.Context, text string, limit int) ([]models.Case, error)
	ListByStatus(ctx context.Context, statuses []string, limit int) ([]models.Case, error)
	Comments(ctx context.Context, caseID string) ([]models.Comment, error)
	History(ctx context.Context, caseID string) ([]models.HistoryEntry, error)
	Feed(ctx context.Context, caseID string) ([]models.FeedEntry, error)
}

// Searcher runs free-text search. When none is configured the store searches.
type Searcher interface {
	Search(ctx context.Context, text string, limit int) ([]models.Case, error)
}

type Options struct {
	Searcher Searcher
	Cache    *CaseCache
	Name     string
}

// Repository composes the store, an optional search index and an optional
// cache. Every call is traced and counted.
type Repository struct {
	store         CaseStore
	searcher      Searcher
	searchBackend string
	cache         *CaseCache
	name          string
	tracer        trace.Tracer
	logger        logger.Logger
}

func New(store CaseStore, log logger.Logger, opts Options) *Repository {
	r := &Repository{
		store:         store,
		searcher:      store,
		searchBackend: backendPostgres,
		cache:         opts.Cache,
		name:          opts.Name,
		tracer:        otel.Tracer("case-assistant/repository"),
		logger:        log.WithFields(map[string]interface{}{"component": "case-repository"}),
	}
	if opts.Searcher != nil {
		r.searcher = opts.Searcher
		r.searchBackend = backendElasticsearch
	}
	if r.name == "" {
		r.name = backendPostgres
		if r.searchBackend != backendPostgres {
			r.name += "+" + r.searchBackend
		}
	}
	return r
}

// Name labels the case_source of case responses.
func (r *Repository) Name() string {
	return r.name
}

func (r *Repository) FetchByNumber(ctx context.Context, number string) (*models.Case, error) {
	return r.fetch(ctx, models.QueryTypeCaseByNumber, keyByNumber, number, r.store.FetchByNumber)
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Case, error) {
	return r.fetch(ctx, models.QueryTypeCaseByID, keyByID, id, r.store.FetchByID)
}

func (r *Repository) fetch(
	ctx context.Context,
	qt models.QueryType,
	kind, value string,
	load func(context.Context, string) (*models.Case, error),
) (*models.Case, error) {
	if c, ok := r.cache.Get(ctx, kind, value); ok {
		return c, nil
	}

	var c *models.Case
	err := r.observe(ctx, backendPostgres, qt, func(ctx context.Context) error {
		var err error
		c, err = load(ctx, value)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.cache.Put(ctx, c)
	return c, nil
}

func (r *Repository) Search(ctx context.Context, text string, limit int) ([]models.Case, error) {
	var cases []models.Case
	err := r.observe(ctx, r.searchBackend, models.QueryTypeCaseSearch, func(ctx context.Context) error {
		var err error
		cases, err = r.searcher.Search(ctx, text, limit)
		return err
	})
	return cases, err
}

func (r *Repository) ListByStatus(ctx context.Context, statuses []string, limit int) ([]models.Case, error) {
	var cases []models.Case
	err := r.observe(ctx, backendPostgres, models.QueryTypeCasesByStatus, func(ctx context.Context) error {
		var err error
		cases, err = r.store.ListByStatus(ctx, statuses, limit)
		return err
	})
	return cases, err
}

func (r *Repository) Comments(ctx context.Context, caseID string) ([]models.Comment, error) {
	var items []models.Comment
	err := r.observe(ctx, backendPostgres, models.QueryTypeCaseComments, func(ctx context.Context) error {
		var err error
		items, err = r.store.Comments(ctx, caseID)
		return err
	})
	return items, err
}

func (r *Repository) History(ctx context.Context, caseID string) ([]models.HistoryEntry, error) {
	var items []models.HistoryEntry
	err := r.observe(ctx, backendPostgres, models.QueryTypeCaseHistory, func(ctx context.Context) error {
		var err error
		items, err = r.store.History(ctx, caseID)
		return err
	})
	return items, err
}

func (r *Repository) Feed(ctx context.Context, caseID string) ([]models.FeedEntry, error) {
	var items []models.FeedEntry
	err := r.observe(ctx, backendPostgres, models.QueryTypeCaseFeed, func(ctx context.Context) error {
		var err error
		items, err = r.store.Feed(ctx, caseID)
		return err
	})
	return items, err
}

func (r *Repository) observe(ctx context.Context, backend string, qt models.QueryType, call func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "repository."+string(qt), trace.WithAttributes(
		attribute.String("db.system", backend),
		attribute.String("repository.query_type", string(qt)),
	))
	defer span.End()

	start := time.Now()
	err := call(ctx)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RepositoryCalls.WithLabelValues(backend, string(qt), outcome).Inc()
	metrics.RepositoryCallDuration.WithLabelValues(backend, string(qt)).Observe(elapsed.Seconds())

	r.logger.Debug("Repository call", map[string]interface{}{
		"backend":    backend,
		"queryType":  string(qt),
		"outcome":    outcome,
		"durationMs": elapsed.Milliseconds(),
	})
	return err
}
