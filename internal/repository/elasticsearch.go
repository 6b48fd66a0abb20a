package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"case-assistant/internal/common/database"
	apperrors "case-assistant/internal/common/errors"
	"case-assistant/internal/models"
)

// caseDocument is the indexed form of a case.
type caseDocument struct {
	ID             string    `json:"id"`
	CaseNumber     string    `json:"case_number"`
	Subject        string    `json:"subject"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	ContactName    string    `json:"contact_name"`
	OwnerName      string    `json:"owner_name"`
	AccountName    string    `json:"account_name"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

func (d caseDocument) toCase() models.Case {
	return models.Case{
		ID:               d.ID,
		CaseNumber:       d.CaseNumber,
		Subject:          d.Subject,
		Description:      d.Description,
		Status:           d.Status,
		Priority:         d.Priority,
		ContactName:      d.ContactName,
		OwnerName:        d.OwnerName,
		AccountName:      d.AccountName,
		CreatedDate:      d.CreatedAt,
		LastModifiedDate: d.LastModifiedAt,
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source caseDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ElasticsearchSearcher runs free-text case search against the case index.
type ElasticsearchSearcher struct {
	es      *database.ElasticsearchClient
	index   string
	timeout time.Duration
}

func NewElasticsearchSearcher(es *database.ElasticsearchClient, index string, timeout time.Duration) *ElasticsearchSearcher {
	return &ElasticsearchSearcher{es: es, index: index, timeout: timeout}
}

func buildSearchQuery(text string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"case_number^3", "subject^2", "description"},
				"type":   "best_fields",
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"last_modified_at": map[string]interface{}{"order": "desc"}},
		},
	}
}

func (s *ElasticsearchSearcher) Search(ctx context.Context, text string, limit int) ([]models.Case, error) {
	qt := string(models.QueryTypeCaseSearch)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	body, err := json.Marshal(buildSearchQuery(strings.TrimSpace(text)))
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(qt, err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}

	res, err := req.Do(ctx, s.es.Client)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewSearchTimeoutError(qt)
		}
		return nil, apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewIndexNotFoundError(s.index)
	}
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(qt, fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(qt, fmt.Errorf("decode response: %w", err))
	}

	cases := make([]models.Case, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		cases = append(cases, hit.Source.toCase())
	}
	return cases, nil
}

// Ping is used by the repository health check.
func (s *ElasticsearchSearcher) Ping(ctx context.Context) error {
	return s.es.Ping(ctx)
}
