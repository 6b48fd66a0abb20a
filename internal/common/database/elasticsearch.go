package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"case-assistant/internal/common/config"
	apperrors "case-assistant/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
)

type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// ElasticsearchOption adjusts the client config before it is built.
type ElasticsearchOption func(*elasticsearch.Config)

// WithTransport swaps the HTTP transport, mostly for tests.
func WithTransport(rt http.RoundTripper) ElasticsearchOption {
	return func(c *elasticsearch.Config) {
		c.Transport = rt
	}
}

func NewElasticsearch(cfg config.ElasticsearchConfig, opts ...ElasticsearchOption) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}

	esCfg := elasticsearch.Config{
		Addresses: addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	for _, opt := range opts {
		opt(&esCfg)
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewElasticsearchConnectionFailedError(fmt.Errorf("ping returned %s", res.Status()))
	}

	return nil
}

// EnsureIndex fails with INDEX_NOT_FOUND when the index is missing.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context, index string) error {
	res, err := c.Client.Indices.Exists(
		[]string{index},
		c.Client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return apperrors.NewIndexNotFoundError(index)
	case res.IsError():
		return apperrors.NewElasticsearchConnectionFailedError(fmt.Errorf("index check returned %s", res.Status()))
	}
	return nil
}
