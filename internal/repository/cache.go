package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "case-assistant/internal/common/errors"
	"case-assistant/internal/common/logger"
	"case-assistant/internal/common/metrics"
	"case-assistant/internal/models"
)

const (
	keyByNumber = "number"
	keyByID     = "id"
)

// CaseCache is a read-through cache for single-case lookups. Redis failures
// are logged and treated as misses so the repository keeps serving.
// A nil *CaseCache is valid and never hits.
type CaseCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewCaseCache(client redis.Cmdable, ttl time.Duration, prefix string, log logger.Logger) *CaseCache {
	if prefix == "" {
		prefix = "case"
	}
	return &CaseCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "case-cache"}),
	}
}

func (c *CaseCache) key(kind, value string) string {
	return c.prefix + ":" + kind + ":" + value
}

func (c *CaseCache) Get(ctx context.Context, kind, value string) (*models.Case, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, c.key(kind, value)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logUnavailable("get", err)
		return nil, false
	}

	var cached models.Case
	if err := json.Unmarshal(raw, &cached); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logUnavailable("decode", err)
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &cached, true
}

// Put stores the case under both its number and its id.
func (c *CaseCache) Put(ctx context.Context, cs *models.Case) {
	if c == nil || cs == nil {
		return
	}

	raw, err := json.Marshal(cs)
	if err != nil {
		c.logUnavailable("encode", err)
		return
	}

	_, err = c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if cs.CaseNumber != "" {
			pipe.Set(ctx, c.key(keyByNumber, cs.CaseNumber), raw, c.ttl)
		}
		if cs.ID != "" {
			pipe.Set(ctx, c.key(keyByID, cs.ID), raw, c.ttl)
		}
		return nil
	})
	if err != nil {
		c.logUnavailable("set", err)
	}
}

func (c *CaseCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return apperrors.NewCacheUnavailableError("ping", err)
	}
	return nil
}

func (c *CaseCache) logUnavailable(op string, err error) {
	stdErr := apperrors.NewCacheUnavailableError(op, err)
	c.logger.WithError(err).Warn("Case cache bypassed", map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"operation": op,
	})
}
