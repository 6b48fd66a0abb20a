// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"case-assistant/internal/agent/router"
	"case-assistant/internal/agent/session"
	awsclient "case-assistant/internal/common/aws"
	"case-assistant/internal/common/camunda"
	"case-assistant/internal/common/config"
	"case-assistant/internal/common/database"
	"case-assistant/internal/common/logger"
	"case-assistant/internal/common/metrics"
	"case-assistant/internal/common/observability"
	"case-assistant/internal/common/validation"
	"case-assistant/internal/notify"
	"case-assistant/internal/repository"
	"case-assistant/internal/transport/httpapi"

	acq "case-assistant/internal/workers/case-assistant/ask-case-query"
	cca "case-assistant/internal/workers/case-assistant/compose-case-answer"
	pad "case-assistant/internal/workers/case-assistant/publish-article-draft"
	rcs "case-assistant/internal/workers/case-assistant/reset-case-session"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, logger.Output{
		Path:       cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting case assistant...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	shutdownTracing, err := observability.InitTracing(
		cfg.Observability.ServiceName,
		cfg.App.Version,
		cfg.Observability.JaegerEndpoint,
		cfg.Observability.SampleRatio,
	)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	repoOpts := repository.Options{}

	// --- Init Elasticsearch with retry ---
	if cfg.Search.Backend == config.SearchBackendElasticsearch {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if err := esClient.EnsureIndex(ctx, cfg.Search.Index); err != nil {
			zapLog.Warn("case index missing, searches will fail until it is created",
				zap.String("index", cfg.Search.Index), zap.Error(err))
		}
		repoOpts.Searcher = repository.NewElasticsearchSearcher(esClient, cfg.Search.Index, config.GetDuration(cfg.Search.Timeout))
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init Redis cache; lookups bypass it while it is down ---
	if cfg.Cache.Enabled {
		redisClient := database.NewRedis(cfg.Database.Redis)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx); err != nil {
			zapLog.Warn("redis unavailable, case cache bypassed until it recovers", zap.Error(err))
		} else {
			zapLog.Info("Redis connected successfully")
		}
		repoOpts.Cache = repository.NewCaseCache(redisClient.Client, config.GetDuration(cfg.Cache.TTL), cfg.Cache.KeyPrefix, log)
	}

	repo := repository.New(repository.NewPostgresStore(pg), log, repoOpts)

	// --- Sessions and router ---
	store := session.NewStore(session.WithLogger(log))
	metrics.RegisterSessionGauge(store.Len)
	if cfg.Session.IdleTimeout > 0 {
		stopJanitor := store.StartJanitor(ctx,
			config.GetDuration(cfg.Session.SweepInterval),
			config.GetDuration(cfg.Session.IdleTimeout),
		)
		defer stopJanitor()
	}

	caseRouter := router.New(repo, store, log, router.Options{
		ExtraStopwords: cfg.Router.ExtraStopwords,
		SearchLimit:    cfg.Router.SearchLimit,
		ListLimit:      cfg.Router.ListLimit,
	})

	validator, err := validation.LoadValidator(cfg.Registry.Path)
	if err != nil {
		zapLog.Warn("activity registry not loaded, job input is not schema-checked",
			zap.String("path", cfg.Registry.Path), zap.Error(err))
	}

	// --- Article draft publisher ---
	var awsClients *awsclient.Clients
	aws := cfg.Integrations.AWS
	if aws.SES.Enabled || aws.SNS.Enabled {
		awsClients, err = awsclient.NewClients(ctx, aws.Region, aws.SES.Enabled, aws.SNS.Enabled)
		if err != nil {
			zapLog.Fatal("aws clients init failed", zap.Error(err))
		}
	}
	drafts := cfg.Notifications.ArticleDrafts
	fromEmail := drafts.FromEmail
	if fromEmail == "" {
		fromEmail = aws.SES.FromEmail
	}
	publisher := notify.NewPublisher(notify.Config{
		TopicARN:   drafts.TopicARN,
		FromEmail:  fromEmail,
		Recipients: drafts.Recipients,
	}, awsClients, log)

	// --- Zeebe workers ---
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		zapLog.Info("Zeebe client connected successfully")

		pool := camunda.NewWorkers(zeebe.GetClient(), log, obs)
		defer pool.Close()

		askCfg := acq.NewConfig(cfg)
		pool.Start(acq.TaskType, config.GetWorkerConfig(cfg, acq.TaskType),
			acq.NewHandler(askCfg, caseRouter, validator, log).Handle)

		resetCfg := rcs.NewConfig(cfg)
		pool.Start(rcs.TaskType, config.GetWorkerConfig(cfg, rcs.TaskType),
			rcs.NewHandler(resetCfg, caseRouter, validator, log).Handle)

		composeCfg := cca.NewConfig(cfg)
		pool.Start(cca.TaskType, config.GetWorkerConfig(cfg, cca.TaskType),
			cca.NewHandler(composeCfg, caseRouter, validator, log).Handle)

		publishCfg := pad.NewConfig(cfg)
		pool.Start(pad.TaskType, config.GetWorkerConfig(cfg, pad.TaskType),
			pad.NewHandler(publishCfg, publisher, validator, log).Handle)

		zapLog.Info("Zeebe workers registered", zap.Strings("taskTypes", pool.TaskTypes()))
	}

	var ready atomic.Bool

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, code := "ready", http.StatusOK
		if !ready.Load() {
			status, code = "starting", http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{Addr: cfg.Observability.MetricsAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Query API ---
	var api *httpapi.Server
	if cfg.HTTP.Enabled {
		api = httpapi.New(caseRouter, repo, log, httpapi.Options{
			BodyLimit:      cfg.HTTP.BodyLimit,
			RequestTimeout: config.GetDuration(cfg.HTTP.RequestTimeout),
			Ready:          ready.Load,
		})
		go func() {
			if err := api.Listen(cfg.HTTP.Address); err != nil {
				zapLog.Error("HTTP API failed", zap.Error(err))
				stop()
			}
		}()
	}

	ready.Store(true)
	zapLog.Info("Case assistant started")

	// --- Graceful Shutdown ---
	<-ctx.Done()
	ready.Store(false)
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if api != nil {
		if err := api.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error stopping HTTP API", zap.Error(err))
		}
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping metrics server", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Error("Error flushing traces", zap.Error(err))
	}

	zapLog.Info("Case assistant stopped gracefully")
}
