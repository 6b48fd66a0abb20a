package repository

import (
	"context"
	"sync"
	"time"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type DependencyStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

type HealthReport struct {
	Healthy      bool                        `json:"healthy"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// Health pings every backend the repository was built with, concurrently.
// The cache is reported but never makes the repository unhealthy.
func (r *Repository) Health(ctx context.Context) HealthReport {
	checks := map[string]pinger{}
	if p, ok := r.store.(pinger); ok {
		checks[backendPostgres] = p
	}
	if r.searchBackend != backendPostgres {
		if p, ok := r.searcher.(pinger); ok {
			checks[backendElasticsearch] = p
		}
	}
	if r.cache != nil {
		checks["redis"] = r.cache
	}

	report := HealthReport{Healthy: true, Dependencies: make(map[string]DependencyStatus, len(checks))}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, p := range checks {
		wg.Add(1)
		go func(name string, p pinger) {
			defer wg.Done()
			start := time.Now()
			err := p.Ping(ctx)

			status := DependencyStatus{Status: "up", LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				status.Status = "down"
				status.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Dependencies[name] = status
			if err != nil && name != "redis" {
				report.Healthy = false
			}
		}(name, p)
	}
	wg.Wait()

	if !report.Healthy {
		r.logger.Warn("Repository health check failed", map[string]interface{}{
			"dependencies": report.Dependencies,
		})
	}
	return report
}
