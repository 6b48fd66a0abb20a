package camunda

import (
	"context"
	"fmt"
	"sync"
	"time"

	"case-assistant/internal/common/config"
	"case-assistant/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler matches the zeebe worker callback.
type JobHandler func(client worker.JobClient, job entities.Job)

// JobRecorder receives one sample per handled job.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// Workers keeps every opened job worker so they can be closed together.
type Workers struct {
	client   zbc.Client
	logger   logger.Logger
	recorder JobRecorder

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

// NewWorkers builds an empty pool. recorder may be nil.
func NewWorkers(client zbc.Client, log logger.Logger, recorder JobRecorder) *Workers {
	return &Workers{
		client:   client,
		logger:   log.WithFields(map[string]interface{}{"component": "zeebe-workers"}),
		recorder: recorder,
		workers:  make(map[string]worker.JobWorker),
	}
}

// Start opens a job worker for taskType. Disabled workers are skipped and
// reported as false.
func (w *Workers) Start(taskType string, wcfg config.WorkerConfig, handle JobHandler) bool {
	if !wcfg.Enabled {
		w.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	jobWorker := w.client.NewJobWorker().
		JobType(taskType).
		Handler(w.wrap(taskType, handle)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Name(taskType).
		Open()

	w.mu.Lock()
	w.workers[taskType] = jobWorker
	w.mu.Unlock()

	w.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// TaskTypes lists the task types with an open worker.
func (w *Workers) TaskTypes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.workers))
	for t := range w.workers {
		out = append(out, t)
	}
	return out
}

// Close stops polling and waits for in-flight jobs of every worker.
func (w *Workers) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for taskType, jobWorker := range w.workers {
		jobWorker.Close()
		jobWorker.AwaitClose()
		w.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
	w.workers = make(map[string]worker.JobWorker)
}

// wrap records every job and keeps one panicking job from taking the poller
// down. A panicked job is left to time out and be retried by the broker.
func (w *Workers) wrap(taskType string, handle JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		status := "handled"

		defer func() {
			if r := recover(); r != nil {
				status = "panicked"
				w.logger.Error("job handler panicked", map[string]interface{}{
					"taskType": taskType,
					"jobKey":   job.GetKey(),
					"panic":    fmt.Sprint(r),
				})
			}
			if w.recorder != nil {
				ctx := context.Background()
				w.recorder.RecordJobProcessed(ctx, taskType, status)
				w.recorder.RecordJobDuration(ctx, taskType, time.Since(start), status)
			}
		}()

		handle(client, job)
	}
}
