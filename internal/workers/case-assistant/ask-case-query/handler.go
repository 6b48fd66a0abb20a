package askcasequery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"case-assistant/internal/agent/payload"
	"case-assistant/internal/common/errors"
	"case-assistant/internal/common/logger"
	"case-assistant/internal/common/metrics"
	"case-assistant/internal/common/validation"
)

const TaskType = "ask-case-query"

// Router is the part of the query router this worker drives.
type Router interface {
	Handle(ctx context.Context, query, sessionID string) payload.Payload
}

type Handler struct {
	config     *Config
	router     Router
	validator  *validation.Validator
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, router Router, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		router:     router,
		validator:  validator,
		errHandler: errors.NewErrorHandler(scoped),
		logger:     scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	log := h.logger.WithFields(map[string]interface{}{
		"jobKey":        job.GetKey(),
		"workflowKey":   job.GetProcessInstanceKey(),
		"correlationId": uuid.NewString(),
	})
	log.Info("processing job", nil)

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output, log)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputValidationFailedError("job variables are not a JSON object: " + err.Error())
	}
	if err := h.validator.ValidateInput(TaskType, variables); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInputValidationFailedError(err.Error())
	}
	return &input, nil
}

// Execute routes one query. Routing never fails; repository problems come
// back as error payloads.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	p := h.router.Handle(ctx, input.Query, input.SessionID)
	return &Output{
		SessionID:      p.Session(),
		Response:       p,
		ResponseType:   string(p.PayloadType()),
		RequiresAnswer: payload.RequiresAnswer(p),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		log.Error("Failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		log.Error("Failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}

	log.Info("job completed", map[string]interface{}{
		"sessionId":      output.SessionID,
		"responseType":   output.ResponseType,
		"requiresAnswer": output.RequiresAnswer,
	})
}
