package composecaseanswer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"case-assistant/internal/agent/payload"
	"case-assistant/internal/agent/session"
	apperrors "case-assistant/internal/common/errors"
	commonhttp "case-assistant/internal/common/http"
	"case-assistant/internal/common/logger"
	"case-assistant/internal/common/metrics"
	"case-assistant/internal/common/validation"
)

const (
	TaskType = "compose-case-answer"

	generatePath   = "/api/ai/generate"
	fallbackAnswer = "I don't have enough information to answer that question."
)

var (
	ErrLLMTimeout         = errors.New("LLM_TIMEOUT")
	ErrLLMSynthesisFailed = errors.New("LLM_SYNTHESIS_FAILED")
	ErrNotAnswerable      = errors.New("NOT_ANSWERABLE")
)

// answerable lists the payload types the generator writes prose for. The
// follow-up types also left an open question that the answer fills.
var answerable = map[payload.Type]bool{
	payload.TypeCaseResponse:      false,
	payload.TypeKnowledgeArticle:  false,
	payload.TypeCaseComments:      false,
	payload.TypeCaseHistory:       false,
	payload.TypeCaseFeed:          false,
	payload.TypeTechnicalFollowup: true,
	payload.TypeFollowupAnswer:    true,
}

// Sessions is the part of the router that keeps conversation memory.
type Sessions interface {
	Session(sessionID string) session.State
	RecordAnswer(sessionID, question, answer string) bool
}

type Handler struct {
	config     *Config
	client     *commonhttp.Client
	sessions   Sessions
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, sessions Sessions, validator *validation.Validator, log logger.Logger) *Handler {
	opts := []commonhttp.Option{commonhttp.WithRetries(config.MaxRetries, 100*time.Millisecond)}
	if config.APIKey != "" {
		opts = append(opts, commonhttp.WithHeader("Authorization", "Bearer "+config.APIKey))
	}
	return NewHandlerWithClient(config, commonhttp.NewClient(0, opts...), sessions, validator, log)
}

// NewHandlerWithClient is NewHandler with a caller-supplied GenAI client.
func NewHandlerWithClient(config *Config, client *commonhttp.Client, sessions Sessions, validator *validation.Validator, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		client:     client,
		sessions:   sessions,
		validator:  validator,
		errHandler: apperrors.NewErrorHandler(scoped),
		logger:     scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}
	if err := h.validator.ValidateInput(TaskType, variables); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, apperrors.NewInputValidationFailedError(err.Error())
	}
	return &input, nil
}

// Execute asks the GenAI service to write the answer for a payload and, for
// follow-up questions, stores it in the session's open Q/A placeholder.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	respType := payload.Type(stringField(input.Response, "type"))
	fillsQuestion, ok := answerable[respType]
	if !ok {
		return nil, fmt.Errorf("%w: payload type %q is shown as-is", ErrNotAnswerable, respType)
	}

	question := input.Question
	if question == "" {
		question = questionFrom(input.Response)
	}

	if fillsQuestion && !h.waitingFor(input.SessionID, question, caseIDFrom(input.Response)) {
		return nil, apperrors.NewNoOpenQuestionError(session.NormalizeID(input.SessionID))
	}

	var resp generateResponse
	err := h.client.PostJSON(ctx, strings.TrimRight(h.config.GenAIBaseURL, "/")+generatePath, generateRequest{
		Prompt:      buildPrompt(question, input.Response),
		Context:     map[string]interface{}{"payload": input.Response, "payload_type": string(respType)},
		MaxTokens:   h.config.MaxTokens,
		Temperature: h.config.Temperature,
	}, &resp)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLLMTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrLLMSynthesisFailed, err)
	}

	if strings.TrimSpace(resp.Text) == "" {
		resp.Text = fallbackAnswer
		resp.Confidence = 0.1
	}
	if resp.Confidence < 0.0 || resp.Confidence > 1.0 {
		resp.Confidence = 0.5
	}

	output := &Output{
		Answer:     resp.Text,
		Confidence: resp.Confidence,
		Sources:    resp.Sources,
	}
	if fillsQuestion && h.waitingFor(input.SessionID, question, caseIDFrom(input.Response)) {
		output.Recorded = h.sessions.RecordAnswer(input.SessionID, question, resp.Text)
	}

	h.logger.Info("Answer composed", map[string]interface{}{
		"sessionId":   input.SessionID,
		"payloadType": string(respType),
		"confidence":  output.Confidence,
		"recorded":    output.Recorded,
	})
	return output, nil
}

// waitingFor reports whether question is still open in the session and,
// when the payload names a case, whether that case is still the active one.
func (h *Handler) waitingFor(sessionID, question, caseID string) bool {
	st := h.sessions.Session(sessionID)
	if caseID != "" && (st.CaseData == nil || st.CaseData.CaseID != caseID) {
		return false
	}
	return st.HasOpenQuestion(question)
}

// caseIDFrom returns the case a follow-up payload was built for.
func caseIDFrom(response map[string]interface{}) string {
	if data, ok := response["case_data"].(map[string]interface{}); ok {
		return stringField(data, "case_id")
	}
	if ctxData, ok := response["context_data"].(map[string]interface{}); ok {
		if data, ok := ctxData["case_context"].(map[string]interface{}); ok {
			return stringField(data, "case_id")
		}
	}
	return ""
}

// questionFrom digs the user's question out of a follow-up payload.
func questionFrom(response map[string]interface{}) string {
	if q := stringField(response, "user_question"); q != "" {
		return q
	}
	if ctxData, ok := response["context_data"].(map[string]interface{}); ok {
		return stringField(ctxData, "current_question")
	}
	return ""
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func buildPrompt(question string, response map[string]interface{}) string {
	var parts []string

	parts = append(parts, "You are a support case assistant. Answer using ONLY the case data provided.")
	if instructions := stringField(response, "instructions"); instructions != "" {
		parts = append(parts, "\nInstructions:", instructions)
	}
	if question != "" {
		parts = append(parts, fmt.Sprintf("\nUser Question: %s", question))
	}

	data := make(map[string]interface{}, len(response))
	for k, v := range response {
		if k != "instructions" {
			data[k] = v
		}
	}
	dataJSON, _ := json.MarshalIndent(data, "", "  ")
	parts = append(parts, "\nCase Data:", string(dataJSON))

	parts = append(parts, "\nAnswer:")
	return strings.Join(parts, "\n")
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := toStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func toStandardError(err error) *apperrors.StandardError {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return stdErr
	}
	switch {
	case errors.Is(err, ErrLLMTimeout):
		return apperrors.NewLLMTimeoutError()
	case errors.Is(err, ErrLLMSynthesisFailed):
		return apperrors.NewLLMSynthesisFailedError(err)
	case errors.Is(err, ErrNotAnswerable):
		return apperrors.NewInputValidationFailedError(err.Error())
	default:
		return apperrors.NewLLMSynthesisFailedError(err)
	}
}
