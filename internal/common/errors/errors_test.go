package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_Summary(t *testing.T) {
	err := NewQueryTimeoutError("fetch_by_number")
	assert.Equal(t, "QUERY_TIMEOUT: "+err.Message+" ("+err.Details+")", err.Summary())

	bare := &StandardError{Code: "X", Message: "m"}
	assert.Equal(t, "X: m", bare.Summary())
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("search failed: %w", NewSearchTimeoutError("search"))

	assert.Equal(t, ErrCodeSearchTimeout, CodeOf(wrapped))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), CodeOf(stderrors.New("plain")))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeSearchTimeout, stdErr.Code)
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		code      string
		retries   int
		retryable bool
	}{
		{"retryable query failure", NewQueryExecutionFailedError("search", stderrors.New("boom")), "QUERY_EXECUTION_FAILED", 3, true},
		{"llm timeout retries once", NewLLMTimeoutError(), "LLM_TIMEOUT", 1, true},
		{"validation is thrown", NewInputValidationFailedError("query: required"), "INPUT_VALIDATION_FAILED", 0, false},
		{"no open question is thrown", NewNoOpenQuestionError("s-1"), "NO_OPEN_QUESTION", 0, false},
		{"unmapped code passes through", &StandardError{Code: "CUSTOM", Retryable: true}, "CUSTOM", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmnErr := ConvertToBPMNError(tt.err)

			assert.Equal(t, tt.code, bpmnErr.Code)
			assert.Equal(t, tt.retries, bpmnErr.Retries)
			assert.Equal(t, tt.retryable, bpmnErr.Retryable)
			assert.Equal(t, string(tt.err.Code), bpmnErr.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestBPMNError_ToErrorVariables(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewArticleDraftInvalidError("articleData.case_data is required"))
	vars := bpmnErr.ToErrorVariables()

	assert.Equal(t, "ARTICLE_DRAFT_INVALID", vars["errorCode"])
	assert.Equal(t, "articleData.case_data is required", vars["errorDetails"])
	assert.Equal(t, false, vars["retryable"])
	assert.Contains(t, vars, "timestamp")
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeDatabaseConnectionFailed:      "DATABASE",
		ErrCodeQueryTimeout:                  "DATABASE",
		ErrCodeSearchQueryFailed:             "SEARCH",
		ErrCodeElasticsearchConnectionFailed: "SEARCH",
		ErrCodeIndexNotFound:                 "SEARCH",
		ErrCodeCacheUnavailable:              "CACHE",
		ErrCodeNotificationSendFailed:        "NOTIFICATION",
		ErrCodeLLMSynthesisFailed:            "AI",
		ErrCodeInputValidationFailed:         "VALIDATION",
		ErrCodeNoOpenQuestion:                "VALIDATION",
		"SOMETHING_ELSE":                     "OTHER",
	}

	for code, category := range tests {
		assert.Equal(t, category, GetErrorCategory(code), code)
	}
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeSearchTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeArticleDraftInvalid))
}
