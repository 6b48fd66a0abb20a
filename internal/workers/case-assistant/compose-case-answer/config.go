package composecaseanswer

import (
	"time"

	"case-assistant/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	MaxRetries    int
	GenAIBaseURL  string
	APIKey        string
	MaxTokens     int
	Temperature   float64
}

func NewConfig(appConfig *config.Config) *Config {
	wcfg := config.GetWorkerConfig(appConfig, TaskType)
	genai := appConfig.APIs.GenAI

	timeout := config.GetDuration(wcfg.Timeout)
	if genai.Timeout > 0 && config.GetDuration(genai.Timeout) < timeout {
		timeout = config.GetDuration(genai.Timeout)
	}

	return &Config{
		Enabled:       wcfg.Enabled,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       timeout,
		MaxRetries:    wcfg.MaxRetries,
		GenAIBaseURL:  genai.BaseURL,
		APIKey:        genai.APIKey,
		MaxTokens:     genai.MaxTokens,
		Temperature:   genai.Temperature,
	}
}
