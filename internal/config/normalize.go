package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	if value, ok := os.LookupEnv("SLIDECAST_API_URL"); ok && strings.TrimSpace(value) != "" {
		c.Backend.BaseURL = value
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.StartTimeoutSeconds <= 0 {
		c.Backend.StartTimeoutSeconds = defaultStartTimeoutSeconds
	}
	if c.Backend.StatusTimeoutSeconds <= 0 {
		c.Backend.StatusTimeoutSeconds = defaultStatusTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" && c.LLM.Provider == "gemini" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	// Without a Gemini key the local Ollama provider is the only usable default.
	if c.LLM.Provider == "gemini" && c.LLM.APIKey == "" {
		c.LLM.Provider = "ollama"
		if c.LLM.Model == defaultGeminiModel {
			c.LLM.Model = ""
		}
	}
	c.LLM.OllamaBaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.OllamaBaseURL), "/")
}

func (c *Config) normalizeTTS() {
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	if strings.TrimSpace(c.TTS.Rate) == "" {
		c.TTS.Rate = defaultTTSRate
	}
	if strings.TrimSpace(c.TTS.Pitch) == "" {
		c.TTS.Pitch = defaultTTSPitch
	}
	c.Avatar.PhotoID = strings.TrimSpace(c.Avatar.PhotoID)
	if c.Avatar.MaxSize <= 0 {
		c.Avatar.MaxSize = defaultAvatarMaxSize
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollIntervalMillis <= 0 {
		c.Workflow.PollIntervalMillis = defaultPollIntervalMillis
	}
	if c.Workflow.BusyPollIntervalSeconds <= 0 {
		c.Workflow.BusyPollIntervalSeconds = defaultBusyPollIntervalSeconds
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
