package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	TranscriberBackendWhisper     = "whisper"
	TranscriberBackendCloudSpeech = "cloud-speech"

	GeneratorBackendWatsonx = "watsonx"
	GeneratorBackendOpenAI  = "openai"
)

type Config struct {
	Env string

	DiscordToken   string
	DiscordGuildID string

	TranscriberBackend         string
	TranscribeLanguage         string
	WhisperAPIKey              string
	WhisperBaseURL             string
	WhisperModel               string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	GeneratorBackend           string
	GeneratorURL               string
	GeneratorAPIKey            string
	GeneratorProjectID         string
	GeneratorModelID           string
	GeneratorIAMURL            string
	GeneratorMinNewTokens      int
	GeneratorMaxNewTokens      int
	GeneratorRepetitionPenalty float64
	GeneratorTimeoutSec        int

	MaxTranscriptChars int
	MaxUploadMB        int
	UploadTempDir      string
	AnswerWebhookURL   string
}

// Validate checks everything the Discord bot needs.
func (c *Config) Validate() error {
	for _, req := range c.discordFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return c.ValidateCore()
}

// ValidateCore checks only the transcription and generation settings.
func (c *Config) ValidateCore() error {
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateGenerator(); err != nil {
		return err
	}
	if c.MaxTranscriptChars < 0 {
		return fmt.Errorf("MAX_TRANSCRIPT_CHARS must not be negative, got %d", c.MaxTranscriptChars)
	}
	return nil
}

func (c *Config) validateTranscriber() error {
	switch c.TranscriberBackend {
	case TranscriberBackendWhisper:
		if c.WhisperAPIKey == "" {
			return fmt.Errorf("WHISPER_API_KEY is required when TRANSCRIBER_BACKEND=%s", TranscriberBackendWhisper)
		}
	case TranscriberBackendCloudSpeech:
		for _, req := range c.cloudSpeechFieldChecks() {
			if req.value == "" {
				return fmt.Errorf("%s is required when TRANSCRIBER_BACKEND=%s", req.name, TranscriberBackendCloudSpeech)
			}
		}
	default:
		return fmt.Errorf("TRANSCRIBER_BACKEND must be %q or %q, got %q", TranscriberBackendWhisper, TranscriberBackendCloudSpeech, c.TranscriberBackend)
	}
	return nil
}

func (c *Config) validateGenerator() error {
	switch c.GeneratorBackend {
	case GeneratorBackendWatsonx:
		if c.GeneratorProjectID == "" {
			return fmt.Errorf("GENERATOR_PROJECT_ID is required when GENERATOR_BACKEND=%s", GeneratorBackendWatsonx)
		}
		if c.GeneratorIAMURL == "" {
			return fmt.Errorf("GENERATOR_IAM_URL is required when GENERATOR_BACKEND=%s", GeneratorBackendWatsonx)
		}
	case GeneratorBackendOpenAI:
	default:
		return fmt.Errorf("GENERATOR_BACKEND must be %q or %q, got %q", GeneratorBackendWatsonx, GeneratorBackendOpenAI, c.GeneratorBackend)
	}
	if strings.TrimSpace(c.GeneratorURL) == "" {
		return fmt.Errorf("GENERATOR_URL is required")
	}
	if c.GeneratorAPIKey == "" {
		return fmt.Errorf("GENERATOR_API_KEY is required")
	}
	if c.GeneratorModelID == "" {
		return fmt.Errorf("GENERATOR_MODEL_ID is required")
	}
	if c.GeneratorMinNewTokens < 1 {
		return fmt.Errorf("GENERATOR_MIN_NEW_TOKENS must be at least 1, got %d", c.GeneratorMinNewTokens)
	}
	if c.GeneratorMaxNewTokens < c.GeneratorMinNewTokens {
		return fmt.Errorf("GENERATOR_MAX_NEW_TOKENS must be >= GENERATOR_MIN_NEW_TOKENS, got %d", c.GeneratorMaxNewTokens)
	}
	if c.GeneratorRepetitionPenalty <= 1 {
		return fmt.Errorf("GENERATOR_REPETITION_PENALTY must be greater than 1, got %v", c.GeneratorRepetitionPenalty)
	}
	if c.GeneratorTimeoutSec <= 0 {
		return fmt.Errorf("GENERATOR_TIMEOUT_SEC must be positive, got %d", c.GeneratorTimeoutSec)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) discordFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "DISCORD_GUILD_ID", value: c.DiscordGuildID},
	}
}

func (c *Config) cloudSpeechFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "TRANSCRIBE_LANGUAGE", value: c.TranscribeLanguage},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) GeneratorTimeout() time.Duration {
	return time.Duration(c.GeneratorTimeoutSec) * time.Second
}

// Request size caps of the transcription services.
const (
	whisperHostedUploadLimitMB = 25
	cloudSpeechInlineLimitMB   = 10
)

// UploadLimitMB is MaxUploadMB lowered to what the configured transcriber accepts.
// A custom WHISPER_BASE_URL is trusted to set its own limit.
func (c *Config) UploadLimitMB() int {
	limit := c.MaxUploadMB
	switch {
	case c.TranscriberBackend == TranscriberBackendWhisper && strings.TrimSpace(c.WhisperBaseURL) == "":
		limit = min(limit, whisperHostedUploadLimitMB)
	case c.TranscriberBackend == TranscriberBackendCloudSpeech:
		limit = min(limit, cloudSpeechInlineLimitMB)
	}
	return limit
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.UploadLimitMB()) * 1024 * 1024
}
