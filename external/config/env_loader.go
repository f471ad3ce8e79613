package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/meetingscribe/internal/config"
	"github.com/joho/godotenv"
)

const defaultDotEnvPath = ".env"

type envConfig struct {
	Env string `env:"ENV" envDefault:"production"`

	DiscordToken   string `env:"DISCORD_TOKEN"`
	DiscordGuildID string `env:"DISCORD_GUILD_ID"`

	TranscriberBackend         string `env:"TRANSCRIBER_BACKEND" envDefault:"whisper"`
	TranscribeLanguage         string `env:"TRANSCRIBE_LANGUAGE"`
	WhisperAPIKey              string `env:"WHISPER_API_KEY"`
	WhisperBaseURL             string `env:"WHISPER_BASE_URL"`
	WhisperModel               string `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`

	GeneratorBackend           string  `env:"GENERATOR_BACKEND" envDefault:"watsonx"`
	GeneratorURL               string  `env:"GENERATOR_URL" envDefault:"https://us-south.ml.cloud.ibm.com"`
	GeneratorAPIKey            string  `env:"GENERATOR_API_KEY,required"`
	GeneratorProjectID         string  `env:"GENERATOR_PROJECT_ID"`
	GeneratorModelID           string  `env:"GENERATOR_MODEL_ID" envDefault:"ibm/granite-13b-instruct-v2"`
	GeneratorIAMURL            string  `env:"GENERATOR_IAM_URL" envDefault:"https://iam.cloud.ibm.com/identity/token"`
	GeneratorMinNewTokens      int     `env:"GENERATOR_MIN_NEW_TOKENS" envDefault:"1"`
	GeneratorMaxNewTokens      int     `env:"GENERATOR_MAX_NEW_TOKENS" envDefault:"512"`
	GeneratorRepetitionPenalty float64 `env:"GENERATOR_REPETITION_PENALTY" envDefault:"1.05"`
	GeneratorTimeoutSec        int     `env:"GENERATOR_TIMEOUT_SEC" envDefault:"120"`

	MaxTranscriptChars int    `env:"MAX_TRANSCRIPT_CHARS" envDefault:"28000"`
	MaxUploadMB        int    `env:"MAX_UPLOAD_MB" envDefault:"100"`
	UploadTempDir      string `env:"UPLOAD_TEMP_DIR"`
	AnswerWebhookURL   string `env:"ANSWER_WEBHOOK_URL"`
}

// Load reads the configuration for the Discord bot.
func Load() (*internalconfig.Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCore reads the configuration without requiring Discord settings.
func LoadCore() (*internalconfig.Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateCore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse() (*internalconfig.Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	return &internalconfig.Config{
		Env:                        raw.Env,
		DiscordToken:               raw.DiscordToken,
		DiscordGuildID:             raw.DiscordGuildID,
		TranscriberBackend:         raw.TranscriberBackend,
		TranscribeLanguage:         raw.TranscribeLanguage,
		WhisperAPIKey:              raw.WhisperAPIKey,
		WhisperBaseURL:             raw.WhisperBaseURL,
		WhisperModel:               raw.WhisperModel,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		GeneratorBackend:           raw.GeneratorBackend,
		GeneratorURL:               raw.GeneratorURL,
		GeneratorAPIKey:            raw.GeneratorAPIKey,
		GeneratorProjectID:         raw.GeneratorProjectID,
		GeneratorModelID:           raw.GeneratorModelID,
		GeneratorIAMURL:            raw.GeneratorIAMURL,
		GeneratorMinNewTokens:      raw.GeneratorMinNewTokens,
		GeneratorMaxNewTokens:      raw.GeneratorMaxNewTokens,
		GeneratorRepetitionPenalty: raw.GeneratorRepetitionPenalty,
		GeneratorTimeoutSec:        raw.GeneratorTimeoutSec,
		MaxTranscriptChars:         raw.MaxTranscriptChars,
		MaxUploadMB:                raw.MaxUploadMB,
		UploadTempDir:              raw.UploadTempDir,
		AnswerWebhookURL:           raw.AnswerWebhookURL,
	}, nil
}

// loadDotEnv fills unset variables from SCRIBE_ENV_FILE (or ./.env) when the file exists.
// Variables already present in the process environment win.
func loadDotEnv() error {
	path := os.Getenv("SCRIBE_ENV_FILE")
	if path == "" {
		path = defaultDotEnvPath
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
