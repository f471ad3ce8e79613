package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/meetingscribe/internal/transcriber"
	openai "github.com/sashabaranov/go-openai"
)

const whisperRequestTimeout = 60 * time.Minute

type WhisperConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

// WhisperTranscriber calls an OpenAI-compatible audio transcription endpoint.
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
}

func NewWhisperTranscriber(cfg WhisperConfig) transcriber.Transcriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: whisperRequestTimeout}
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: whisperLanguage(cfg.Language),
	}
}

// whisperLanguage reduces a BCP-47 tag such as "en-US" to the ISO-639-1 code Whisper accepts.
func whisperLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	slog.Info("starting whisper transcription", "model", t.model, "language", t.language)
	started := time.Now()
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Language: t.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("%w: whisper: %w", transcriber.ErrTranscription, err)
	}
	slog.Info("whisper transcription complete", "elapsed", time.Since(started).String(), "chars", len(resp.Text))
	return strings.TrimSpace(resp.Text), nil
}
