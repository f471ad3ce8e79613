package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/meetingscribe/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	// Synchronous Recognize only accepts inline audio up to 10 MB.
	maxInlineAudioBytes = 10 * 1024 * 1024
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	language        string
	location        string
	model           string
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) transcriber.Transcriber {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "global"
	}
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		language:        cfg.Language,
		location:        location,
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}
	if len(audio) > maxInlineAudioBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d byte inline limit of cloud speech", transcriber.ErrTranscription, len(audio), maxInlineAudioBytes)
	}
	slog.Info("starting cloud speech recognition", "location", t.location, "language", t.language, "model", t.model, "audio_bytes", len(audio))

	client, err := t.newClient(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = client.Close()
	}()

	resp, err := client.Recognize(ctx, t.recognizeRequest(audio))
	if err != nil {
		slog.Warn("cloud speech recognize failed", "code", status.Code(err).String(), "error", err)
		return "", fmt.Errorf("%w: cloud speech: %w", transcriber.ErrTranscription, err)
	}
	text := transcriptFromResponse(resp)
	slog.Info("cloud speech recognition complete", "results", len(resp.GetResults()), "chars", len(text))
	return text, nil
}

func (t *CloudSpeechTranscriber) newClient(ctx context.Context) (*speech.Client, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if endpoint := t.endpoint(); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return client, nil
}

func (t *CloudSpeechTranscriber) endpoint() string {
	if t.location == "global" {
		return ""
	}
	return fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)
}

func (t *CloudSpeechTranscriber) recognizer() string {
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location)
}

func (t *CloudSpeechTranscriber) recognizeRequest(audio []byte) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Recognizer: t.recognizer(),
		Config: &speechpb.RecognitionConfig{
			Model:         t.model,
			LanguageCodes: []string{t.language},
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			Features: &speechpb.RecognitionFeatures{
				EnableAutomaticPunctuation: true,
			},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{
			Content: audio,
		},
	}
}

func transcriptFromResponse(resp *speechpb.RecognizeResponse) string {
	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		text := strings.TrimSpace(result.GetAlternatives()[0].GetTranscript())
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}
