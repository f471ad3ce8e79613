package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/meetingscribe/internal/generator"
	openai "github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	URL        string
	APIKey     string
	ModelID    string
	Parameters generator.Parameters
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIGenerator sends the prompt as a single user message to an
// OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client     *openai.Client
	modelID    string
	parameters generator.Parameters
}

func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.URL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIGenerator{
		client:     openai.NewClientWithConfig(clientCfg),
		modelID:    cfg.ModelID,
		parameters: cfg.Parameters,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	started := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, g.request(prompt))
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion has no choices", generator.ErrMalformedResponse)
	}
	slog.Info("openai generation complete",
		"model_id", g.modelID,
		"elapsed", time.Since(started).String(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", string(resp.Choices[0].FinishReason))
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) request(prompt string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: g.modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: g.parameters.MaxNewTokens,
		Stop:      g.parameters.StopSequences,
		// The API has no explicit minimum length; repetition is discouraged through the frequency penalty.
		FrequencyPenalty: float32(g.parameters.RepetitionPenalty - 1),
	}
	if g.parameters.DecodingMethod == generator.DecodingGreedy {
		// A zero temperature is dropped by omitempty, so use the smallest positive value.
		req.Temperature = math.SmallestNonzeroFloat32
		req.TopP = 1
	}
	return req
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus("openai", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return classifyStatus("openai", reqErr.HTTPStatusCode, reqErr.Error())
	}
	return fmt.Errorf("%w: openai request: %w", generator.ErrQuotaOrNetwork, err)
}
