package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/meetingscribe/internal/generator"
)

const (
	watsonxGenerationPath    = "/ml/v1/text/generation"
	watsonxAPIVersion        = "2023-05-29"
	watsonxIAMGrantType      = "urn:ibm:params:oauth:grant-type:apikey"
	watsonxTokenRefreshSlack = 60 * time.Second
)

type WatsonxConfig struct {
	URL        string
	APIKey     string
	ProjectID  string
	ModelID    string
	IAMURL     string
	Parameters generator.Parameters
	Timeout    time.Duration
	HTTPClient *http.Client
}

// WatsonxGenerator calls the watsonx.ai text generation REST API, exchanging the
// API key for an IAM bearer token that is reused until shortly before it expires.
type WatsonxGenerator struct {
	baseURL    string
	apiKey     string
	projectID  string
	modelID    string
	iamURL     string
	parameters generator.Parameters
	client     *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewWatsonxGenerator(cfg WatsonxConfig) *WatsonxGenerator {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &WatsonxGenerator{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		apiKey:     cfg.APIKey,
		projectID:  cfg.ProjectID,
		modelID:    cfg.ModelID,
		iamURL:     cfg.IAMURL,
		parameters: cfg.Parameters,
		client:     client,
		now:        time.Now,
	}
}

type watsonxParameters struct {
	DecodingMethod    string   `json:"decoding_method"`
	MinNewTokens      int      `json:"min_new_tokens"`
	MaxNewTokens      int      `json:"max_new_tokens"`
	RepetitionPenalty float64  `json:"repetition_penalty"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
}

type watsonxGenerationRequest struct {
	ModelID    string            `json:"model_id"`
	Input      string            `json:"input"`
	ProjectID  string            `json:"project_id"`
	Parameters watsonxParameters `json:"parameters"`
}

type watsonxGenerationResponse struct {
	ModelID string `json:"model_id"`
	Results []struct {
		GeneratedText       *string `json:"generated_text"`
		GeneratedTokenCount int     `json:"generated_token_count"`
		InputTokenCount     int     `json:"input_token_count"`
		StopReason          string  `json:"stop_reason"`
	} `json:"results"`
}

type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	Expiration  int64  `json:"expiration"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (g *WatsonxGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(watsonxGenerationRequest{
		ModelID:   g.modelID,
		Input:     prompt,
		ProjectID: g.projectID,
		Parameters: watsonxParameters{
			DecodingMethod:    g.parameters.DecodingMethod,
			MinNewTokens:      g.parameters.MinNewTokens,
			MaxNewTokens:      g.parameters.MaxNewTokens,
			RepetitionPenalty: g.parameters.RepetitionPenalty,
			StopSequences:     g.parameters.StopSequences,
		},
	})
	if err != nil {
		return "", err
	}
	endpoint := g.baseURL + watsonxGenerationPath + "?version=" + watsonxAPIVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	started := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: watsonx generation request: %w", generator.ErrQuotaOrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read watsonx generation response: %w", generator.ErrQuotaOrNetwork, err)
	}
	if !isHTTPSuccessStatus(resp.StatusCode) {
		if resp.StatusCode == http.StatusUnauthorized {
			g.invalidateToken()
		}
		return "", classifyStatus("watsonx generation", resp.StatusCode, string(body))
	}

	var parsed watsonxGenerationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode watsonx generation response: %w", generator.ErrMalformedResponse, err)
	}
	if len(parsed.Results) == 0 || parsed.Results[0].GeneratedText == nil {
		return "", fmt.Errorf("%w: watsonx response has no generated_text in results[0]", generator.ErrMalformedResponse)
	}
	first := parsed.Results[0]
	slog.Info("watsonx generation complete",
		"model_id", g.modelID,
		"elapsed", time.Since(started).String(),
		"input_tokens", first.InputTokenCount,
		"generated_tokens", first.GeneratedTokenCount,
		"stop_reason", first.StopReason)
	return *first.GeneratedText, nil
}

func (g *WatsonxGenerator) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" && g.now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", watsonxIAMGrantType)
	form.Set("apikey", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.iamURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: iam token request: %w", generator.ErrQuotaOrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read iam token response: %w", generator.ErrQuotaOrNetwork, err)
	}
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		// IAM answers 400 for unknown or revoked API keys.
		return "", fmt.Errorf("%w: iam rejected the api key: %s", generator.ErrAuthentication, strings.TrimSpace(string(body)))
	case !isHTTPSuccessStatus(resp.StatusCode):
		return "", classifyStatus("iam token", resp.StatusCode, string(body))
	}

	var parsed iamTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode iam token response: %w", generator.ErrMalformedResponse, err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("%w: iam token response has no access_token", generator.ErrMalformedResponse)
	}
	g.token = parsed.AccessToken
	g.tokenExpiry = g.expiryFrom(parsed)
	slog.Debug("iam token refreshed", "expires_at", g.tokenExpiry)
	return g.token, nil
}

func (g *WatsonxGenerator) expiryFrom(parsed iamTokenResponse) time.Time {
	var expiry time.Time
	switch {
	case parsed.Expiration > 0:
		expiry = time.Unix(parsed.Expiration, 0)
	case parsed.ExpiresIn > 0:
		expiry = g.now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	default:
		return g.now()
	}
	return expiry.Add(-watsonxTokenRefreshSlack)
}

func (g *WatsonxGenerator) invalidateToken() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = ""
	g.tokenExpiry = time.Time{}
}
