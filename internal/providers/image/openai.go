package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"storefront/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "dall-e-3"
	defaultSize    = "1024x1024"
)

// Options configures an OpenAI-compatible image generation client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// OpenAIClient calls POST /images/generations.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

type generationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
	Style  string `json:"style,omitempty"`
}

type generationResponse struct {
	Data []struct {
		URL           string `json:"url"`
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// NewOpenAIClient constructs a client. A missing API key is allowed; Generate
// then reports domain.ErrNotConfigured.
func NewOpenAIClient(opts Options) *OpenAIClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	return &OpenAIClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *OpenAIClient) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

// Generate requests a single image for the prompt.
func (c *OpenAIClient) Generate(ctx context.Context, req domain.GenerateRequest) ([]domain.GeneratedImage, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("image: %w", domain.ErrNotConfigured)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("image: prompt is required: %w", domain.ErrInvalidInput)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = defaultSize
	}
	payload := generationRequest{Model: model, Prompt: prompt, N: 1, Size: size, Style: strings.TrimSpace(req.Style)}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("image: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("image: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("image: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{Service: "image", Status: resp.StatusCode, Message: upstreamMessage(raw, resp.StatusCode)}
	}

	var decoded generationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("image: decode response: %w", err)
	}
	images := make([]domain.GeneratedImage, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		img := domain.GeneratedImage{URL: strings.TrimSpace(item.URL), RevisedPrompt: item.RevisedPrompt}
		if item.B64JSON != "" {
			data, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("image: decode b64_json: %w", err)
			}
			img.Data = data
		}
		if img.URL == "" && len(img.Data) == 0 {
			continue
		}
		images = append(images, img)
	}
	c.logger.Debug().
		Str("model", model).
		Str("size", size).
		Int("results", len(images)).
		Dur("elapsed", time.Since(start)).
		Msg("image: generation finished")
	if len(images) == 0 {
		return nil, fmt.Errorf("image: %w", domain.ErrNoResult)
	}
	return images, nil
}

func upstreamMessage(raw []byte, status int) string {
	if msg := gjson.GetBytes(raw, "error.message").String(); msg != "" {
		return msg
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 300 {
		return text
	}
	return fmt.Sprintf("upstream status %d", status)
}

var errEmptyImage = errors.New("image: empty body")
