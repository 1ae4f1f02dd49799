package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"storefront/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

type StreamOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// StreamClient opens streaming chat completions against an OpenAI-compatible API.
type StreamClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewStreamClient builds a client. The default HTTP client carries no overall
// timeout; the request context bounds each stream.
func NewStreamClient(opts StreamOptions) *StreamClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &StreamClient{apiKey: strings.TrimSpace(opts.APIKey), baseURL: baseURL, model: model, client: client}
}

func (s *StreamClient) HasCredentials() bool {
	return s != nil && s.apiKey != ""
}

// Stream starts a completion and returns the raw event-stream body. The
// caller owns the body and must close it.
func (s *StreamClient) Stream(ctx context.Context, system, user string) (io.ReadCloser, error) {
	if !s.HasCredentials() {
		return nil, fmt.Errorf("prompt: %w", domain.ErrNotConfigured)
	}
	payload := chatRequest{
		Model:       s.model,
		Temperature: 0.7,
		Stream:      true,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("prompt: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", &buf)
	if err != nil {
		return nil, fmt.Errorf("prompt: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("prompt: http request: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = fmt.Sprintf("upstream status %d", resp.StatusCode)
		}
		return nil, &domain.UpstreamError{Service: "chat", Status: resp.StatusCode, Message: msg}
	}
	return resp.Body, nil
}
