package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spacer/internal/logging"
)

// Anthropic API defaults.
const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	DefaultAnthropicModel   = "claude-sonnet-4-5"
	anthropicVersion        = "2023-06-01"
)

// AnthropicConfig configures the direct Anthropic brain.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:    apiKey,
		BaseURL:   DefaultAnthropicBaseURL,
		Model:     DefaultAnthropicModel,
		MaxTokens: 4096,
		Timeout:   DefaultCLITimeout,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AnthropicBrain talks to the Messages API directly. Failures surface as
// *BrainUnavailableError and are never retried.
type AnthropicBrain struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewAnthropicBrain creates a brain from cfg, filling zero fields with
// defaults.
func NewAnthropicBrain(cfg AnthropicConfig) *AnthropicBrain {
	def := DefaultAnthropicConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &AnthropicBrain{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// String names the brain for banners and logs.
func (c *AnthropicBrain) String() string { return "anthropic/" + c.model }

// Think implements Brain.
func (c *AnthropicBrain) Think(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	startTime := time.Now()
	logging.PerceptionDebug("[Anthropic] Think: model=%s history=%d system_len=%d", c.model, len(history), len(systemPrompt))

	if c.apiKey == "" {
		return "", c.unavailable(0, fmt.Errorf("API key not configured"))
	}

	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    systemPrompt,
	}
	for _, m := range normalizeForAPI(history) {
		reqBody.Messages = append(reqBody.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.PerceptionError("[Anthropic] Think: request failed: %v", err)
		return "", c.unavailable(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.unavailable(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", c.unavailable(resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(body))))
		}
		return "", c.unavailable(resp.StatusCode, fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		logging.PerceptionError("[Anthropic] Think: API error: %s", msg)
		return "", c.unavailable(resp.StatusCode, fmt.Errorf("API error: %s", msg))
	}

	var result strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	response := strings.TrimSpace(result.String())
	logging.Perception("[Anthropic] Think: completed in %v response_len=%d", time.Since(startTime), len(response))
	if response == "" {
		return ResponseNone, nil
	}
	return response, nil
}

func (c *AnthropicBrain) unavailable(status int, err error) error {
	return &BrainUnavailableError{Provider: "anthropic", StatusCode: status, Err: err}
}
