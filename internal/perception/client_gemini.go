package perception

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spacer/internal/logging"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiBrain answers chat turns through the Gemini API.
type GeminiBrain struct {
	client *genai.Client
	model  string
}

// NewGeminiBrain creates a Gemini-backed brain.
func NewGeminiBrain(ctx context.Context, apiKey, model string) (*GeminiBrain, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiBrain{client: client, model: model}, nil
}

// String names the brain for banners and logs.
func (g *GeminiBrain) String() string { return "gemini/" + g.model }

// Think implements Brain.
func (g *GeminiBrain) Think(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	startTime := time.Now()
	logging.PerceptionDebug("[Gemini] Think: model=%s history=%d system_len=%d", g.model, len(history), len(systemPrompt))

	contents := toGeminiContents(history)

	var cfg *genai.GenerateContentConfig
	if strings.TrimSpace(systemPrompt) != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		logging.PerceptionError("[Gemini] Think: %v", err)
		return "", &BrainUnavailableError{Provider: "gemini", Err: err}
	}

	text := strings.TrimSpace(resp.Text())
	logging.Perception("[Gemini] Think: completed in %v response_len=%d", time.Since(startTime), len(text))
	if text == "" {
		return ResponseNone, nil
	}
	return text, nil
}

func toGeminiContents(history []Message) []*genai.Content {
	msgs := normalizeForAPI(history)
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}
