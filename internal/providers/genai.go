package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	genai "google.golang.org/genai"

	"content_gateway/internal/models"
)

// genaiClients keeps one SDK client per API key for a bound request function.
type genaiClients struct {
	baseURL string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func (c *genaiClients) get(ctx context.Context, apiKey string) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cli, ok := c.clients[apiKey]; ok {
		return cli, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.clients[apiKey] = cli
	return cli, nil
}

// NewGenAIRequest returns a custom request function that serves Gemini models
// through the official SDK instead of the raw REST adapter. baseURL overrides
// the SDK endpoint and may be empty. SDK clients are created on first use and
// reused for later calls with the same key.
func NewGenAIRequest(baseURL string) models.RequestFunc {
	cache := &genaiClients{baseURL: baseURL, clients: map[string]*genai.Client{}}

	return func(ctx context.Context, call models.CustomRequest) (*models.GenerationResponse, error) {
		cli, err := cache.get(ctx, call.APIKey)
		if err != nil {
			return nil, err
		}

		contents, system := toGenAIContents(call.Request.Messages)
		temperature := float32(call.Request.Temperature)
		genCfg := &genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: int32(call.MaxTokens),
		}
		if system != "" {
			genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
		}

		resp, err := cli.Models.GenerateContent(ctx, call.Model.UpstreamID, contents, genCfg)
		if err != nil {
			return nil, fmt.Errorf("genai request to %s failed: %w", call.Provider.ID, err)
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, models.InvalidResponseError(call.Provider.ID, "missing candidates[0].content")
		}

		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil {
				text.WriteString(part.Text)
			}
		}

		out := &models.GenerationResponse{Content: text.String()}
		if meta := resp.UsageMetadata; meta != nil {
			out.Usage = &models.Usage{
				PromptTokens:     int(meta.PromptTokenCount),
				CompletionTokens: int(meta.CandidatesTokenCount),
				TotalTokens:      int(meta.TotalTokenCount),
			}
		}
		return out, nil
	}
}

// toGenAIContents splits system text out for the SDK's SystemInstruction.
func toGenAIContents(messages []models.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, msg.Content)
		case models.RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	return contents, strings.Join(system, "\n\n")
}
