package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"content_gateway/internal/models"
)

// OpenAIProvider speaks the OpenAI chat-completions format. OpenRouter,
// Together.ai and Baseten all accept it.
type OpenAIProvider struct {
	id      string
	name    string
	auth    []Authenticator
	client  *http.Client
	baseURL string
}

// NewOpenAIProvider creates a client for an OpenAI-compatible provider
func NewOpenAIProvider(p *models.Provider, apiKey string, client *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		id:      p.ID,
		name:    p.Name,
		auth:    authenticatorFor(p, apiKey),
		client:  client,
		baseURL: strings.TrimRight(p.BaseURL, "/"),
	}
}

// ID returns the provider ID
func (p *OpenAIProvider) ID() string {
	return p.id
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Type returns the provider type
func (p *OpenAIProvider) Type() models.RequestFormat {
	return models.FormatOpenAI
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
	Stream      bool            `json:"stream"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message *openAIMessage `json:"message"`
	} `json:"choices"`
	Usage *openAIUsage `json:"usage"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	// Some compatible servers report the newer field names instead
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Generate sends a chat completion request
func (p *OpenAIProvider) Generate(ctx context.Context, model *models.Model, req *models.GenerationRequest) (*models.GenerationResponse, error) {
	chatReq := openAIChatRequest{
		Model:       model.UpstreamID,
		Messages:    make([]openAIMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   model.ClampTokens(req.MaxTokens),
		Stream:      false,
	}
	for _, msg := range req.Messages {
		chatReq.Messages = append(chatReq.Messages, openAIMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for _, auth := range p.auth {
		auth.ApplyToRequest(httpReq)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", p.id, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", p.id, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.UpstreamError{Provider: p.id, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.InvalidResponseError(p.id, err.Error())
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message == nil {
		return nil, models.InvalidResponseError(p.id, "missing choices[0].message")
	}

	return &models.GenerationResponse{
		Content:  chatResp.Choices[0].Message.Content,
		Usage:    chatResp.Usage.normalize(),
		Model:    model.ID,
		Provider: p.id,
	}, nil
}

// normalize maps either naming scheme onto models.Usage.
func (u *openAIUsage) normalize() *models.Usage {
	if u == nil {
		return nil
	}

	usage := &models.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if usage.PromptTokens == 0 && u.InputTokens > 0 {
		usage.PromptTokens = u.InputTokens
	}
	if usage.CompletionTokens == 0 && u.OutputTokens > 0 {
		usage.CompletionTokens = u.OutputTokens
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}
