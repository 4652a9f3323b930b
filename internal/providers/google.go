package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"content_gateway/internal/models"
)

// GoogleProvider speaks the Gemini generateContent REST format.
// The API key travels in the query string.
type GoogleProvider struct {
	id      string
	name    string
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewGoogleProvider creates a client for a Google-format provider
func NewGoogleProvider(p *models.Provider, apiKey string, client *http.Client) *GoogleProvider {
	return &GoogleProvider{
		id:      p.ID,
		name:    p.Name,
		apiKey:  apiKey,
		client:  client,
		baseURL: strings.TrimRight(p.BaseURL, "/"),
	}
}

func (p *GoogleProvider) ID() string                 { return p.id }
func (p *GoogleProvider) Name() string               { return p.name }
func (p *GoogleProvider) Type() models.RequestFormat { return models.FormatGoogle }

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

type googleGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type googleRequest struct {
	Contents         []googleContent        `json:"contents"`
	GenerationConfig googleGenerationConfig `json:"generationConfig"`
}

type googleResponse struct {
	Candidates []struct {
		Content *googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// toGoogleContents reshapes chat messages for an API without a system role:
// system text is prepended to the first user turn and assistant becomes model.
func toGoogleContents(messages []models.Message) []googleContent {
	var system []string
	contents := make([]googleContent, 0, len(messages))
	firstUser := -1

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, msg.Content)
		case models.RoleAssistant:
			contents = append(contents, googleContent{Role: "model", Parts: []googlePart{{Text: msg.Content}}})
		default:
			if firstUser < 0 {
				firstUser = len(contents)
			}
			contents = append(contents, googleContent{Role: "user", Parts: []googlePart{{Text: msg.Content}}})
		}
	}

	if len(system) == 0 {
		return contents
	}

	prefix := strings.Join(system, "\n\n")
	if firstUser < 0 {
		return append([]googleContent{{Role: "user", Parts: []googlePart{{Text: prefix}}}}, contents...)
	}
	turn := &contents[firstUser]
	turn.Parts[0].Text = prefix + "\n\n" + turn.Parts[0].Text
	return contents
}

// Generate sends a generateContent request
func (p *GoogleProvider) Generate(ctx context.Context, model *models.Model, req *models.GenerationRequest) (*models.GenerationResponse, error) {
	body, err := json.Marshal(googleRequest{
		Contents: toGoogleContents(req.Messages),
		GenerationConfig: googleGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: model.ClampTokens(req.MaxTokens),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.baseURL, url.PathEscape(model.UpstreamID), url.QueryEscape(p.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		// url.Error embeds the request URL, which carries the key.
		return nil, fmt.Errorf("request to %s failed: %w", p.id, redactKey(err, p.apiKey))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", p.id, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.UpstreamError{Provider: p.id, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var genResp googleResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, models.InvalidResponseError(p.id, err.Error())
	}
	if len(genResp.Candidates) == 0 || genResp.Candidates[0].Content == nil {
		return nil, models.InvalidResponseError(p.id, "missing candidates[0].content")
	}

	var text strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	out := &models.GenerationResponse{
		Content:  text.String(),
		Model:    model.ID,
		Provider: p.id,
	}
	if meta := genResp.UsageMetadata; meta != nil {
		out.Usage = &models.Usage{
			PromptTokens:     meta.PromptTokenCount,
			CompletionTokens: meta.CandidatesTokenCount,
			TotalTokens:      meta.TotalTokenCount,
		}
	}
	return out, nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}
