package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_gateway/internal/models"
)

func googleDescriptor(baseURL string) *models.Provider {
	return &models.Provider{
		ID:        "google",
		Name:      "Google Gemini",
		BaseURL:   baseURL,
		APIKeyEnv: "GOOGLE_API_KEY",
		Auth:      models.AuthAPIKey,
		Format:    models.FormatGoogle,
	}
}

func geminiModel() *models.Model {
	return &models.Model{
		ID:         "gemini-1.5-flash",
		ProviderID: "google",
		UpstreamID: "gemini-1.5-flash",
		Tier:       models.TierFree,
		MaxTokens:  8192,
	}
}

func TestGoogleProvider_Generate(t *testing.T) {
	var captured googleRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Hello "}, {"text": "world"}]}}],
			"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 2, "totalTokenCount": 6}
		}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider(googleDescriptor(srv.URL+"/v1beta"), "g-key", srv.Client())
	resp, err := p.Generate(context.Background(), geminiModel(), &models.GenerationRequest{
		Temperature: 0.2,
		MaxTokens:   50000,
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: "You write blog posts."},
			{Role: models.RoleUser, Content: "Write about Go."},
			{Role: models.RoleAssistant, Content: "Sure."},
			{Role: models.RoleUser, Content: "Make it short."},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello world", resp.Content)
	assert.Equal(t, &models.Usage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6}, resp.Usage)
	assert.Equal(t, "gemini-1.5-flash", resp.Model)
	assert.Equal(t, "google", resp.Provider)

	assert.Equal(t, 8192, captured.GenerationConfig.MaxOutputTokens, "max tokens must be clamped")
	assert.Equal(t, 0.2, captured.GenerationConfig.Temperature)

	require.Len(t, captured.Contents, 3)
	for _, c := range captured.Contents {
		assert.NotEqual(t, "system", c.Role)
	}
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "You write blog posts.\n\nWrite about Go.", captured.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", captured.Contents[1].Role)
	assert.Equal(t, "Make it short.", captured.Contents[2].Parts[0].Text)
}

func TestGoogleProvider_MissingCandidates(t *testing.T) {
	bodies := map[string]string{
		"no candidates field":  `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		"empty candidates":     `{"candidates":[]}`,
		"candidate no content": `{"candidates":[{"finishReason":"SAFETY"}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			resp, err := NewGoogleProvider(googleDescriptor(srv.URL), "k", srv.Client()).Generate(context.Background(), geminiModel(),
				&models.GenerationRequest{Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}}})
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, models.ErrInvalidResponse)
			assert.Contains(t, err.Error(), "invalid response format from google")
		})
	}
}

func TestGoogleProvider_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	_, err := NewGoogleProvider(googleDescriptor(srv.URL), "k", srv.Client()).Generate(context.Background(), geminiModel(),
		&models.GenerationRequest{Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}}})
	assert.ErrorIs(t, err, models.ErrUpstreamStatus)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestToGoogleContents(t *testing.T) {
	t.Run("multiple system messages joined", func(t *testing.T) {
		got := toGoogleContents([]models.Message{
			{Role: models.RoleSystem, Content: "A"},
			{Role: models.RoleUser, Content: "question"},
			{Role: models.RoleSystem, Content: "B"},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "A\n\nB\n\nquestion", got[0].Parts[0].Text)
	})

	t.Run("system without user turn", func(t *testing.T) {
		got := toGoogleContents([]models.Message{
			{Role: models.RoleAssistant, Content: "earlier reply"},
			{Role: models.RoleSystem, Content: "rules"},
		})
		require.Len(t, got, 2)
		assert.Equal(t, "user", got[0].Role)
		assert.Equal(t, "rules", got[0].Parts[0].Text)
		assert.Equal(t, "model", got[1].Role)
	})

	t.Run("no system messages", func(t *testing.T) {
		got := toGoogleContents([]models.Message{{Role: models.RoleUser, Content: "plain"}})
		require.Len(t, got, 1)
		assert.Equal(t, "plain", got[0].Parts[0].Text)
	})
}

func TestRedactKey(t *testing.T) {
	err := redactKey(assert.AnError, "")
	assert.Equal(t, assert.AnError, err)

	wrapped := redactKey(&testErr{"Post https://x/models/m:generateContent?key=supersecret: dial tcp"}, "supersecret")
	assert.NotContains(t, wrapped.Error(), "supersecret")
	assert.Contains(t, wrapped.Error(), "REDACTED")
}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
