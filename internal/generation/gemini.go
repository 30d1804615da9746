// Package generation produces knowledge-grounded replies via the Gemini API.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPDoer abstracts the HTTP client so tests can stub transport behavior.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GeminiConfig configures the Gemini API client.
type GeminiConfig struct {
	APIKey  string        // Required
	BaseURL string        // Optional, default https://generativelanguage.googleapis.com
	Model   string        // Optional, default gemini-1.5-flash
	Timeout time.Duration // Optional, default 30s
}

// GeminiClient is a minimal Gemini API client covering content generation
// and token counting.
type GeminiClient struct {
	apiKey  string
	baseURL string
	model   string
	client  HTTPDoer
}

const geminiAPIVersion = "v1beta"

// NewGeminiClient creates a Gemini client from config, applying defaults.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SetHTTPClient sets a custom HTTP client for testing.
func (g *GeminiClient) SetHTTPClient(client HTTPDoer) {
	g.client = client
}

// Internal API types

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates,omitempty"`
}

type countTokensResponse struct {
	TotalTokens int `json:"totalTokens"`
}

// Complete calls generateContent and returns the first candidate's text.
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{"text": prompt},
				},
			},
		},
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		g.baseURL, geminiAPIVersion, g.model, g.apiKey)

	var apiResp geminiResponse
	if err := g.post(ctx, url, body, &apiResp); err != nil {
		return "", err
	}

	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return apiResp.Candidates[0].Content.Parts[0].Text, nil
}

// CountTokens calls countTokens and returns the model's token count for text.
func (g *GeminiClient) CountTokens(ctx context.Context, text string) (int, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"text": text},
				},
			},
		},
	}

	url := fmt.Sprintf("%s/%s/models/%s:countTokens?key=%s",
		g.baseURL, geminiAPIVersion, g.model, g.apiKey)

	var apiResp countTokensResponse
	if err := g.post(ctx, url, body, &apiResp); err != nil {
		return 0, err
	}
	return apiResp.TotalTokens, nil
}

func (g *GeminiClient) post(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gemini: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return parseAPIError(resp.StatusCode, respBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini: decode response: %w", err)
	}
	return nil
}

// APIError represents a Gemini API error response.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error (status %d, %s): %s", e.StatusCode, e.Status, e.Message)
}

func parseAPIError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("gemini API error (status %d): %s", statusCode, string(body))
	}
	return &APIError{
		StatusCode: statusCode,
		Status:     errResp.Error.Status,
		Message:    errResp.Error.Message,
	}
}
