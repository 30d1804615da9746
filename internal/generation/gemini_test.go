package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gemini-1.5-flash",
	})
	require.NoError(t, err)
	return client, srv
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(GeminiConfig{})
	assert.Error(t, err)
}

func TestComplete_ParsesCandidateText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, ":generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "contents")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "Hello from Gemini"}]}, "finishReason": "STOP"}]
		}`))
	})

	text, err := client.Complete(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello from Gemini", text)
}

func TestComplete_EmptyCandidatesIsError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})

	_, err := client.Complete(context.Background(), "say hello")
	assert.Error(t, err)
}

func TestComplete_APIErrorIsParsed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exhausted", "status": "RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.Complete(context.Background(), "say hello")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "RESOURCE_EXHAUSTED", apiErr.Status)
	assert.Contains(t, apiErr.Message, "quota exhausted")
}

func TestCountTokens(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.Path, ":countTokens"))
		_, _ = w.Write([]byte(`{"totalTokens": 42}`))
	})

	n, err := client.CountTokens(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}
