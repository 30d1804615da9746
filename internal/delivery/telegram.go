// Package delivery sends replies back to end users over the Telegram Bot API.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/botbase-io/botbase/internal/circuitbreaker"
	"github.com/botbase-io/botbase/internal/logging"
	"github.com/botbase-io/botbase/internal/metrics"
	"github.com/botbase-io/botbase/internal/retry"
)

// MaxMessageLength is Telegram's hard cap on message text, in characters.
const MaxMessageLength = 4096

const (
	maxAttempts = 3
	baseDelay   = 500 * time.Millisecond

	// breakerThreshold consecutive failed sends for the same bot token trip
	// its circuit; a revoked token then stops burning retry budget on every
	// incoming message until the next probe.
	breakerThreshold = 5
	breakerOpenFor   = time.Minute
)

// HTTPDoer abstracts the HTTP client so tests can stub transport behavior.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TelegramClient delivers messages via the Telegram Bot API.
type TelegramClient struct {
	baseURL string
	client  HTTPDoer
	breaker *circuitbreaker.Breaker
}

// NewTelegramClient creates a delivery client. baseURL defaults to the
// public Telegram API.
func NewTelegramClient(baseURL string) *TelegramClient {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		breaker: circuitbreaker.New(breakerThreshold, breakerOpenFor),
	}
}

// SetHTTPClient sets a custom HTTP client for testing.
func (t *TelegramClient) SetHTTPClient(client HTTPDoer) {
	t.client = client
}

// Send delivers text to a chat, truncating to Telegram's length cap. Up to
// 3 attempts: transport errors and 5xx back off exponentially, HTTP 429
// honors the retry_after hint from the response body, and any other 4xx is
// treated as permanent. Returns whether delivery succeeded; the reply is
// considered lost after exhaustion.
func (t *TelegramClient) Send(ctx context.Context, botToken string, chatID int64, text string) bool {
	if !t.breaker.Allow(botToken) {
		metrics.DeliveryAttemptsTotal.WithLabelValues("circuit_open").Inc()
		logging.L(ctx).Warn("delivery skipped, circuit open", "chat_id", chatID)
		return false
	}

	if runes := []rune(text); len(runes) > MaxMessageLength {
		text = string(runes[:MaxMessageLength])
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, botToken)
	payload, err := json.Marshal(map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return false
	}

	err = retry.Do(ctx, maxAttempts, baseDelay, func() error {
		return t.attempt(ctx, url, payload)
	})
	if err != nil {
		t.breaker.RecordFailure(botToken)
		metrics.DeliveryAttemptsTotal.WithLabelValues("failure").Inc()
		logging.L(ctx).Error("delivery failed, reply lost", "chat_id", chatID, "error", err)
		return false
	}

	t.breaker.RecordSuccess(botToken)
	metrics.DeliveryAttemptsTotal.WithLabelValues("success").Inc()
	return true
}

func (t *TelegramClient) attempt(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		// Telegram tells us how long to wait. Honor it, then let the
		// retry loop take the next attempt.
		wait := retryAfter(resp.Body)
		select {
		case <-ctx.Done():
			return retry.Permanent(ctx.Err())
		case <-time.After(wait):
		}
		return fmt.Errorf("telegram: rate limited, waited %s", wait)
	case resp.StatusCode >= 500:
		return fmt.Errorf("telegram: server error %d", resp.StatusCode)
	default:
		// Bad chat ID, revoked bot token, malformed request. Retrying
		// cannot help.
		body, _ := io.ReadAll(resp.Body)
		return retry.Permanent(fmt.Errorf("telegram: rejected with %d: %s", resp.StatusCode, body))
	}
}

// retryAfter parses parameters.retry_after from a 429 response body.
func retryAfter(body io.Reader) time.Duration {
	var resp struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil || resp.Parameters.RetryAfter <= 0 {
		return time.Second
	}
	return time.Duration(resp.Parameters.RetryAfter) * time.Second
}
