package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/botbase-io/botbase/internal/logging"
	"github.com/botbase-io/botbase/internal/metrics"
	"github.com/botbase-io/botbase/internal/retry"
)

// Provider is the generation backend used by Generator.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CountTokens(ctx context.Context, text string) (int, error)
}

// FallbackReply is sent when the provider fails every attempt. The user
// still gets an answer; the failure only shows up in logs and metrics.
const FallbackReply = "Sorry, I'm having trouble answering right now. Please try again in a moment."

const promptTemplate = `You are a customer support agent. Your responses must be helpful, friendly, and professional.
Use the following knowledge base to answer the user's question.
If the answer is not in the knowledge base, state that you don't have that information and provide the company's support contact details from the knowledge base.

Knowledge Base:
---
%s
---

User's Question:
---
%s
---

Answer:`

const (
	maxAttempts = 3
	baseDelay   = 500 * time.Millisecond
)

// Generator produces replies with bounded retries and a guaranteed answer.
type Generator struct {
	provider Provider
}

// NewGenerator creates a generator over the given provider.
func NewGenerator(provider Provider) *Generator {
	return &Generator{provider: provider}
}

// Generate returns a reply to userMessage grounded in kbContext, plus the
// token count to charge. It never fails: provider errors and empty responses
// are retried up to 3 times, then the fallback reply is returned. Token
// counting falls back to a length/4 estimate when the counting calls fail.
func (g *Generator) Generate(ctx context.Context, userMessage, kbContext string) (string, int) {
	prompt := fmt.Sprintf(promptTemplate, kbContext, userMessage)

	timer := time.Now()
	var reply string
	err := retry.Do(ctx, maxAttempts, baseDelay, func() error {
		text, err := g.provider.Complete(ctx, prompt)
		if err != nil {
			metrics.GenerationAttemptsTotal.WithLabelValues("error").Inc()
			return err
		}
		if strings.TrimSpace(text) == "" {
			metrics.GenerationAttemptsTotal.WithLabelValues("empty").Inc()
			return fmt.Errorf("generation: empty response")
		}
		metrics.GenerationAttemptsTotal.WithLabelValues("success").Inc()
		reply = text
		return nil
	})
	metrics.GenerationDuration.Observe(time.Since(timer).Seconds())

	if err != nil {
		logging.L(ctx).Error("generation failed after retries, using fallback", "error", err)
		reply = FallbackReply
	}

	return reply, g.countTokens(ctx, userMessage, kbContext, reply)
}

// countTokens charges for the prompt inputs plus the reply. The provider's
// counter is authoritative; if either call fails the total is estimated at
// one token per four characters so quota accounting keeps moving.
func (g *Generator) countTokens(ctx context.Context, userMessage, kbContext, reply string) int {
	promptTokens, err := g.provider.CountTokens(ctx, userMessage+kbContext)
	if err != nil {
		logging.L(ctx).Warn("token count failed, estimating", "error", err)
		return estimateTokens(userMessage, kbContext, reply)
	}
	replyTokens, err := g.provider.CountTokens(ctx, reply)
	if err != nil {
		logging.L(ctx).Warn("token count failed, estimating", "error", err)
		return estimateTokens(userMessage, kbContext, reply)
	}
	return promptTokens + replyTokens
}

func estimateTokens(parts ...string) int {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	return total / 4
}
