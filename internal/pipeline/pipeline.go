// Package pipeline orchestrates inbound message processing: tenant
// resolution, quota enforcement, reply generation, usage accounting, and
// delivery. One Process call handles one inbound message end to end and
// always terminates in a well-defined outcome.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/botbase-io/botbase/internal/directory"
	"github.com/botbase-io/botbase/internal/logging"
	"github.com/botbase-io/botbase/internal/metrics"
	"github.com/botbase-io/botbase/internal/traces"
)

// Outcome is the terminal state of one pipeline run.
type Outcome string

const (
	OutcomeIgnored        Outcome = "ignored"
	OutcomeTenantNotFound Outcome = "tenant_not_found"
	OutcomeNoSubscription Outcome = "no_subscription"
	OutcomeQuotaExceeded  Outcome = "quota_exceeded"
	OutcomeReplied        Outcome = "replied"
	OutcomeInternalError  Outcome = "internal_error"
)

// User-visible notices. The quota and subscription wordings are load-bearing:
// tenants reference them in their own support documentation.
const (
	NoticeNoSubscription = "Error: No active subscription found."
	NoticeQuotaExceeded  = "Sorry, I can't answer right now. The token limit for this billing period has been exceeded."
	NoticeInternalError  = "Sorry, we're experiencing technical difficulties. Please try again later."
)

// MaxInboundLength caps inbound message text, in runes. Longer messages are
// truncated, never rejected.
const MaxInboundLength = 4096

// Directory resolves tenants and subscriptions.
type Directory interface {
	ResolveTenant(ctx context.Context, botToken string) (*directory.Tenant, error)
	ResolveActiveSubscription(ctx context.Context, tenantID string) (*directory.Subscription, *directory.Plan, error)
}

// Knowledge supplies tenant knowledge base context.
type Knowledge interface {
	Context(ctx context.Context, tenantID string) string
}

// Generator produces a reply and the token count to charge for it.
type Generator interface {
	Generate(ctx context.Context, userMessage, kbContext string) (string, int)
}

// UsageLedger meters token consumption per subscription.
type UsageLedger interface {
	TotalUsage(ctx context.Context, subscriptionID string, start, end time.Time) int
	RecordUsage(ctx context.Context, subscriptionID string, tokens int) bool
}

// Deliverer sends a message to an end user chat.
type Deliverer interface {
	Send(ctx context.Context, botToken string, chatID int64, text string) bool
}

// EventSink receives terminal pipeline outcomes, e.g. for a realtime feed.
type EventSink interface {
	PublishOutcome(tenantID string, outcome Outcome, tokens int)
}

// Result describes how a pipeline run terminated.
type Result struct {
	Outcome    Outcome `json:"outcome"`
	Reply      string  `json:"reply,omitempty"`
	TokensUsed int     `json:"tokensUsed"`
	Delivered  bool    `json:"delivered"`
}

// Pipeline wires the processing stages together.
type Pipeline struct {
	dir       Directory
	knowledge Knowledge
	generator Generator
	ledger    UsageLedger
	deliverer Deliverer
	sink      EventSink
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEventSink publishes terminal outcomes to sink.
func WithEventSink(sink EventSink) Option {
	return func(p *Pipeline) { p.sink = sink }
}

// New creates a pipeline over the given stages.
func New(dir Directory, knowledge Knowledge, generator Generator, ledger UsageLedger, deliverer Deliverer, opts ...Option) *Pipeline {
	p := &Pipeline{
		dir:       dir,
		knowledge: knowledge,
		generator: generator,
		ledger:    ledger,
		deliverer: deliverer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one inbound message and always returns a Result. Panics
// from any stage are recovered here: the user gets a best-effort generic
// notice and the run terminates as an internal error.
func (p *Pipeline) Process(ctx context.Context, botToken string, chatID int64, text string) (result Result) {
	ctx, span := traces.StartSpan(ctx, "pipeline.process", traces.ChatID(chatID))
	defer span.End()

	var tenantID string
	defer func() {
		if r := recover(); r != nil {
			logging.L(ctx).Error("pipeline panic recovered", "panic", r)
			delivered := p.deliverer.Send(ctx, botToken, chatID, NoticeInternalError)
			result = Result{Outcome: OutcomeInternalError, Reply: NoticeInternalError, Delivered: delivered}
		}
		span.SetAttributes(traces.Outcome(string(result.Outcome)), traces.Tokens(result.TokensUsed))
		metrics.MessagesProcessedTotal.WithLabelValues(string(result.Outcome)).Inc()
		if p.sink != nil {
			p.sink.PublishOutcome(tenantID, result.Outcome, result.TokensUsed)
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Outcome: OutcomeIgnored}
	}
	if runes := []rune(text); len(runes) > MaxInboundLength {
		text = string(runes[:MaxInboundLength])
	}

	tenant, err := p.dir.ResolveTenant(ctx, botToken)
	if err != nil {
		// Unknown or unresolvable token. Nothing is sent: replying would
		// leak that the endpoint exists.
		return Result{Outcome: OutcomeTenantNotFound}
	}
	tenantID = tenant.ID
	span.SetAttributes(traces.TenantID(tenant.ID))
	log := logging.L(ctx).With("tenant_id", tenant.ID)

	sub, plan, err := p.dir.ResolveActiveSubscription(ctx, tenant.ID)
	if err != nil {
		log.Warn("message rejected, no active subscription")
		delivered := p.deliverer.Send(ctx, botToken, chatID, NoticeNoSubscription)
		return Result{Outcome: OutcomeNoSubscription, Reply: NoticeNoSubscription, Delivered: delivered}
	}
	span.SetAttributes(traces.SubscriptionID(sub.ID))

	kbContext := p.knowledge.Context(ctx, tenant.ID)

	// Generation runs before the quota gate: the charge is measured, not
	// estimated, so a message is denied only when its real cost would
	// cross the limit. Two concurrent messages can both pass the gate and
	// overshoot by one reply; the overshoot is bounded and accepted.
	reply, tokens := p.generator.Generate(ctx, text, kbContext)

	used := p.ledger.TotalUsage(ctx, sub.ID, sub.StartDate, sub.EndDate)
	if used+tokens > plan.TokenLimit {
		log.Warn("quota exceeded", "used", used, "requested", tokens, "limit", plan.TokenLimit)
		metrics.QuotaDenialsTotal.Inc()
		delivered := p.deliverer.Send(ctx, botToken, chatID, NoticeQuotaExceeded)
		return Result{Outcome: OutcomeQuotaExceeded, Reply: NoticeQuotaExceeded, Delivered: delivered}
	}

	if !p.ledger.RecordUsage(ctx, sub.ID, tokens) {
		log.Warn("usage not recorded, replying anyway", "tokens", tokens)
	}

	delivered := p.deliverer.Send(ctx, botToken, chatID, reply)
	log.Info("message processed", "tokens", tokens, "delivered", delivered)
	return Result{Outcome: OutcomeReplied, Reply: reply, TokensUsed: tokens, Delivered: delivered}
}
