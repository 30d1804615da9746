package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botbase-io/botbase/internal/directory"
	"github.com/botbase-io/botbase/internal/knowledge"
	"github.com/botbase-io/botbase/internal/usage"
)

// stubGenerator returns a fixed reply and token count.
type stubGenerator struct {
	reply  string
	tokens int
	panics bool
}

func (s *stubGenerator) Generate(ctx context.Context, userMessage, kbContext string) (string, int) {
	if s.panics {
		panic("generator exploded")
	}
	return s.reply, s.tokens
}

// fakeDeliverer records every send.
type fakeDeliverer struct {
	sent []string
	ok   bool
}

func (f *fakeDeliverer) Send(ctx context.Context, botToken string, chatID int64, text string) bool {
	f.sent = append(f.sent, text)
	return f.ok
}

type fixture struct {
	pipeline  *Pipeline
	store     *directory.MemoryStore
	ledger    *usage.Ledger
	deliverer *fakeDeliverer
	sub       *directory.Subscription
}

// newFixture seeds one tenant on a 1000-token plan with an active
// subscription and returns a ready pipeline.
func newFixture(t *testing.T, gen Generator) *fixture {
	t.Helper()
	ctx := context.Background()

	store := directory.NewMemoryStore()
	require.NoError(t, store.CreateTenant(ctx, &directory.Tenant{
		ID: "tnt_1", BotToken: "123:abc", Name: "Acme",
	}))
	require.NoError(t, store.CreatePlan(ctx, &directory.Plan{
		ID: "plan_1", Name: "Basic", TokenLimit: 1000,
	}))
	sub := &directory.Subscription{
		ID:        "sub_1",
		TenantID:  "tnt_1",
		PlanID:    "plan_1",
		StartDate: time.Now().Add(-24 * time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
		IsActive:  true,
	}
	require.NoError(t, store.CreateSubscription(ctx, sub))

	kbStore := knowledge.NewMemoryStore()
	require.NoError(t, kbStore.CreateFragment(ctx, &knowledge.Fragment{
		ID: "f1", TenantID: "tnt_1", Content: "We sell widgets.",
	}))

	ledger := usage.NewLedger(usage.NewMemoryStore())
	deliverer := &fakeDeliverer{ok: true}

	p := New(directory.New(store), knowledge.NewRetriever(kbStore), gen, ledger, deliverer)
	return &fixture{pipeline: p, store: store, ledger: ledger, deliverer: deliverer, sub: sub}
}

func (f *fixture) usedTokens(t *testing.T) int {
	t.Helper()
	return f.ledger.TotalUsage(context.Background(), f.sub.ID, f.sub.StartDate, f.sub.EndDate)
}

func TestProcess_HappyPath(t *testing.T) {
	f := newFixture(t, &stubGenerator{reply: "We sell widgets!", tokens: 100})

	res := f.pipeline.Process(context.Background(), "123:abc", 42, "what do you sell?")

	assert.Equal(t, OutcomeReplied, res.Outcome)
	assert.Equal(t, "We sell widgets!", res.Reply)
	assert.Equal(t, 100, res.TokensUsed)
	assert.True(t, res.Delivered)
	require.Len(t, f.deliverer.sent, 1)
	assert.Equal(t, 100, f.usedTokens(t))
}

func TestProcess_EmptyTextIgnored(t *testing.T) {
	f := newFixture(t, &stubGenerator{reply: "x", tokens: 1})

	for _, text := range []string{"", "   ", "\n\t "} {
		res := f.pipeline.Process(context.Background(), "123:abc", 42, text)
		assert.Equal(t, OutcomeIgnored, res.Outcome)
	}
	assert.Empty(t, f.deliverer.sent, "ignored messages must not trigger delivery")
	assert.Zero(t, f.usedTokens(t))
}

func TestProcess_UnknownBotToken(t *testing.T) {
	f := newFixture(t, &stubGenerator{reply: "x", tokens: 1})

	res := f.pipeline.Process(context.Background(), "999:zzz", 42, "hello")

	assert.Equal(t, OutcomeTenantNotFound, res.Outcome)
	assert.Empty(t, f.deliverer.sent, "unknown tokens must not be replied to")
}

func TestProcess_NoActiveSubscription(t *testing.T) {
	f := newFixture(t, &stubGenerator{reply: "x", tokens: 1})
	ctx := context.Background()

	// A second tenant without any subscription.
	require.NoError(t, f.store.CreateTenant(ctx, &directory.Tenant{
		ID: "tnt_2", BotToken: "456:def", Name: "NoSub Co",
	}))

	res := f.pipeline.Process(ctx, "456:def", 42, "hello")

	assert.Equal(t, OutcomeNoSubscription, res.Outcome)
	require.Len(t, f.deliverer.sent, 1)
	assert.Equal(t, NoticeNoSubscription, f.deliverer.sent[0])
}

func TestProcess_QuotaDenial(t *testing.T) {
	f := newFixture(t, &stubGenerator{reply: "expensive answer", tokens: 600})
	ctx := context.Background()

	// First message consumes 600 of 1000.
	res := f.pipeline.Process(ctx, "123:abc", 42, "first")
	require.Equal(t, OutcomeReplied, res.Outcome)

	// Second would reach 1200 > 1000: denied, nothing recorded.
	res = f.pipeline.Process(ctx, "123:abc", 42, "second")
	assert.Equal(t, OutcomeQuotaExceeded, res.Outcome)
	assert.Equal(t, NoticeQuotaExceeded, res.Reply)
	assert.Zero(t, res.TokensUsed)
	assert.Equal(t, 600, f.usedTokens(t), "denied messages must not be charged")

	require.Len(t, f.deliverer.sent, 2)
	assert.Equal(t, NoticeQuotaExceeded, f.deliverer.sent[1])
}

func TestProcess_QuotaBoundaryIsAllowed(t *testing.T) {
	// 500 + 500 lands exactly on the 1000 limit: both allowed.
	f := newFixture(t, &stubGenerator{reply: "answer", tokens: 500})
	ctx := context.Background()

	res := f.pipeline.Process(ctx, "123:abc", 42, "first")
	assert.Equal(t, OutcomeReplied, res.Outcome)

	res = f.pipeline.Process(ctx, "123:abc", 42, "second")
	assert.Equal(t, OutcomeReplied, res.Outcome, "usage equal to the limit is allowed")
	assert.Equal(t, 1000, f.usedTokens(t))

	// The next token crosses the line.
	res = f.pipeline.Process(ctx, "123:abc", 42, "third")
	assert.Equal(t, OutcomeQuotaExceeded, res.Outcome)
}

func TestProcess_EmptyKnowledgeStillReplies(t *testing.T) {
	f := newFixture(t, &stubGenerator{reply: "generic answer", tokens: 10})
	ctx := context.Background()

	// A tenant with no fragments at all.
	require.NoError(t, f.store.CreateTenant(ctx, &directory.Tenant{
		ID: "tnt_3", BotToken: "789:ghi", Name: "Fresh Co",
	}))
	require.NoError(t, f.store.CreateSubscription(ctx, &directory.Subscription{
		ID: "sub_3", TenantID: "tnt_3", PlanID: "plan_1",
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour),
		IsActive: true,
	}))

	res := f.pipeline.Process(ctx, "789:ghi", 42, "hello")
	assert.Equal(t, OutcomeReplied, res.Outcome, "missing knowledge must not block replies")
}

func TestProcess_OverlongInputTruncated(t *testing.T) {
	var seenLen int
	gen := generatorFunc(func(ctx context.Context, msg, kb string) (string, int) {
		seenLen = len([]rune(msg))
		return "ok", 1
	})
	f := newFixture(t, gen)

	res := f.pipeline.Process(context.Background(), "123:abc", 42, strings.Repeat("a", MaxInboundLength+1000))
	assert.Equal(t, OutcomeReplied, res.Outcome, "overlong input is truncated, not rejected")
	assert.Equal(t, MaxInboundLength, seenLen)
}

func TestProcess_PanicRecovered(t *testing.T) {
	f := newFixture(t, &stubGenerator{panics: true})

	res := f.pipeline.Process(context.Background(), "123:abc", 42, "boom")

	assert.Equal(t, OutcomeInternalError, res.Outcome)
	require.Len(t, f.deliverer.sent, 1)
	assert.Equal(t, NoticeInternalError, f.deliverer.sent[0])
	assert.Zero(t, f.usedTokens(t), "failed runs must not be charged")
}

func TestProcess_DeliveryFailureStillCharges(t *testing.T) {
	f := newFixture(t, &stubGenerator{reply: "answer", tokens: 50})
	f.deliverer.ok = false

	res := f.pipeline.Process(context.Background(), "123:abc", 42, "hello")

	assert.Equal(t, OutcomeReplied, res.Outcome)
	assert.False(t, res.Delivered)
	assert.Equal(t, 50, f.usedTokens(t), "usage is recorded before delivery")
}

func TestProcess_PublishesOutcomes(t *testing.T) {
	f := newFixture(t, &stubGenerator{reply: "x", tokens: 5})

	sink := &captureSink{}
	p := New(directory.New(f.store), knowledge.NewRetriever(knowledge.NewMemoryStore()),
		&stubGenerator{reply: "x", tokens: 5}, f.ledger, f.deliverer, WithEventSink(sink))

	p.Process(context.Background(), "123:abc", 42, "hello")

	require.Len(t, sink.events, 1)
	assert.Equal(t, "tnt_1", sink.events[0].tenantID)
	assert.Equal(t, OutcomeReplied, sink.events[0].outcome)
}

type generatorFunc func(ctx context.Context, userMessage, kbContext string) (string, int)

func (f generatorFunc) Generate(ctx context.Context, userMessage, kbContext string) (string, int) {
	return f(ctx, userMessage, kbContext)
}

type sinkEvent struct {
	tenantID string
	outcome  Outcome
	tokens   int
}

type captureSink struct {
	events []sinkEvent
}

func (c *captureSink) PublishOutcome(tenantID string, outcome Outcome, tokens int) {
	c.events = append(c.events, sinkEvent{tenantID, outcome, tokens})
}
