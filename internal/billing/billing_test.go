package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/botbase-io/botbase/internal/directory"
)

type fakeSessions struct {
	lastParams *stripe.CheckoutSessionParams
	url        string
	err        error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{URL: f.url}, nil
}

func seedStore(t *testing.T) *directory.MemoryStore {
	t.Helper()
	store := directory.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateTenant(ctx, &directory.Tenant{
		ID: "tnt_1", BotToken: "123:abc", Name: "Acme",
	}))
	require.NoError(t, store.CreatePlan(ctx, &directory.Plan{
		ID: "plan_pro", Name: "Pro", TokenLimit: 100000, PriceCents: 9900,
		StripePriceID: "price_123",
	}))
	require.NoError(t, store.CreatePlan(ctx, &directory.Plan{
		ID: "plan_legacy", Name: "Legacy", TokenLimit: 1000,
	}))
	return store
}

func TestCreateCheckoutSession(t *testing.T) {
	sessions := &fakeSessions{url: "https://checkout.stripe.com/pay/cs_123"}
	svc := NewWithSessions(sessions, seedStore(t))

	url, err := svc.CreateCheckoutSession(context.Background(), "tnt_1", "plan_pro",
		"https://app.example.com/success", "https://app.example.com/cancel")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_123", url)

	require.NotNil(t, sessions.lastParams)
	assert.Equal(t, "price_123", *sessions.lastParams.LineItems[0].Price)
	assert.Equal(t, "tnt_1", *sessions.lastParams.ClientReferenceID)
	assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *sessions.lastParams.Mode)
}

func TestCreateCheckoutSession_NotConfigured(t *testing.T) {
	svc := New("", seedStore(t))
	assert.False(t, svc.Configured())

	_, err := svc.CreateCheckoutSession(context.Background(), "tnt_1", "plan_pro", "s", "c")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateCheckoutSession_UnknownTenant(t *testing.T) {
	svc := NewWithSessions(&fakeSessions{url: "u"}, seedStore(t))

	_, err := svc.CreateCheckoutSession(context.Background(), "tnt_nope", "plan_pro", "s", "c")
	assert.ErrorIs(t, err, directory.ErrTenantNotFound)
}

func TestCreateCheckoutSession_PlanWithoutPrice(t *testing.T) {
	svc := NewWithSessions(&fakeSessions{url: "u"}, seedStore(t))

	_, err := svc.CreateCheckoutSession(context.Background(), "tnt_1", "plan_legacy", "s", "c")
	assert.Error(t, err)
}

func newRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/v1"))
	return router
}

func postCheckout(router *gin.Engine, body map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/billing/checkout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCreateCheckout_Handler(t *testing.T) {
	router := newRouter(NewWithSessions(&fakeSessions{url: "https://checkout.stripe.com/pay/cs_9"}, seedStore(t)))

	w := postCheckout(router, map[string]string{
		"tenantId": "tnt_1", "planId": "plan_pro",
		"successUrl": "https://s", "cancelUrl": "https://c",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checkout.stripe.com")
}

func TestCreateCheckout_Handler_Unconfigured(t *testing.T) {
	router := newRouter(New("", seedStore(t)))

	w := postCheckout(router, map[string]string{
		"tenantId": "tnt_1", "planId": "plan_pro",
		"successUrl": "https://s", "cancelUrl": "https://c",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateCheckout_Handler_MissingFields(t *testing.T) {
	router := newRouter(NewWithSessions(&fakeSessions{}, seedStore(t)))

	w := postCheckout(router, map[string]string{"tenantId": "tnt_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCheckout_Handler_StripeFailure(t *testing.T) {
	router := newRouter(NewWithSessions(&fakeSessions{err: errors.New("stripe down")}, seedStore(t)))

	w := postCheckout(router, map[string]string{
		"tenantId": "tnt_1", "planId": "plan_pro",
		"successUrl": "https://s", "cancelUrl": "https://c",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
