package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botbase-io/botbase/internal/directory"
	"github.com/botbase-io/botbase/internal/logging"
)

// Handler provides HTTP endpoints for billing.
type Handler struct {
	svc *Service
}

// NewHandler creates a new billing handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up billing routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/billing/checkout", h.CreateCheckout)
}

// CreateCheckout handles POST /v1/billing/checkout.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req struct {
		TenantID   string `json:"tenantId" binding:"required"`
		PlanID     string `json:"planId" binding:"required"`
		SuccessURL string `json:"successUrl" binding:"required"`
		CancelURL  string `json:"cancelUrl" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "tenantId, planId, successUrl and cancelUrl required",
		})
		return
	}

	url, err := h.svc.CreateCheckoutSession(c.Request.Context(), req.TenantID, req.PlanID, req.SuccessURL, req.CancelURL)
	switch {
	case errors.Is(err, ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing_unavailable", "message": "billing is not configured"})
	case errors.Is(err, directory.ErrTenantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found", "message": "unknown tenant"})
	case errors.Is(err, directory.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plan_not_found", "message": "unknown plan"})
	case err != nil:
		logging.L(c.Request.Context()).Error("checkout session failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "checkout_failed", "message": "could not create checkout session"})
	default:
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}
