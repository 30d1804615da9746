package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/botbase-io/botbase/internal/pipeline"
	"github.com/botbase-io/botbase/internal/validation"
)

// telegramUpdate is the subset of Telegram's Update object the pipeline
// needs. Unknown fields are ignored.
type telegramUpdate struct {
	Message struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// telegramWebhookHandler handles POST /webhook/telegram/:botToken.
func (s *Server) telegramWebhookHandler(c *gin.Context) {
	if !s.checkWebhookSecret(c) {
		return
	}

	botToken := c.Param("botToken")
	if !validation.IsValidBotToken(botToken) {
		// Malformed tokens cannot belong to any tenant; skip the pipeline.
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found", "message": "unknown bot token"})
		return
	}

	var update telegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed update payload"})
		return
	}

	result := s.pipeline.Process(c.Request.Context(), botToken, update.Message.Chat.ID, update.Message.Text)

	switch result.Outcome {
	case pipeline.OutcomeTenantNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found", "message": "unknown bot token"})
	case pipeline.OutcomeInternalError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "status": result})
	default:
		// Telegram only cares that we acknowledged the update. The outcome
		// body is for operators replaying webhooks by hand.
		c.JSON(http.StatusOK, gin.H{"status": result})
	}
}

// checkWebhookSecret verifies the shared secret Telegram echoes back on
// every webhook call. Development without a configured secret runs open.
func (s *Server) checkWebhookSecret(c *gin.Context) bool {
	secret := s.cfg.TelegramWebhookSecret
	if secret == "" && s.cfg.IsDevelopment() {
		return true
	}

	got := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "bad webhook secret"})
		return false
	}
	return true
}

// whatsappWebhookHandler handles POST /webhook/whatsapp/:token. WhatsApp
// delivery is not built; the endpoint acknowledges so providers do not
// endlessly redeliver.
func (s *Server) whatsappWebhookHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "not_implemented", "message": "WhatsApp channel is not yet available"})
}

// infoHandler handles GET /.
func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "BotBase",
		"description": "Multi-tenant knowledge-grounded support bots",
		"version":     "0.1.0",
		"env":         s.cfg.Env,
	})
}

// healthHandler handles GET /health, running all registered subsystem checks.
func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"env":       s.cfg.Env,
		"checks":    statuses,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
