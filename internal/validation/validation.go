// Package validation provides input validation middleware for the BotBase API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// botTokenRegex matches the Telegram bot token shape: numeric bot ID, a
// colon, then the secret part.
var botTokenRegex = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]{10,}$`)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidBotToken checks if a string is shaped like a Telegram bot token.
func IsValidBotToken(token string) bool {
	return botTokenRegex.MatchString(token)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}
