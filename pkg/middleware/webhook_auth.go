package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/auth"
	"github.com/kesslerio/dialpad-openclaw-skill/pkg/logger"
)

// MaxBodySize caps webhook request bodies before parsing, so a
// misbehaving sender cannot exhaust memory.
const MaxBodySize = 1 << 20 // 1 MiB

// RawBodyKey is the gin context key under which the verified raw request
// body is stored for handlers.
const RawBodyKey = "rawBody"

// AuthMethodKey is the gin context key carrying the auth method that
// accepted the request.
const AuthMethodKey = "authMethod"

// WebhookAuth reads the capped raw request body, verifies the HMAC
// signature or bearer JWT against it, and stashes the raw bytes in the
// context. Verification must run over the exact received bytes, which is
// why the middleware owns body reading rather than the handler.
func WebhookAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		reader := http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize)
		rawBody, err := io.ReadAll(reader)
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

		ok, method := auth.Verify(c.Request.Header, rawBody, secret)
		if !ok {
			logger.Warn("Unauthorized webhook request")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set(RawBodyKey, rawBody)
		c.Set(AuthMethodKey, method)
		c.Next()
	}
}

// BodyLimit caps the request body without authentication, for endpoints
// that skip signature verification.
func BodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize)
		c.Next()
	}
}
