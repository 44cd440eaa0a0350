// Package httpx provides the gin middleware shared by every HTTP surface.
package httpx

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/louisbranch/formrpc/internal/platform/httpconst"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/i18n/i18nhttp"
	"github.com/louisbranch/formrpc/internal/platform/requestctx"
	"github.com/louisbranch/formrpc/internal/platform/response"
)

// RequestID injects and echoes a request id for correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(httpconst.HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set(httpconst.HeaderRequestID, requestID)
		}
		c.Header(httpconst.HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(requestctx.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// Language resolves the request language, persists it in the language cookie
// when the request expressed a preference, and stores the translator in the
// request context.
func Language() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request, _ = i18nhttp.Apply(c.Writer, c.Request)
		c.Next()
	}
}

// RequestLogger logs every request with a level derived from its status.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Str("request_id", requestctx.RequestIDFromContext(c.Request.Context())).
			Msg("http_request")
	}
}

// RecoverPanic converts panics into a translated internal server error payload.
func RecoverPanic(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			logger.Error().
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("request_id", requestctx.RequestIDFromContext(c.Request.Context())).
				Str("panic", fmt.Sprint(recovered)).
				Str("stack", strings.TrimSpace(string(debug.Stack()))).
				Msg("panic recovered")
			tr := i18n.FromContext(c.Request.Context())
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Fail[struct{}](i18n.InternalServerError(tr), nil))
		}()
		c.Next()
	}
}

// NoStore marks responses as uncacheable.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(httpconst.HeaderCacheControl, "no-store")
		c.Next()
	}
}
