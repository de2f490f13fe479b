package host

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"vendor-onboarding/internal/common/auth"
	"vendor-onboarding/internal/common/errors"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	principalKey    = "principal"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// AuthMiddleware resolves the bearer token into a Principal.
func AuthMiddleware(verifier auth.Verifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		p, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeAuthenticationFailure) {
				response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
				return
			}
			log.Error("token verification unavailable", map[string]interface{}{
				"requestId": c.GetString(requestIDKey),
				"error":     err.Error(),
			})
			response.Abort(c, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication service unavailable")
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequestLogger assigns a request id and logs each request once it finishes.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		c.Next()

		fields := map[string]interface{}{
			"requestId":  id,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"clientIp":   c.ClientIP(),
		}
		if p, ok := c.Get(principalKey); ok {
			fields["vendorId"] = p.(*auth.Principal).VendorID
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", fields)
		case status >= http.StatusBadRequest:
			log.Warn("request rejected", fields)
		default:
			log.Info("request completed", fields)
		}
	}
}

// Recovery turns panics into a 500 envelope and logs the stack.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("panic recovered", map[string]interface{}{
					"requestId": c.GetString(requestIDKey),
					"panic":     fmt.Sprintf("%v", recovered),
					"stack":     string(debug.Stack()),
				})
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}
		}()
		c.Next()
	}
}
