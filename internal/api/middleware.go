package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"degree_planner/internal/metrics"
	"degree_planner/internal/service"
)

const requestIDHeader = "X-Request-ID"

// requestID takes the caller's X-Request-ID or assigns one, and puts it on
// the request context for response metadata.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(service.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// requestLogger attaches a request-scoped logger to the context and logs
// each request when it completes.
func requestLogger(logger logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logger.WithValues("requestId", c.Writer.Header().Get(requestIDHeader))
		c.Request = c.Request.WithContext(logr.NewContext(c.Request.Context(), reqLogger))

		c.Next()

		reqLogger.Info("Handled request",
			"method", c.Request.Method, "path", c.FullPath(),
			"status", c.Writer.Status(), "elapsed", time.Since(start))
	}
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// bearerAuth rejects requests without "Authorization: Bearer <token>".
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := extractBearerToken(c)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Status:    "error",
				ErrorCode: "UNAUTHORIZED",
				Message:   "missing or invalid bearer token",
			})
			return
		}
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
