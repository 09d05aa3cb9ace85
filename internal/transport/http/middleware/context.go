package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDHeader carries the trace identifier between services.
const TraceIDHeader = "X-Trace-ID"

// Gin context keys set by the middleware chain.
const (
	TraceIDKey   = "trace_id"
	UserIDKey    = "user_id"
	ClientKeyKey = "client_key"

	requestContextKey = "request_context"
)

// RequestContext collects per-request metadata for logging and auditing.
type RequestContext struct {
	TraceID   string
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext seeds every request with a trace ID, honouring one supplied
// by the caller, and stashes a RequestContext for downstream middleware.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the request's trace ID, or "" outside the middleware chain.
func GetTraceID(c *gin.Context) string {
	id, _ := c.Value(TraceIDKey).(string)
	return id
}

// GetRequestContext never returns nil; callers outside the chain get an empty value.
func GetRequestContext(c *gin.Context) *RequestContext {
	if rc, ok := c.Value(requestContextKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{}
}
