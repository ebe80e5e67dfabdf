package tracing

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/shared/id"
)

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// HTTPMiddleware creates Gin middleware for HTTP tracing
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID, parentID := ExtractTraceContext(map[string]string{
			TraceHeader: c.GetHeader(TraceHeader),
			SpanHeader:  c.GetHeader(SpanHeader),
		})

		ctx := c.Request.Context()
		if traceID != "" {
			ctx = context.WithValue(ctx, traceIDKey, traceID)
		}
		if parentID != "" {
			ctx = context.WithValue(ctx, spanIDKey, parentID)
		}

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.url", c.Request.URL.String())
		if docID := c.Query("id"); docID != "" {
			span.SetTag("document.id", docID)
		}

		requestID := c.GetHeader(RequestHeader)
		if !isRequestID(requestID) {
			requestID = id.NewRequestID().String()
		}
		span.SetTag("request.id", requestID)
		c.Set(RequestIDKey, requestID)

		c.Request = c.Request.WithContext(ctx)

		headers := map[string]string{RequestHeader: requestID}
		InjectTraceContext(ctx, headers)
		for k, v := range headers {
			c.Header(k, v)
		}

		c.Next()

		span.SetStatus(c.Writer.Status())
		span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}

		span.Finish()
		tracer.Submit(span)
	}
}

// isRequestID accepts only IDs this service could have issued, so arbitrary
// header text never reaches the logs.
func isRequestID(s string) bool {
	prefix, _, err := id.SplitPrefixed(s)
	return err == nil && prefix == id.RequestPrefix
}
