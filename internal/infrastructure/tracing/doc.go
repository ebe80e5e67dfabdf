/*
Package tracing provides lightweight request tracing for the document API.

Each HTTP request gets a span. Trace and span identifiers are prefixed
ULIDs; an incoming X-Trace-ID/X-Span-ID pair continues an existing trace.
Completed spans are logged through zap from a buffered collector.

# Usage

	tracer := tracing.New("docsandbox", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Trace Format

- X-Trace-ID: Unique identifier for entire request flow
- X-Span-ID: Identifier for current operation
- X-Request-ID: Echoed back, generated when absent
*/
package tracing
