package tracing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/shared/id"
)

// Header names used for trace propagation.
const (
	TraceHeader   = "X-Trace-ID"
	SpanHeader    = "X-Span-ID"
	RequestHeader = "X-Request-ID"
)

// TraceID represents a unique trace identifier
type TraceID string

// SpanID represents a unique span identifier
type SpanID string

// Span represents a single operation in a trace
type Span struct {
	TraceID    TraceID
	SpanID     SpanID
	ParentID   SpanID
	Name       string
	Service    string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Tags       map[string]string
	Error      error
	StatusCode int
}

// Tracer logs completed spans from a buffered collector goroutine.
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// New creates a new tracer instance
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, 1000),
		done:    make(chan struct{}),
	}

	go t.collectSpans()

	return t
}

// StartSpan creates a new span, continuing the trace carried by ctx if any.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = TraceID(id.NewTraceID())
	}

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.NewSpanID()),
		ParentID:  GetSpanID(ctx),
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, spanIDKey, span.SpanID)

	return span, newCtx
}

// Finish marks the span as complete
func (s *Span) Finish() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records an error in the span
func (s *Span) SetError(err error) {
	s.Error = err
	if s.StatusCode == 0 {
		s.StatusCode = 500
	}
}

// SetStatus sets the HTTP status code
func (s *Span) SetStatus(code int) {
	s.StatusCode = code
}

// collectSpans processes completed spans
func (t *Tracer) collectSpans() {
	defer close(t.done)
	for span := range t.spans {
		t.processSpan(span)
	}
}

// processSpan logs span data
func (t *Tracer) processSpan(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
		zap.String("service", span.Service),
		zap.Int("status", span.StatusCode),
	}

	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}
	for k, v := range span.Tags {
		fields = append(fields, zap.String(k, v))
	}

	if span.Error != nil {
		fields = append(fields, zap.Error(span.Error))
		t.logger.Error("span completed with error", fields...)
	} else {
		t.logger.Debug("span completed", fields...)
	}
}

// Submit sends a span to the collector. Spans submitted after Close are
// dropped.
func (t *Tracer) Submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
		)
	}
}

// Close stops accepting spans and waits until the buffered ones are logged.
func (t *Tracer) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		close(t.spans)
		t.mu.Unlock()
	})
	<-t.done
}

// ExtractTraceContext extracts trace context from headers
func ExtractTraceContext(headers map[string]string) (TraceID, SpanID) {
	return TraceID(headers[TraceHeader]), SpanID(headers[SpanHeader])
}

// InjectTraceContext injects trace context into headers
func InjectTraceContext(ctx context.Context, headers map[string]string) {
	if traceID := GetTraceID(ctx); traceID != "" {
		headers[TraceHeader] = string(traceID)
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		headers[SpanHeader] = string(spanID)
	}
}

// Context keys for trace propagation
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	if traceID, ok := ctx.Value(traceIDKey).(TraceID); ok {
		return traceID
	}
	return ""
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) SpanID {
	if spanID, ok := ctx.Value(spanIDKey).(SpanID); ok {
		return spanID
	}
	return ""
}

// Fields returns zap fields naming the trace and span carried by ctx.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", string(traceID)))
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		fields = append(fields, zap.String("span_id", string(spanID)))
	}
	return fields
}

