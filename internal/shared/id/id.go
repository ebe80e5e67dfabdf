// Package id generates the prefixed ULIDs that label requests, traces and
// event subscribers in logs.
//
// IDs are lexicographically sortable by creation time and carry a short type
// prefix ("req_01H...") so a log line says what it refers to.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies an API request
type RequestID string

// TraceID identifies a trace spanning one request
type TraceID string

// SpanID identifies a span within a trace
type SpanID string

// SubscriberID identifies an event stream subscriber
type SubscriberID string

const (
	RequestPrefix    = "req"
	TracePrefix      = "trace"
	SpanPrefix       = "span"
	SubscriberPrefix = "sub"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator whose IDs increase strictly within the
// same millisecond.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewSubscriberID generates a new subscriber ID
func NewSubscriberID() SubscriberID {
	return SubscriberID(Default().GenerateWithPrefix(SubscriberPrefix))
}

func (id RequestID) String() string    { return string(id) }
func (id TraceID) String() string      { return string(id) }
func (id SpanID) String() string       { return string(id) }
func (id SubscriberID) String() string { return string(id) }

// SplitPrefixed separates "prefix_ULID" into its parts and validates the
// ULID half.
func SplitPrefixed(s string) (string, ulid.ULID, error) {
	prefix, raw, ok := strings.Cut(s, "_")
	if !ok {
		return "", ulid.ULID{}, fmt.Errorf("id %q has no prefix", s)
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("id %q: %w", s, err)
	}
	return prefix, parsed, nil
}

