package ws

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/domain/documents"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/shared/id"
)

// Event types sent to subscribers.
const (
	TypeSystem      = "system"
	TypeWriteClosed = "write_closed"
	TypePong        = "pong"
)

// DefaultBuffer is the number of frames queued per subscriber before new
// events are dropped for it.
const DefaultBuffer = 64

// Event is one frame of the event stream.
type Event struct {
	Type         string `json:"type"`
	EventID      string `json:"event_id,omitempty"`
	DocumentID   string `json:"document_id,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
	MIMEType     string `json:"mime_type,omitempty"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"last_modified,omitempty"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// Hub fans write-close notifications out to subscribers.
type Hub struct {
	buffer  int
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu     sync.RWMutex
	subs   map[id.SubscriberID]*Subscription
	closed bool
}

// Subscription receives encoded frames on C until it is closed.
type Subscription struct {
	ID id.SubscriberID
	C  <-chan []byte

	ch   chan []byte
	hub  *Hub
	once sync.Once
}

// NewHub creates a hub. A buffer below 1 uses DefaultBuffer.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		buffer: buffer,
		logger: logger,
		subs:   make(map[id.SubscriberID]*Subscription),
	}
}

// WithMetrics adds subscriber and delivery metrics to the hub
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// Subscribe registers a new subscriber. It returns nil once the hub is
// closed.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	ch := make(chan []byte, h.buffer)
	sub := &Subscription{ID: id.NewSubscriberID(), C: ch, ch: ch, hub: h}
	h.subs[sub.ID] = sub
	if h.metrics != nil {
		h.metrics.IncEventSubscribers()
	}
	h.logger.Debug("Event subscriber joined", zap.String("subscriber", sub.ID.String()))
	return sub
}

// Close unregisters the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)
	close(sub.ch)
	if h.metrics != nil {
		h.metrics.DecEventSubscribers()
	}
	h.logger.Debug("Event subscriber left", zap.String("subscriber", sub.ID.String()))
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish has the documents.CloseFunc signature so the hub can be installed
// as a service close listener.
func (h *Hub) Publish(doc documents.Document, err error) {
	ev := Event{
		Type:         TypeWriteClosed,
		EventID:      uuid.NewString(),
		DocumentID:   doc.ID,
		DisplayName:  doc.DisplayName,
		MIMEType:     doc.MIMEType,
		Size:         doc.Size,
		LastModified: doc.LastModified,
		Timestamp:    time.Now().UnixMilli(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	h.Broadcast(ev)
}

// Broadcast encodes ev once and offers it to every subscriber without
// blocking. Subscribers whose buffer is full miss the event.
func (h *Hub) Broadcast(ev Event) {
	frame, err := sonic.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("event_id", ev.EventID), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sid, sub := range h.subs {
		select {
		case sub.ch <- frame:
			h.record("delivered")
		default:
			h.record("dropped")
			h.logger.Warn("Event subscriber too slow, dropping event",
				zap.String("subscriber", sid.String()),
				zap.String("event_id", ev.EventID),
				zap.String("document_id", ev.DocumentID),
			)
		}
	}
}

func (h *Hub) record(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordEvent(outcome)
	}
}

// Close disconnects every subscriber. Later Subscribe calls return nil.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sid, sub := range h.subs {
		delete(h.subs, sid)
		close(sub.ch)
		if h.metrics != nil {
			h.metrics.DecEventSubscribers()
		}
	}
}
