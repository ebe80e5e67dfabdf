package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/domain/documents"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/monitoring"
)

func decode(t *testing.T, frame []byte) Event {
	t.Helper()
	var ev Event
	require.NoError(t, sonic.Unmarshal(frame, &ev))
	return ev
}

func TestHubPublish(t *testing.T) {
	hub := NewHub(4, nil)
	a := hub.Subscribe()
	b := hub.Subscribe()
	require.NotNil(t, a)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, hub.Subscribers())

	hub.Publish(documents.Document{ID: "root:a.txt", DisplayName: "a.txt", Size: 5, MIMEType: "text/plain"}, nil)

	for _, sub := range []*Subscription{a, b} {
		ev := decode(t, <-sub.C)
		assert.Equal(t, TypeWriteClosed, ev.Type)
		assert.Equal(t, "root:a.txt", ev.DocumentID)
		assert.Equal(t, int64(5), ev.Size)
		assert.Len(t, ev.EventID, 36)
		assert.Empty(t, ev.Error)
	}

	hub.Publish(documents.Document{ID: "root:b.txt"}, errors.New("disk full"))
	assert.Equal(t, "disk full", decode(t, <-a.C).Error)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	metrics := monitoring.NewMetrics()
	hub := NewHub(1, zap.New(core)).WithMetrics(metrics)
	slow := hub.Subscribe()

	hub.Publish(documents.Document{ID: "root:1"}, nil)
	hub.Publish(documents.Document{ID: "root:2"}, nil)

	assert.Equal(t, "root:1", decode(t, <-slow.C).DocumentID)
	select {
	case frame := <-slow.C:
		t.Fatalf("unexpected frame %s", frame)
	default:
	}

	assert.Equal(t, 1, logs.FilterMessage("Event subscriber too slow, dropping event").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventSubscribers))
}

func TestSubscriptionClose(t *testing.T) {
	metrics := monitoring.NewMetrics()
	hub := NewHub(0, nil).WithMetrics(metrics)
	sub := hub.Subscribe()

	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.EventSubscribers))
}

func TestHubClose(t *testing.T) {
	hub := NewHub(0, nil)
	sub := hub.Subscribe()

	hub.Close()
	hub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Nil(t, hub.Subscribe())
	sub.Close()
	assert.NotPanics(t, func() { hub.Publish(documents.Document{ID: "root:x"}, nil) })
}

func TestHubAsCloseListener(t *testing.T) {
	hub := NewHub(0, nil)
	sub := hub.Subscribe()

	svc, err := documents.New(documents.Config{BasePath: t.TempDir()}, documents.WithCloseListener(hub.Publish))
	require.NoError(t, err)
	id, err := svc.Create("root:", "text/plain", "log.txt")
	require.NoError(t, err)

	h, err := svc.Open(id, "wa", nil)
	require.NoError(t, err)
	_, err = h.WriteString("entry\n")
	require.NoError(t, err)
	require.NoError(t, h.Close())

	ev := decode(t, <-sub.C)
	assert.Equal(t, id, ev.DocumentID)
	assert.Equal(t, int64(6), ev.Size)
	assert.Equal(t, "text/plain", ev.MIMEType)
}

func newStreamServer(t *testing.T, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/events", NewHandler(hub, nil).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return decode(t, data)
}

func TestHandleConnection(t *testing.T) {
	hub := NewHub(0, nil)
	url := newStreamServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readEvent(t, conn)
	assert.Equal(t, TypeSystem, hello.Type)
	assert.Equal(t, 1, hub.Subscribers())

	hub.Publish(documents.Document{ID: "root:report.md", Size: 42}, nil)
	ev := readEvent(t, conn)
	assert.Equal(t, TypeWriteClosed, ev.Type)
	assert.Equal(t, "root:report.md", ev.DocumentID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, TypePong, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHandleConnectionAfterHubClose(t *testing.T) {
	hub := NewHub(0, nil)
	url := newStreamServer(t, hub)
	hub.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
