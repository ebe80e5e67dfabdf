package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced by the HTTP middleware
	},
}

// clientMessage is what subscribers may send.
type clientMessage struct {
	Type string `json:"type"`
}

// Handler upgrades HTTP requests to event stream connections.
type Handler struct {
	hub    *Hub
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hub: hub, logger: logger}
}

// HandleConnection upgrades the request and streams hub events until either
// side goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	sub := h.hub.Subscribe()
	if sub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream closed", "code": "unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	defer sub.Close()

	log := h.logger.With(zap.String("subscriber", sub.ID.String()))
	log.Info("Event stream connected", zap.String("client_ip", c.ClientIP()))

	control := make(chan []byte, 4)
	done := make(chan struct{})
	go h.readPump(conn, control, done, log)

	if err := h.write(conn, h.frame(Event{Type: TypeSystem, Message: "subscribed"})); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.write(conn, frame); err != nil {
				log.Debug("Event stream write failed", zap.Error(err))
				return
			}
		case frame := <-control:
			if err := h.write(conn, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			log.Info("Event stream disconnected")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// readPump consumes client messages until the connection fails. A "ping"
// message is answered with a "pong" frame; anything else is ignored.
func (h *Handler) readPump(conn *websocket.Conn, control chan<- []byte, done chan<- struct{}, log *zap.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("Event stream read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			select {
			case control <- h.frame(Event{Type: TypePong}):
			default:
			}
		}
	}
}

func (h *Handler) frame(ev Event) []byte {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	data, err := sonic.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode frame", zap.Error(err))
		return []byte(`{"type":"error"}`)
	}
	return data
}

func (h *Handler) write(conn *websocket.Conn, frame []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}
