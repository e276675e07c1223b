package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"realty_chat/internal/domain"
	"realty_chat/internal/metrics"
	"realty_chat/internal/service"
	"realty_chat/pkg/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 50 * time.Second
	streamBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Виджет встраивается на сайт агентства с другого origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionSubscriber - подписка на события сессии (NATS)
type SessionSubscriber interface {
	SubscribeSession(sessionID uuid.UUID, subscriberID string, handler func(data []byte)) error
	UnsubscribeSession(subscriberID string) error
}

// StreamHandler отдает события сессии по websocket. Polling остается основным
// способом, поток только сокращает задержку.
type StreamHandler struct {
	chatService service.ChatService
	subscriber  SessionSubscriber
	log         logger.Logger
}

func NewStreamHandler(chatService service.ChatService, subscriber SessionSubscriber, log logger.Logger) *StreamHandler {
	return &StreamHandler{
		chatService: chatService,
		subscriber:  subscriber,
		log:         log,
	}
}

type snapshotFrame struct {
	Type     string           `json:"type"`
	Snapshot *domain.Snapshot `json:"snapshot"`
}

func (h *StreamHandler) HandleSession(c *gin.Context) {
	if h.subscriber == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push stream is disabled, use polling"})
		return
	}

	sessionID := sessionIDFrom(c)
	snapshot, err := h.chatService.GetSnapshot(c.Request.Context(), sessionID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()

	events := make(chan []byte, streamBuffer)
	subscriberID := uuid.NewString()
	err = h.subscriber.SubscribeSession(sessionID, subscriberID, func(data []byte) {
		select {
		case events <- data:
		default:
			h.log.Warn("Stream buffer full, dropping event", "session_id", sessionID)
		}
	})
	if err != nil {
		h.log.Error("Failed to subscribe to session events", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if err := h.subscriber.UnsubscribeSession(subscriberID); err != nil {
			h.log.Warn("Failed to unsubscribe stream", "error", err, "session_id", sessionID)
		}
	}()

	initial, err := json.Marshal(snapshotFrame{Type: "snapshot", Snapshot: snapshot})
	if err != nil {
		h.log.Error("Failed to encode snapshot", "error", err)
		return
	}
	if err := h.write(conn, initial); err != nil {
		return
	}

	// Клиент ничего не шлет, чтение нужно для pong и обнаружения закрытия
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	h.log.Debug("Stream opened", "session_id", sessionID, "subscriber", subscriberID)

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case data := <-events:
			if err := h.write(conn, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Debug("Stream write failed", "error", err)
		return err
	}
	return nil
}
