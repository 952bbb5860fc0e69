package handlers

import (
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/internal/knowledge"
	"github.com/support-console/backend/internal/status"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/pkg/logger"
)

const subscriberBuffer = 32

// WebSocketHandler streams state change notifications. Clients get a
// snapshot on connect and then refetch whatever slice changed.
type WebSocketHandler struct {
	sessions  *app.Registry
	shared    *store.Hub
	knowledge *knowledge.Base
	monitor   *status.Monitor
}

func NewWebSocketHandler(sessions *app.Registry, shared *store.Hub, kb *knowledge.Base, monitor *status.Monitor) *WebSocketHandler {
	return &WebSocketHandler{
		sessions:  sessions,
		shared:    shared,
		knowledge: kb,
		monitor:   monitor,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	id := c.Params("id")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.sendError(c, "Session not found")
		c.Close()
		return
	}

	logger.Info("WebSocket connection established", zap.String("session_id", id))

	sessionChanges, cancelSession := s.Hub.Subscribe(subscriberBuffer)
	sharedChanges, cancelShared := h.shared.Subscribe(subscriberBuffer)
	defer func() {
		cancelSession()
		cancelShared()
		c.Close()
		logger.Info("WebSocket connection closed", zap.String("session_id", id))
	}()

	if err := h.sendSnapshot(c, s); err != nil {
		logger.Error("Failed to send snapshot", zap.Error(err))
		return
	}

	done := make(chan struct{})
	go h.readLoop(c, s, done)

	for {
		select {
		case change, ok := <-sessionChanges:
			if !ok {
				return
			}
			if err := h.sendChange(c, change); err != nil {
				return
			}
		case change, ok := <-sharedChanges:
			if !ok {
				return
			}
			if err := h.sendChange(c, change); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readLoop touches the session on every client message and closes done
// when the client goes away. Nothing read is acted on.
func (h *WebSocketHandler) readLoop(c *websocket.Conn, s *app.Session, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			return
		}
		s.Touch()
	}
}

func (h *WebSocketHandler) sendSnapshot(c *websocket.Conn, s *app.Session) error {
	msg := map[string]interface{}{
		"type":      "snapshot",
		"session":   s.Snapshot(),
		"knowledge": h.knowledge.State(),
		"status":    h.monitor.State(),
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendChange(c *websocket.Conn, change store.Change) error {
	msg := map[string]interface{}{
		"type":    "change",
		"slice":   change.Slice,
		"version": change.Version,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}
