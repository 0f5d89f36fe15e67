package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/notifier"
	"github.com/kondukto-io/portguard/pkg/logger"
)

const (
	MessagePortEvent = "port.event"
	MessageInfo      = "info"
	MessageWarning   = "warning"
	MessageError     = "error"
	MessageAction    = "action"

	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Host != r.Host {
			logger.Log.Warnf("websocket: rejected origin %s", origin)
			return false
		}

		return true
	},
}

// WSMessage is the envelope of every websocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EventPayload is pushed for every notified port event
type EventPayload struct {
	Event          domain.PortEvent `json:"event"`
	Info           *domain.PortInfo `json:"info,omitempty"`
	TimeoutSeconds int              `json:"timeout_seconds,omitempty"`
}

// TextPayload is pushed for info, warning and error messages
type TextPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Hub is the operator notification surface. It pushes messages to the
// connected websocket clients and relays their actions.
type Hub struct {
	enabled bool
	timeout int

	mu      sync.Mutex
	clients map[*websocket.Conn]string
	actions chan domain.OperatorAction
}

var _ notifier.Surface = (*Hub)(nil)

// NewHub returns a hub with the notification settings of cfg
func NewHub(cfg domain.AppConfiguration) *Hub {
	return &Hub{
		enabled: cfg.EnableNotifications,
		timeout: cfg.NotificationTimeoutSeconds,
		clients: make(map[*websocket.Conn]string),
		actions: make(chan domain.OperatorAction, 16),
	}
}

func (h *Hub) NotifyEvent(_ context.Context, e domain.PortEvent, info *domain.PortInfo) error {
	return h.broadcast(WSMessage{
		Type:    MessagePortEvent,
		Payload: EventPayload{Event: e, Info: info, TimeoutSeconds: h.timeout},
	})
}

func (h *Hub) Info(_ context.Context, title, message string) error {
	return h.broadcast(WSMessage{Type: MessageInfo, Payload: TextPayload{Title: title, Message: message}})
}

func (h *Hub) Warning(_ context.Context, title, message string) error {
	return h.broadcast(WSMessage{Type: MessageWarning, Payload: TextPayload{Title: title, Message: message}})
}

func (h *Hub) Error(_ context.Context, title, message string) error {
	return h.broadcast(WSMessage{Type: MessageError, Payload: TextPayload{Title: title, Message: message}})
}

func (h *Hub) Enabled(context.Context) bool {
	return h.enabled
}

func (h *Hub) Actions() <-chan domain.OperatorAction {
	return h.actions
}

// Submit queues an operator action for the orchestrator
func (h *Hub) Submit(ctx context.Context, a domain.OperatorAction) error {
	select {
	case h.actions <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// HandleWebSocket upgrades the connection and reads client actions until it closes
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Debugf("websocket upgrade error: %v", err)
		return
	}

	var id = uuid.NewString()

	h.mu.Lock()
	h.clients[conn] = id
	h.mu.Unlock()

	logger.Log.WithFields(logrus.Fields{
		"client": id,
		"remote": r.RemoteAddr,
	}).Debug("websocket connected")

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
			logger.Log.WithField("client", id).Debug("websocket disconnected")
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			h.receive(context.Background(), id, data)
		}
	}()
}

func (h *Hub) receive(ctx context.Context, client string, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != MessageAction {
		logger.Log.Debugf("websocket: ignoring message %q", data)
		return
	}

	var action domain.OperatorAction
	if err := json.Unmarshal(msg.Payload, &action); err != nil {
		logger.Log.Debugf("websocket: invalid action payload: %v", err)
		return
	}

	actionType, err := domain.ParseOperatorActionType(string(action.Type))
	if err != nil {
		logger.Log.Debugf("websocket: %v", err)
		return
	}
	action.Type = actionType

	if err := h.Submit(ctx, action); err != nil {
		logger.Log.Warnf("websocket: failed to submit action: %v", err)
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"client": client,
		"event":  action.EventID,
		"action": action.Type,
	}).Info("operator action received")
}

func (h *Hub) broadcast(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, id := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"client": id,
				"type":   msg.Type,
			}).Debugf("dropping websocket client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}

	return nil
}
