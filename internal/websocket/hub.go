package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	gwebsocket "github.com/gorilla/websocket"

	"dispatch-service/internal/logging"
	"dispatch-service/internal/models"
)

var (
	ErrUnknownHandle  = errors.New("unknown channel handle")
	ErrSendBufferFull = errors.New("send buffer full")
)

// EventHandler receives the inbound side of every connection.
type EventHandler interface {
	OnConnect(handle string)
	HandleEvent(ctx context.Context, handle string, env models.Envelope)
	OnDisconnect(ctx context.Context, handle string)
}

// Config tunes per-connection buffers.
type Config struct {
	SendBuffer     int
	MaxMessageSize int64
}

// Hub maintains the set of active clients keyed by channel handle.
type Hub struct {
	clients  map[string]*Client
	mu       sync.RWMutex
	handler  EventHandler
	logger   *logging.Logger
	config   Config
	upgrader gwebsocket.Upgrader
}

func NewHub(handler EventHandler, logger *logging.Logger, cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = maxMessageSize
	}
	return &Hub{
		clients: make(map[string]*Client),
		handler: handler,
		logger:  logger,
		config:  cfg,
		upgrader: gwebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and starts the client's pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	client := &Client{
		Handle: uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.config.SendBuffer),
	}
	h.add(client)
	h.logger.Infof("WebSocket client %s connected from %s", client.Handle, conn.RemoteAddr())
	h.handler.OnConnect(client.Handle)

	go client.WritePump()
	go client.ReadPump()
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.Handle] = c
	h.mu.Unlock()
}

// remove unregisters c and notifies the handler. Safe to call twice.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	cur, ok := h.clients[c.Handle]
	if ok && cur == c {
		delete(h.clients, c.Handle)
		close(c.send)
	}
	h.mu.Unlock()
	if !ok || cur != c {
		return
	}
	h.logger.Infof("WebSocket client %s disconnected", c.Handle)
	h.handler.OnDisconnect(context.Background(), c.Handle)
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return json.Marshal(models.Envelope{Event: event, Data: data})
}

// SendTo queues one event for the client behind handle. It never blocks.
func (h *Hub) SendTo(handle, event string, payload any) error {
	msg, err := encode(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[handle]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrSendBufferFull, handle)
	}
}

// SendToAll queues event for every connected client and returns how many
// accepted it.
func (h *Hub) SendToAll(event string, payload any) int {
	msg, err := encode(event, payload)
	if err != nil {
		h.logger.Errorf("Broadcast of %s dropped: %v", event, err)
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for handle, c := range h.clients {
		select {
		case c.send <- msg:
			n++
		default:
			h.logger.Warnf("WebSocket client %s send buffer full, broadcast skipped", handle)
		}
	}
	return n
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every connection. Each client's read pump then unregisters it.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}
