package websocket

import (
	"context"
	"encoding/json"
	"time"

	gwebsocket "github.com/gorilla/websocket"

	"dispatch-service/internal/models"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum message size allowed from peer.
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Handle string
	hub    *Hub
	conn   *gwebsocket.Conn
	send   chan []byte // Buffered channel of outbound messages.
}

// ReadPump decodes inbound envelopes and hands them to the event handler in
// arrival order.
func (c *Client) ReadPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.hub.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if gwebsocket.IsUnexpectedCloseError(err, gwebsocket.CloseGoingAway, gwebsocket.CloseAbnormalClosure) {
				c.hub.logger.Warnf("WebSocket read error on %s: %v", c.Handle, err)
			}
			return
		}
		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			c.hub.logger.Warnf("Malformed frame on %s: %v", c.Handle, err)
			if err := c.hub.SendTo(c.Handle, models.EventError, models.ErrorNotice{Error: "malformed envelope"}); err != nil {
				c.hub.logger.Warnf("Failed to report malformed frame on %s: %v", c.Handle, err)
			}
			continue
		}
		c.hub.handler.HandleEvent(ctx, c.Handle, env)
	}
}

// WritePump pumps queued messages to the connection, one frame per event.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(gwebsocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(gwebsocket.TextMessage, message); err != nil {
				c.hub.logger.Warnf("WebSocket write error on %s: %v", c.Handle, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(gwebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
