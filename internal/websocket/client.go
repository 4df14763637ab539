package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	sendBuffer = 256
)

// Client is one websocket connection of a user
type Client struct {
	Email       string
	Send        chan []byte
	Hub         *Hub
	ConnectedAt time.Time
	LastPing    time.Time

	conn     *websocket.Conn
	ctx      context.Context
	clientIP string
}

func newClient(h *Hub, email string) *Client {
	now := time.Now()
	return &Client{
		Email:       normalizeEmail(email),
		Send:        make(chan []byte, sendBuffer),
		Hub:         h,
		ConnectedAt: now,
		LastPing:    now,
		ctx:         context.Background(),
	}
}

// ServeWS faz o upgrade da conexão; o usuário é identificado por ?email=
func (h *Hub) ServeWS(c *gin.Context) {
	email := normalizeEmail(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Email é obrigatório",
			"code":    "EMAIL_REQUIRED",
		})
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.FromGin(c).Error().
			Err(err).
			Str("email", email).
			Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := newClient(h, email)
	client.conn = conn
	client.clientIP = c.ClientIP()
	// a conexão sobrevive ao handler
	client.ctx = context.WithoutCancel(c.Request.Context())

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	logger.AuditWebSocket(client.ctx, logger.AuditActionWSConnect, email, client.clientIP, nil)

	go client.writePump()
	go client.readPump()
}

// readPump is the only reader of the connection
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.conn.Close()
		logger.AuditWebSocket(c.ctx, logger.AuditActionWSDisconnect, c.Email, c.clientIP, map[string]interface{}{
			"duration_seconds": time.Since(c.ConnectedAt).Seconds(),
		})
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.LastPing = time.Now()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Get(c.ctx).Warn().
					Err(err).
					Str("email", c.Email).
					Msg("WebSocket connection closed unexpectedly")
			}
			return
		}

		c.Hub.metrics.IncrementWSMessageIn()
		c.handleMessage(message)
	}
}

// writePump is the only writer of the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// o hub fechou o canal
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.enqueue(Message{
			Type:      MessageTypeError,
			Data:      "invalid message",
			Timestamp: time.Now(),
		})
		return
	}

	switch msg.Type {
	case "ping":
		c.enqueue(Message{Type: MessageTypePong, Timestamp: time.Now()})
	default:
		logger.Get(c.ctx).Debug().
			Str("email", c.Email).
			Str("message_type", msg.Type).
			Msg("Unknown message type received from client")
	}
}

// enqueue só escreve enquanto o cliente está registrado
func (c *Client) enqueue(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}

	h := c.Hub
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c.Email][c]; !ok {
		return false
	}
	select {
	case c.Send <- data:
		h.metrics.IncrementWSMessageOut()
		return true
	default:
		return false
	}
}
