package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/gorilla/websocket"
)

// Message types
const (
	MessageTypeConnected = "connected"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// Message is the envelope for everything the hub writes that is not a progress event
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub mantém as conexões agrupadas por email do usuário
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	metrics    *metrics.Metrics
	origins    []string
}

// HubOption customizes a hub
type HubOption func(*Hub)

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// An empty list accepts any origin.
func WithAllowedOrigins(origins ...string) HubOption {
	return func(h *Hub) {
		h.origins = origins
	}
}

// NewHub creates a new hub
func NewHub(m *metrics.Metrics, opts ...HubOption) *Hub {
	if m == nil {
		m = metrics.Get()
	}
	h := &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    m,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Run processa registros até o contexto ser cancelado
func (h *Hub) Run(ctx context.Context) {
	log := logger.Get(ctx)
	log.Info().Msg("WebSocket hub started")

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			log.Info().Msg("WebSocket hub stopped")
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.Email]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.Email] = set
	}
	set[client] = struct{}{}
	h.mu.Unlock()

	h.metrics.IncrementWSConnection()

	client.enqueue(Message{
		Type:      MessageTypeConnected,
		Data:      map[string]string{"email": client.Email},
		Timestamp: time.Now(),
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	h.mu.Unlock()

	if removed {
		h.metrics.DecrementWSConnection()
	}
}

// removeLocked fecha o canal de envio uma única vez
func (h *Hub) removeLocked(client *Client) bool {
	set, ok := h.clients[client.Email]
	if !ok {
		return false
	}
	if _, ok := set[client]; !ok {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.Email)
	}
	close(client.Send)
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.clients {
		for client := range set {
			h.removeLocked(client)
			h.metrics.DecrementWSConnection()
		}
	}
}

// SendToEmail delivers a payload to every connection of the user.
// Slow connections with a full buffer are dropped.
func (h *Hub) SendToEmail(email string, payload []byte) int {
	email = normalizeEmail(email)

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for client := range h.clients[email] {
		select {
		case client.Send <- payload:
			delivered++
			h.metrics.IncrementWSMessageOut()
		default:
			if h.removeLocked(client) {
				h.metrics.DecrementWSConnection()
			}
		}
	}
	return delivered
}

// SendProgress publica o progresso de um lote para o usuário
func (h *Hub) SendProgress(email string, progress model.BatchProgress) {
	if progress.Timestamp.IsZero() {
		progress.Timestamp = time.Now()
	}
	payload, err := json.Marshal(progress)
	if err != nil {
		logger.Get(context.Background()).Error().Err(err).Msg("Failed to marshal batch progress")
		return
	}
	h.SendToEmail(email, payload)
}

// ConnectionCount returns the number of open connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}

// emailConnectionCount returns the number of open connections for one user
func (h *Hub) emailConnectionCount(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[normalizeEmail(email)])
}

// connectedEmails lists users with at least one connection
func (h *Hub) connectedEmails() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	emails := make([]string, 0, len(h.clients))
	for email := range h.clients {
		emails = append(emails, email)
	}
	return emails
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (h *Hub) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}
