package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// drainWelcome discards the "connected" message sent on registration
func drainWelcome(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		require.Equal(t, MessageTypeConnected, msg.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("welcome message not sent")
	}
}

func TestProgressReachesEveryConnectionOfTheUser(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("each connection of the email receives the same progress", prop.ForAll(
		func(conns int, done int, total int) bool {
			hub := NewHub(metrics.New())

			clients := make([]*Client, conns)
			for i := range clients {
				clients[i] = newClient(hub, "Ana@Acme.com")
				hub.registerClient(clients[i])
				<-clients[i].Send
			}
			other := newClient(hub, "bruno@acme.com")
			hub.registerClient(other)
			<-other.Send

			hub.SendProgress(" ANA@acme.com", model.BatchProgress{Type: "batch_progress", Done: done, Total: total})

			for _, c := range clients {
				select {
				case raw := <-c.Send:
					var got model.BatchProgress
					if err := json.Unmarshal(raw, &got); err != nil {
						return false
					}
					if got.Done != done || got.Total != total || got.Timestamp.IsZero() {
						return false
					}
				default:
					return false
				}
			}
			return len(other.Send) == 0
		},
		gen.IntRange(1, 5),
		gen.IntRange(0, 500),
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}

func TestHubConnectionBookkeeping(t *testing.T) {
	m := metrics.New()
	hub := NewHub(m)

	a1 := newClient(hub, "ana@acme.com")
	a2 := newClient(hub, "ana@acme.com")
	b := newClient(hub, "bruno@acme.com")
	for _, c := range []*Client{a1, a2, b} {
		hub.registerClient(c)
		drainWelcome(t, c)
	}

	assert.Equal(t, 3, hub.ConnectionCount())
	assert.Equal(t, 2, hub.emailConnectionCount("ANA@acme.com"))
	assert.ElementsMatch(t, []string{"ana@acme.com", "bruno@acme.com"}, hub.connectedEmails())
	assert.Equal(t, int64(3), m.Snapshot().WebSocket.Connections)

	hub.unregisterClient(a1)
	// duplicado não fecha o canal duas vezes
	hub.unregisterClient(a1)

	_, open := <-a1.Send
	assert.False(t, open)
	assert.Equal(t, 1, hub.emailConnectionCount("ana@acme.com"))
	assert.Equal(t, int64(2), m.Snapshot().WebSocket.Connections)

	hub.unregisterClient(b)
	assert.ElementsMatch(t, []string{"ana@acme.com"}, hub.connectedEmails())
}

func TestSendToEmailDropsSlowConnections(t *testing.T) {
	hub := NewHub(metrics.New())

	slow := newClient(hub, "ana@acme.com")
	slow.Send = make(chan []byte, 1)
	hub.registerClient(slow)
	// welcome ocupa o único slot

	assert.Equal(t, 0, hub.SendToEmail("ana@acme.com", []byte(`{}`)))
	assert.Equal(t, 0, hub.emailConnectionCount("ana@acme.com"))
}

func TestSendToUnknownEmailIsNoop(t *testing.T) {
	hub := NewHub(metrics.New())
	assert.Equal(t, 0, hub.SendToEmail("nobody@acme.com", []byte(`{}`)))
}

func TestRunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(metrics.New())
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := newClient(hub, "ana@acme.com")
	hub.register <- c
	drainWelcome(t, c)

	cancel()
	<-stopped

	_, open := <-c.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func newWSServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	r := gin.New()
	r.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeWSRequiresEmail(t *testing.T) {
	hub := NewHub(metrics.New())
	r := gin.New()
	r.GET("/ws", hub.ServeWS)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "EMAIL_REQUIRED")
}

func TestServeWSDeliversProgressAndPong(t *testing.T) {
	hub := NewHub(metrics.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := newWSServer(t, hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?email=Ana@Acme.com"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var welcome Message
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, MessageTypeConnected, welcome.Type)
	assert.Equal(t, 1, hub.emailConnectionCount("ana@acme.com"))

	hub.SendProgress("ana@acme.com", model.BatchProgress{Type: "batch_progress", Done: 5, Total: 12, Batch: 1, Batches: 3})

	var progress model.BatchProgress
	require.NoError(t, conn.ReadJSON(&progress))
	assert.Equal(t, 5, progress.Done)
	assert.Equal(t, 3, progress.Batches)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping", Timestamp: time.Now()}))
	var pong Message
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, MessageTypePong, pong.Type)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return hub.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeWSRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(metrics.New(), WithAllowedOrigins("https://dashboard.example.com"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := newWSServer(t, hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?email=ana@acme.com"

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
