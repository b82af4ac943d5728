package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/pbx"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/utils"
)

// TokenVerifier authenticates the handshake bearer token.
type TokenVerifier interface {
	VerifyToken(token string) (userID string, err error)
}

// Hub streams adapter events to WebSocket subscribers. Each connection is
// authenticated on handshake and bound to exactly one vendor; adapter
// events fan out only to connections bound to that vendor. Every
// connection additionally runs its own metrics poll, independent of the
// shared adapter cadence, to keep dashboard numbers fresh.
type Hub struct {
	registry        *pbx.Registry
	verifier        TokenVerifier
	metricsInterval time.Duration
	logger          *utils.Logger
	upgrader        websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

type client struct {
	conn   *websocket.Conn
	userID string
	vendor models.PBXVendor
	send   chan any
	done   chan struct{}
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// push queues a frame unless the client is gone or falling behind.
func (c *client) push(frame any) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		// Slow client, drop the frame.
	}
}

// NewHub builds a hub over the shared adapter registry. allowedOrigins
// restricts cross-origin handshakes; an empty list accepts any origin, for
// deployments where the reverse proxy enforces origins instead.
func NewHub(registry *pbx.Registry, verifier TokenVerifier, metricsInterval time.Duration, allowedOrigins []string, logger *utils.Logger) *Hub {
	if metricsInterval <= 0 {
		metricsInterval = 5 * time.Second
	}
	return &Hub{
		registry:        registry,
		verifier:        verifier,
		metricsInterval: metricsInterval,
		logger:          logger,
		upgrader:        websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		clients:         make(map[*client]struct{}),
		stopCh:          make(chan struct{}),
	}
}

// originChecker builds the CheckOrigin hook for the configured allowlist.
// Requests without an Origin header (non-browser clients) always pass.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}

// Run subscribes to every registered adapter's event stream and fans
// events out to matching connections. Blocks until Stop.
func (h *Hub) Run() {
	for _, a := range h.registry.Adapters() {
		sub := a.Events().Subscribe(64)
		h.wg.Add(1)
		go h.forward(a.Vendor(), sub)
	}
	<-h.stopCh
}

// Stop tears down the adapter subscriptions and closes every connection.
func (h *Hub) Stop() {
	close(h.stopCh)
	h.wg.Wait()

	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// ClientCount reports the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// forward relays one vendor's adapter events to that vendor's connections.
func (h *Hub) forward(vendor models.PBXVendor, sub *pbx.Subscription) {
	defer h.wg.Done()
	defer sub.Close()
	for {
		select {
		case <-h.stopCh:
			return
		case ev, okCh := <-sub.C():
			if !okCh {
				return
			}
			frame, okFrame := frameFor(ev)
			if !okFrame {
				continue
			}
			h.broadcast(vendor, frame)
		}
	}
}

// frameFor converts an adapter event into the wire frame shape. The frame
// format is uniform: {"type": ..., payload...}.
func frameFor(ev pbx.Event) (map[string]any, bool) {
	switch ev.Type {
	case pbx.EventCallLog:
		return map[string]any{"type": "callLog", "log": ev.Call}, true
	case pbx.EventSystemLog:
		return map[string]any{"type": "systemLog", "log": ev.Log}, true
	case pbx.EventMetrics:
		return map[string]any{"type": "metrics", "metrics": ev.Metrics}, true
	case pbx.EventError:
		return map[string]any{"type": "error", "message": ev.Err}, true
	}
	return nil, false
}

func (h *Hub) broadcast(vendor models.PBXVendor, frame any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.vendor == vendor {
			c.push(frame)
		}
	}
}

// HandleWebSocket upgrades the connection, authenticates the token and
// vendor selector from the query string, and registers the subscription.
// Authentication failures close with a policy-violation code and never
// register the connection.
func (h *Hub) HandleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logf("websocket upgrade error: %v", err)
			return
		}

		userID, err := h.verifier.VerifyToken(c.Query("token"))
		if err != nil {
			h.reject(conn, "invalid or missing token")
			return
		}
		vendor, err := models.ParseVendor(c.Query("pbx"))
		if err != nil {
			h.reject(conn, "unknown pbx selector")
			return
		}
		if _, ok := h.registry.Adapter(vendor); !ok {
			h.reject(conn, "unknown pbx selector")
			return
		}

		cl := &client{
			conn:   conn,
			userID: userID,
			vendor: vendor,
			send:   make(chan any, 32),
			done:   make(chan struct{}),
		}
		h.register(cl)
		cl.push(map[string]any{"type": "connection", "status": "connected", "pbx": vendor})

		go h.writeLoop(cl)
		go h.pollMetrics(cl)
		h.readLoop(cl)
	}
}

func (h *Hub) reject(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	conn.Close()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logf("websocket client connected (user=%s pbx=%s)", c.userID, c.vendor)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if ok {
		c.close()
		h.logf("websocket client disconnected (user=%s pbx=%s)", c.userID, c.vendor)
	}
}

// readLoop drains client frames until the peer goes away. No client→server
// frames are defined beyond the handshake, so reads only detect closure.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logf("websocket error: %v", err)
			}
			return
		}
	}
}

// writeLoop is the single writer for a connection.
func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case frame := <-c.send:
			if err := c.conn.WriteJSON(frame); err != nil {
				h.logf("websocket write error: %v", err)
				return
			}
		}
	}
}

// pollMetrics pushes metrics on the hub's own cadence, independent of the
// adapter's poll loop. Stops when the connection is unregistered.
func (h *Hub) pollMetrics(c *client) {
	ticker := time.NewTicker(h.metricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-c.done:
			return
		case <-ticker.C:
			adapter, ok := h.registry.Adapter(c.vendor)
			if !ok {
				return
			}
			snap, err := adapter.Metrics(context.Background(), time.Time{}, time.Time{})
			if err != nil {
				c.push(map[string]any{"type": "error", "message": err.Error()})
				continue
			}
			c.push(map[string]any{"type": "metrics", "metrics": snap})
		}
	}
}

func (h *Hub) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Writef(format, args...)
	}
}
