package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/metrics"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client represents a single WebSocket connection. subs holds event type
// patterns; "checkout.*" matches every checkout event.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool
	mu   sync.RWMutex
}

// subscribeMsg is the JSON frame a client sends to change its event filter:
// {"action":"subscribe","events":["checkout.*"]}.
type subscribeMsg struct {
	Action string   `json:"action"`
	Events []string `json:"events"`
}

// Config captures runtime metadata sent to clients on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
	// ReplayLen is how many recent events a new client receives.
	ReplayLen int
}

// Hub pushes marketplace events from the signal bus to connected WebSocket
// clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	done       chan struct{}
	bus        domain.SignalBus
	mu         sync.RWMutex
	logger     *slog.Logger
	cfg        Config
}

type broadcastMsg struct {
	eventType string
	data      []byte
}

// NewHub creates a Hub reading events from bus.
func NewHub(bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	if cfg.Mode == "" {
		cfg.Mode = "unknown"
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now().UTC()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		bus:        bus,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run is the hub's event loop. It subscribes to the events channel and
// returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	msgCh, err := h.bus.Subscribe(ctx, domain.EventsChannel)
	if err != nil {
		return err
	}
	go h.forward(ctx, msgCh)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			metrics.WSClients.Set(0)
			return ctx.Err()

		case c := <-h.register:
			// hello and replay are queued before c can see a broadcast.
			h.greet(ctx, c)
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WSClients.Set(float64(n))
			h.logger.Info("ws: client connected", slog.Int("total_clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WSClients.Set(float64(n))
			h.logger.Info("ws: client disconnected", slog.Int("total_clients", n))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(msg.eventType) {
					select {
					case c.send <- msg.data:
					default:
						h.logger.Warn("ws: dropping event for slow client",
							slog.String("type", msg.eventType),
						)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// forward moves bus payloads onto the broadcast channel.
func (h *Hub) forward(ctx context.Context, msgCh <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("ws: event subscription closed")
				return
			}
			select {
			case h.broadcast <- broadcastMsg{eventType: eventType(data), data: data}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// HandleWS upgrades the request and registers the client. The hub greets new
// clients with a hello frame followed by the most recent events.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: map[string]bool{"*": true},
	}
	if events := r.URL.Query().Get("events"); events != "" {
		c.subs = make(map[string]bool)
		for _, e := range strings.Split(events, ",") {
			c.subs[strings.TrimSpace(e)] = true
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// greet queues the hello frame and the replay for c. It runs on the hub
// goroutine before c is added to the client set.
func (h *Hub) greet(ctx context.Context, c *client) {
	h.sendHello(c)
	h.replay(ctx, c)
}

// replay queues the tail of the event stream for c.
func (h *Hub) replay(ctx context.Context, c *client) {
	if h.cfg.ReplayLen <= 0 {
		return
	}
	msgs, err := h.bus.StreamRead(ctx, domain.EventsChannel, "0", 0)
	if err != nil {
		h.logger.Warn("ws: replay read failed", slog.String("error", err.Error()))
		return
	}
	if len(msgs) > h.cfg.ReplayLen {
		msgs = msgs[len(msgs)-h.cfg.ReplayLen:]
	}
	for _, m := range msgs {
		if !c.isSubscribed(eventType(m.Payload)) {
			continue
		}
		select {
		case c.send <- m.Payload:
		default:
			return
		}
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var sub subscribeMsg
		if json.Unmarshal(message, &sub) == nil && sub.Action != "" {
			c.handleSubscription(sub)
		}
	}
}

func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		for _, e := range msg.Events {
			c.subs[e] = true
		}
	case "unsubscribe":
		for _, e := range msg.Events {
			delete(c.subs, e)
		}
	}
}

func (h *Hub) sendHello(c *client) {
	uptime := max(0, int64(time.Since(h.cfg.StartedAt).Seconds()))
	msg, err := json.Marshal(map[string]any{
		"type": "hello",
		"at":   time.Now().UTC(),
		"data": map[string]any{
			"mode":           h.cfg.Mode,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// isSubscribed reports whether eventType matches one of the client's
// patterns. "*" matches everything; "checkout.*" matches by prefix.
func (c *client) isSubscribed(eventType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return matches(c.subs, eventType)
}

func matches(subs map[string]bool, eventType string) bool {
	if subs["*"] || subs[eventType] {
		return true
	}
	for sub := range subs {
		if prefix, ok := strings.CutSuffix(sub, "*"); ok && strings.HasPrefix(eventType, prefix) {
			return true
		}
	}
	return false
}

// eventType reads the envelope type of a bus payload.
func eventType(data []byte) string {
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ""
	}
	return ev.Type
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
