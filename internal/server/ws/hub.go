// Package ws streams scan reports and scanner status to websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Channels forwarded from the signal bus.
var Channels = []string{domain.ChannelArb, domain.ChannelStatus}

// Envelope is the frame sent to clients. Data is the bus payload verbatim.
type Envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// request is a client frame: {"action":"subscribe","channels":["ch:arb"]}.
type request struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans bus messages out to connected clients. A client receives every
// channel until it narrows the set with a subscribe request.
type Hub struct {
	bus    domain.SignalBus
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a Hub over bus.
func NewHub(bus domain.SignalBus, logger *slog.Logger) *Hub {
	return &Hub{
		bus:     bus,
		logger:  logger.With(slog.String("component", "ws_hub")),
		clients: make(map[*client]struct{}),
	}
}

// Run subscribes to every forwarded channel and blocks until ctx is done,
// then disconnects all clients.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, ch := range Channels {
		msgs, err := h.bus.Subscribe(ctx, ch)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.forward(ctx, ch, msgs)
		}()
	}
	h.logger.InfoContext(ctx, "hub running", slog.Any("channels", Channels))

	<-ctx.Done()
	wg.Wait()

	h.mu.Lock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
	return nil
}

func (h *Hub) forward(ctx context.Context, channel string, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgs:
			if !ok {
				return
			}
			h.Broadcast(channel, payload)
		}
	}
}

// Broadcast queues a message for every client subscribed to channel. Clients
// whose buffer is full are dropped.
func (h *Hub) Broadcast(channel string, payload []byte) {
	frame, err := json.Marshal(Envelope{Channel: channel, Data: payload})
	if err != nil {
		h.logger.Warn("drop unencodable message", slog.String("channel", channel), slog.String("error", err.Error()))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		if c.wants(channel) && !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", slog.String("remote", c.remote))
		h.remove(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the request and serves the client until it disconnects.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	c := &client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		channels: slices.Clone(Channels),
		remote:   r.RemoteAddr,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client connected", slog.String("remote", c.remote))

	go c.writePump()
	c.readPump(h)
	h.remove(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
		h.logger.Debug("client disconnected", slog.String("remote", c.remote))
	}
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	remote string

	mu       sync.Mutex
	channels []string

	sendMu sync.Mutex
	closed bool
}

func (c *client) wants(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.channels, channel)
}

func (c *client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// enqueue reports false when the send buffer is full. Frames for a closed
// client are discarded.
func (c *client) enqueue(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *client) reply(env Envelope) {
	if frame, err := json.Marshal(env); err == nil {
		c.enqueue(frame)
	}
}

// readPump handles subscribe and unsubscribe requests and keeps the read
// deadline alive until the connection fails.
func (c *client) readPump(h *Hub) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			c.reply(Envelope{Error: "invalid request"})
			continue
		}
		c.apply(req)
	}
}

func (c *client) apply(req request) {
	valid := slices.DeleteFunc(slices.Clone(req.Channels), func(ch string) bool {
		return !slices.Contains(Channels, ch)
	})

	c.mu.Lock()
	switch req.Action {
	case "subscribe":
		for _, ch := range valid {
			if !slices.Contains(c.channels, ch) {
				c.channels = append(c.channels, ch)
			}
		}
	case "unsubscribe":
		c.channels = slices.DeleteFunc(c.channels, func(ch string) bool {
			return slices.Contains(valid, ch)
		})
	default:
		c.mu.Unlock()
		c.reply(Envelope{Error: "unknown action " + req.Action})
		return
	}
	current, _ := json.Marshal(c.channels)
	c.mu.Unlock()
	c.reply(Envelope{Channel: "subscriptions", Data: current})
}

// writePump drains the send buffer and pings the peer. It closes the
// connection once the buffer is closed.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
