package inspect

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/autoroute/pkg/autoroute"
)

// Event types.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
)

// Event is the message sent to clients for each hook call.
type Event struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Time        time.Time        `json:"time"`
	OriginalURL string           `json:"originalUrl"`
	Action      string           `json:"action"`
	Route       string           `json:"route,omitempty"`
	Verb        autoroute.Verb   `json:"verb,omitempty"`
	Params      autoroute.Params `json:"params,omitempty"`
	Meta        autoroute.Meta   `json:"meta,omitempty"`
	Result      any              `json:"result,omitempty"`
}

// Config configures a Hub.
type Config struct {
	// ReadBufferSize and WriteBufferSize size the websocket buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the Origin header of upgrade requests. Nil
	// accepts same-origin requests only.
	CheckOrigin func(r *http.Request) bool

	// WriteTimeout bounds each message write.
	WriteTimeout time.Duration

	// QueueSize is the number of pending events buffered per client.
	QueueSize int

	// Logger receives connection errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		WriteTimeout:    10 * time.Second,
		QueueSize:       64,
	}
}

// Hub fans hook events out to websocket clients.
type Hub struct {
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	queueSize    int
	logger       *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	dropped atomic.Uint64
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// NewHub creates a Hub.
func NewHub(config Config) *Hub {
	defaults := DefaultConfig()
	if config.ReadBufferSize == 0 {
		config.ReadBufferSize = defaults.ReadBufferSize
	}
	if config.WriteBufferSize == 0 {
		config.WriteBufferSize = defaults.WriteBufferSize
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.QueueSize == 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		writeTimeout: config.WriteTimeout,
		queueSize:    config.QueueSize,
		logger:       config.Logger,
		clients:      make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and streams events until the client goes
// away. Messages sent by the client are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.queueSize),
		done: make(chan struct{}),
	}
	if !h.add(c) {
		conn.Close()
		return
	}
	defer h.remove(c)

	go h.writeLoop(c)

	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("inspector write error", "error", err)
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns the number of events discarded because a client queue was
// full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(h.writeTimeout))
		c.close()
	}
	return nil
}

// OnRequest is an autoroute.RequestHook. It never fails the request.
func (h *Hub) OnRequest(ctx context.Context, ev autoroute.RequestEvent) error {
	h.publish(ctx, TypeRequest, ev, nil)
	return nil
}

// OnResponse is an autoroute.ResponseHook. It never fails the request.
func (h *Hub) OnResponse(ctx context.Context, ev autoroute.ResponseEvent) error {
	h.publish(ctx, TypeResponse, ev.RequestEvent, ev.Result)
	return nil
}

func (h *Hub) publish(ctx context.Context, typ string, ev autoroute.RequestEvent, result any) {
	if h.Clients() == 0 {
		return
	}

	event := Event{
		ID:          uuid.NewString(),
		Type:        typ,
		Time:        time.Now().UTC(),
		OriginalURL: ev.OriginalURL,
		Action:      ev.Action,
		Params:      ev.Params,
		Meta:        ev.Meta,
		Result:      result,
	}
	if info, ok := autoroute.InfoFromContext(ctx); ok {
		event.Route = info.Route
		event.Verb = info.Verb
	}

	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("inspector event dropped", "action", ev.Action, "error", err)
		return
	}
	h.Broadcast(msg)
}

// Broadcast queues msg for every connected client.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}
