// Package dashboardobserver implements a gorilla/websocket broadcast hub
// that consumes hoststate.Observer snapshots and fans them out to connected
// browser clients as JSON, grounded on the teacher's internal/dashboard.Hub
// (register/unregister channels, a decoupled broadcast goroutine, and
// SafeSend-over-closed-channel client handling) but narrowed to the single
// concern spec.md §6 names for it: "a generic Observer sink... a dashboard
// listens on its channel and renders"; the teacher's own command/session/DB
// bookkeeping is out of scope here (see DESIGN.md).
package dashboardobserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 64 * 1024
	broadcastQueueSize = 1024
	clientSendBuffer   = 256
	panicRecoveryDelay = 100 * time.Millisecond
)

// Client is one browser websocket connection.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	closeOnce sync.Once
	closed atomic.Bool
}

// SafeSend enqueues data without panicking on a closed or full channel.
func (c *Client) SafeSend(data []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close closes the client's send channel exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.send)
	})
}

// Hub fans out hoststate.HostDisplayData snapshots to every connected
// browser. It is itself a hoststate.Observer: feed its Updates() channel to
// hoststate.Manager.AddObserver.
type Hub struct {
	log zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcasts chan []byte

	updates hoststate.Observer
}

// NewHub constructs a hub with its own Observer channel, ready to be handed
// to hoststate.Manager.AddObserver.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log.With().Str("component", "dashboard_hub").Logger(),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcasts: make(chan []byte, broadcastQueueSize),
		updates:    make(hoststate.Observer, 256),
	}
}

// Updates returns the Observer channel to register with HostManager.
func (h *Hub) Updates() hoststate.Observer { return h.updates }

// Run drives the hub until ctx is cancelled. Start it with `go hub.Run(ctx)`.
func (h *Hub) Run(ctx context.Context) {
	go h.broadcastLoop(ctx)
	for {
		if err := h.runLoop(ctx); err != nil {
			if err == context.Canceled {
				return
			}
			h.log.Error().Err(err).Msg("hub loop crashed, restarting")
			time.Sleep(panicRecoveryDelay)
		} else {
			return
		}
	}
}

func (h *Hub) runLoop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hub panic: %v", r)
			h.log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("hub panic recovered")
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}
			h.mu.Unlock()
		case snap, ok := <-h.updates:
			if !ok {
				return context.Canceled
			}
			data, err := json.Marshal(snap)
			if err != nil {
				h.log.Warn().Err(err).Msg("marshal host snapshot failed")
				continue
			}
			h.queueBroadcast(data)
		}
	}
}

func (h *Hub) queueBroadcast(data []byte) {
	select {
	case h.broadcasts <- data:
	default:
		h.log.Warn().Msg("broadcast queue full, dropping snapshot")
	}
}

func (h *Hub) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-h.broadcasts:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()
			for _, c := range clients {
				c.SafeSend(data)
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a websocket and registers the client.
// Mount this as a chi handler (e.g. r.Get("/ws", hub.ServeWS)).
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &Client{conn: conn, send: make(chan []byte, clientSendBuffer), hub: h}
	h.register <- c
	go c.writePump()
	go c.readPump(h)
}

// readPump drains (and discards) any client-sent frames, keeping the
// connection's read deadline alive for pong handling, and unregisters on
// disconnect.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump relays queued snapshots to the browser and pings periodically.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
