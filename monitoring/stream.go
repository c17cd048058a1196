package monitoring

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PredictionEvent is pushed to websocket subscribers after each
// successful prediction.
type PredictionEvent struct {
	Kind      string    `json:"kind"`
	City      string    `json:"city"`
	Area      string    `json:"area"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans prediction events out to connected websocket clients. Slow
// clients are dropped rather than allowed to block the broadcast loop.
type Hub struct {
	log        *zap.Logger
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	// clients is owned by the Run goroutine; nothing else touches it.
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*client]bool),
	}
}

// Run owns the client set. It returns when the broadcast channel is
// closed via Stop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.log.Info("websocket client connected", zap.Int("total", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.log.Info("websocket client disconnected", zap.Int("total", len(h.clients)))

		case msg, ok := <-h.broadcast:
			if !ok {
				for c := range h.clients {
					close(c.send)
					delete(h.clients, c)
				}
				return
			}
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Client is not keeping up; let its writer exit.
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

func (h *Hub) Stop() {
	close(h.broadcast)
}

// Publish broadcasts an event. Drops the event if the hub's queue is
// full so prediction handlers never block on slow subscribers.
func (h *Hub) Publish(ev PredictionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("failed to encode prediction event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// ServeWS upgrades the request and attaches the client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.register <- c

	go c.writeLoop()
	go c.readLoop(h)
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readLoop(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		// Subscribers are read-only; we drain so pings/pongs and
		// close frames are processed.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
