// Package feed broadcasts conversation history over websocket to
// presentation clients.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"murmur/internal/history"
	"murmur/internal/message"
)

const (
	Path = "/ws"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	sendBuffer = 64
)

type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventAppend   EventType = "append"
	EventClear    EventType = "clear"
	EventBusy     EventType = "busy"
)

type Event struct {
	Type     EventType         `json:"type"`
	Messages []message.Message `json:"messages,omitempty"`
	Message  *message.Message  `json:"message,omitempty"`
	Index    int               `json:"index"`
	Busy     bool              `json:"busy"`
}

// History is the part of the store the hub reads.
type History interface {
	Messages() []message.Message
	Subscribe(fn func(history.Event)) func()
}

type client struct {
	conn *ws.Conn
	send chan []byte
}

// Hub fans history changes out to every connected client. A client that
// falls behind by more than its buffer is disconnected.
type Hub struct {
	src      History
	upgrader ws.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	busy    bool

	unsubscribe func()
}

func NewHub(src History) *Hub {
	h := &Hub{
		src:     src,
		clients: make(map[*client]struct{}),
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     localOrigin,
		},
	}
	h.unsubscribe = src.Subscribe(h.onHistory)
	return h
}

// localOrigin admits non-browser clients (no Origin) and pages served from
// this machine. Any other page must not read the conversation.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}

	log.Warn("Rejected feed client", "origin", origin)
	return false
}

func (h *Hub) onHistory(ev history.Event) {
	switch ev.Kind {
	case history.EventAppend:
		m := ev.Message
		h.broadcast(Event{Type: EventAppend, Message: &m, Index: ev.Index})
	case history.EventClear:
		h.broadcast(Event{Type: EventClear})
	}
}

// SetBusy publishes the typing indicator.
func (h *Hub) SetBusy(on bool) {
	h.mu.Lock()
	h.busy = on
	h.mu.Unlock()

	h.broadcast(Event{Type: EventBusy, Busy: on})
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error("Failed to encode feed event", "type", ev.Type, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Warn("Dropping slow feed client", "addr", c.conn.RemoteAddr())
			h.dropLocked(c)
		}
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Failed to upgrade feed connection", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	// Register and queue the snapshot atomically so no broadcast slips in
	// between. Appends racing the snapshot carry their index for dedup.
	h.mu.Lock()
	snap, err := json.Marshal(Event{Type: EventSnapshot, Messages: h.src.Messages()})
	if err != nil {
		h.mu.Unlock()
		log.Error("Failed to encode snapshot", "err", err)
		conn.Close()
		return
	}
	c.send <- snap
	if h.busy {
		busy, _ := json.Marshal(Event{Type: EventBusy, Busy: true})
		c.send <- busy
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	log.Debug("Feed client connected", "addr", conn.RemoteAddr())

	go h.writePump(c)
	h.readPump(c)
}

// readPump only handles control frames; clients have nothing to say.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		h.dropLocked(c)
		h.mu.Unlock()
		c.conn.Close()
		log.Debug("Feed client disconnected", "addr", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(ws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Serve listens on addr until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, h)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Feed listening", "addr", "ws://"+addr+Path)

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close detaches from the store and disconnects every client.
func (h *Hub) Close() {
	h.unsubscribe()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}
