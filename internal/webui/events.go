package webui

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mzyy94/niimprint/internal/niim"
	"github.com/mzyy94/niimprint/internal/printer"
)

const clientQueue = 32

// EventMessage is the JSON form of a printer event sent to browsers.
type EventMessage struct {
	Type      string          `json:"type"`
	Code      string          `json:"code,omitempty"`
	Data      string          `json:"data,omitempty"` // hex payload
	Heartbeat *niim.Heartbeat `json:"heartbeat,omitempty"`
	Error     string          `json:"error,omitempty"`
	Time      string          `json:"time"`
}

func newEventMessage(ev printer.Event) EventMessage {
	msg := EventMessage{
		Type:      ev.Kind.String(),
		Heartbeat: ev.Heartbeat,
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
	}
	if ev.Packet != nil {
		msg.Code = ev.Packet.Code.String()
		msg.Data = hex.EncodeToString(ev.Packet.Data)
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub fans printer events out to websocket clients.
type EventHub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish queues ev for every client without blocking. Clients whose queue
// is full miss the event.
func (h *EventHub) Publish(ev printer.Event) {
	data, err := json.Marshal(newEventMessage(ev))
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Debug("event dropped for slow client", "type", ev.Kind)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientQueue)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for data := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
	<-done
	conn.Close()
}
