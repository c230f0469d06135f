// Package monitoring pushes live business events to connected admin dashboards.
package monitoring

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"loan-backend/internal/metrics"
)

// Event kinds sent on the live feed
const (
	EventCollection = "collection"
	EventReversal   = "reversal"
	EventOverdue    = "overdue"
	EventGenerated  = "generated"
)

type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	defaultWriteWait = 10 * time.Second
	broadcastQueue   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans events out to every connected websocket client
type Hub struct {
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan Event
	writeWait  time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Event, broadcastQueue),
		writeWait: defaultWriteWait,
	}
}

// Publish queues an event. It never blocks a request: when the queue is full the event is dropped.
func (h *Hub) Publish(eventType string, payload interface{}) {
	event := Event{Type: eventType, Payload: payload, Timestamp: time.Now()}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[Live] Dropping %s event, broadcast queue full", eventType)
	}
}

// Run delivers queued events until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// deliver writes outside the lock so a slow client cannot hold up registration.
// Only Run calls it, which keeps a single writer per connection.
func (h *Hub) deliver(event Event) {
	h.clientsMux.Lock()
	targets := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.clientsMux.Unlock()

	for _, client := range targets {
		client.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := client.WriteJSON(event); err != nil {
			h.remove(client)
		}
	}
}

// remove drops a client once, whichever of the reader or the writer notices first
func (h *Hub) remove(conn *websocket.Conn) {
	h.clientsMux.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		metrics.WebsocketClients.Dec()
	}
	h.clientsMux.Unlock()
	conn.Close()
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
		metrics.WebsocketClients.Dec()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the client registered until it disconnects.
// Incoming messages are read and discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Live] WebSocket upgrade error:", err)
		return
	}

	h.clientsMux.Lock()
	h.clients[conn] = true
	h.clientsMux.Unlock()
	metrics.WebsocketClients.Inc()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}
