package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"rapidroad/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Group is a broadcast audience. Every connection belongs to exactly one.
type Group string

const (
	GroupAdmins    Group = "admins"
	GroupDrivers   Group = "drivers"
	GroupCustomers Group = "customers"
)

// Event names on the wire
const (
	EventSystemAlert          = "system.alert"
	EventAck                  = "ack"
	EventDriverStatusChange   = "driver.status.change"
	EventDriverLocationUpdate = "driver.location.update"
	EventDriverOnline         = "driver.online"
	EventTripStatusChanged    = "trip.status.changed"
	EventDriverAssigned       = "driver.assigned"
	EventTripAssigned         = "trip.assigned"
	EventNewBookingAlert      = "new.booking.alert"
	EventBookingStatusChanged = "booking.status.changed"
)

const (
	sendBufferSize      = 64
	broadcastBufferSize = 1024
)

// GroupForRole maps a token role to its broadcast group.
func GroupForRole(role string) (Group, bool) {
	switch role {
	case model.RoleAdmin, model.RoleSuperAdmin:
		return GroupAdmins, true
	case model.RoleDriver:
		return GroupDrivers, true
	case model.RoleCustomer:
		return GroupCustomers, true
	}
	return "", false
}

// Message is the envelope of every frame sent or received
type Message struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func encode(event string, data interface{}) []byte {
	b, err := json.Marshal(Message{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		log.Printf("ws: failed to encode event=%s err=%v", event, err)
		return nil
	}
	return b
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
	Role   string
	Group  Group

	locations LocationRecorder
}

type outbound struct {
	group   Group
	client  *Client // set for a direct reply; group is ignored then
	payload []byte
}

// Hub owns the registry of live connections. The registry is mutated only by
// the Run loop; mu lets other goroutines read the group sizes.
type Hub struct {
	clients    map[*Client]Group
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]Group),
		broadcast:  make(chan outbound, broadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run dispatches registry changes and broadcasts until ctx is cancelled, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = client.Group
			h.mu.Unlock()
			log.Printf("ws: client connected user=%s group=%s", client.UserID, client.Group)
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.Send)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	log.Printf("ws: client disconnected user=%s group=%s", client.UserID, client.Group)
	if client.Group == GroupDrivers {
		h.deliver(outbound{group: GroupAdmins, payload: encode(EventDriverStatusChange, map[string]interface{}{
			"driverId": client.UserID,
			"status":   "offline",
		})})
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
		delete(h.clients, client)
	}
	log.Println("ws: hub stopped")
}

func (h *Hub) deliver(msg outbound) {
	if msg.payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.client != nil {
		if _, ok := h.clients[msg.client]; ok {
			trySend(msg.client, msg.payload)
		}
		return
	}
	for client, group := range h.clients {
		if group == msg.group {
			trySend(client, msg.payload)
		}
	}
}

// trySend drops the message when the client's queue is full.
func trySend(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		log.Printf("ws: send queue full, dropping message user=%s", client.UserID)
	}
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		log.Printf("ws: broadcast queue full, dropping message group=%s", msg.group)
	}
}

// Emit sends an event to every member of group.
func (h *Hub) Emit(group Group, event string, data interface{}) {
	h.enqueue(outbound{group: group, payload: encode(event, data)})
}

// EmitTo sends an event to a single connection, if it is still registered.
func (h *Hub) EmitTo(client *Client, event string, data interface{}) {
	h.enqueue(outbound{client: client, payload: encode(event, data)})
}

// Count reports how many connections are currently in group.
func (h *Hub) Count(group Group) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, g := range h.clients {
		if g == group {
			n++
		}
	}
	return n
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
