package websocket

import (
	"log"
	"sync"
	"time"

	"wallpaperd/types"
)

// AllItems is the subscription key for clients that want every item update
const AllItems = "all"

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run()
	Broadcast(message types.StateMessage)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
	ClientCount(name string) int
}

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	// Registered clients mapped by wallpaper name
	clients map[string]map[*Client]bool

	// Broadcast channel for sending messages to all clients of an item
	broadcast chan types.StateMessage

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.StateMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main event loop
func (h *hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.name] == nil {
				h.clients[client.name] = make(map[*Client]bool)
			}
			h.clients[client.name][client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected for wallpaper %s", client.name)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.name]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.name)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected for wallpaper %s", client.name)

		case message := <-h.broadcast:
			h.mu.Lock()
			h.deliver(message.Name, message)
			h.deliver(AllItems, message)
			h.mu.Unlock()
		}
	}
}

// deliver sends message to the clients subscribed under key; slow clients are dropped.
func (h *hub) deliver(key string, message types.StateMessage) {
	clients, ok := h.clients[key]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(clients, client)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, key)
	}
}

// Broadcast queues a message for the item's subscribers and the "all" subscribers
func (h *hub) Broadcast(message types.StateMessage) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("WebSocket broadcast channel full, dropping message for wallpaper %s", message.Name)
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of clients subscribed under name
func (h *hub) ClientCount(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[name])
}
