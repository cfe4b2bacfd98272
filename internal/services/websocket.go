package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client is one websocket watcher of a tracking token
type Client struct {
	Token string
	Conn  *websocket.Conn
	Send  chan []byte
	Hub   *Hub
}

// Hub maintains the set of watchers per tracking token and relays
// coordinate samples from Redis pub/sub to them. A Redis subscription for a
// token exists only while at least one watcher is connected.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan tokenMessage
	mutex      sync.RWMutex

	relays map[string]*tokenRelay
}

type tokenMessage struct {
	token string
	data  []byte
}

type tokenRelay struct {
	watchers int
	cancel   context.CancelFunc
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan tokenMessage),
		relays:     make(map[string]*tokenRelay),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.addWatcher(client.Token)
			log.Printf("Tracking watcher connected for token %s", client.Token)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			h.removeWatcher(client.Token)
			log.Printf("Tracking watcher disconnected from token %s", client.Token)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if client.Token != message.token {
					continue
				}
				select {
				case client.Send <- message.data:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// addWatcher starts the Redis relay for a token on its first watcher
func (h *Hub) addWatcher(token string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if relay, ok := h.relays[token]; ok {
		relay.watchers++
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.relays[token] = &tokenRelay{watchers: 1, cancel: cancel}

	go h.relayCoordinates(ctx, token)
}

// removeWatcher tears the relay down when the last watcher leaves
func (h *Hub) removeWatcher(token string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	relay, ok := h.relays[token]
	if !ok {
		return
	}
	relay.watchers--
	if relay.watchers <= 0 {
		relay.cancel()
		delete(h.relays, token)
	}
}

// relayCoordinates pumps a token's Redis channel into the hub broadcast
func (h *Hub) relayCoordinates(ctx context.Context, token string) {
	sub := SubscribeCoordinates(ctx, token)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.BroadcastCoordinate(token, []byte(msg.Payload))
		}
	}
}

// BroadcastCoordinate sends a raw coordinate payload to every watcher of a
// token, wrapped in the standard message envelope.
func (h *Hub) BroadcastCoordinate(token string, payload []byte) {
	var coord LatestCoordinate
	if err := json.Unmarshal(payload, &coord); err != nil {
		log.Printf("Error unmarshaling coordinate payload: %v", err)
		return
	}

	message := WebSocketMessage{
		Type: "coordinate_update",
		Data: coord,
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling coordinate update: %v", err)
		return
	}

	h.broadcast <- tokenMessage{token: token, data: data}
}

// SendSessionEnded tells a token's watchers the broadcast is over
func (h *Hub) SendSessionEnded(token string, reason string) {
	message := WebSocketMessage{
		Type: "session_ended",
		Data: map[string]string{"reason": reason},
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling session ended: %v", err)
		return
	}
	h.broadcast <- tokenMessage{token: token, data: data}
}

// GetConnectedClients returns the number of connected watchers
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocket message types
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// HandleWebSocket upgrades a connection into a watcher of one token
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, token string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		Token: token,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Hub:   hub,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so close frames are noticed. Watchers are
// read-only; inbound payloads are ignored.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
