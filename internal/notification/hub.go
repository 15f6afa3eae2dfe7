// internal/notification/hub.go

package notification

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Client is a single websocket connection owned by one user
type Client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Hub maintains active websocket connections, one topic per user
type Hub struct {
	clients    map[int64][]*Client
	clientsMux sync.RWMutex

	broadcast  chan userMessage
	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
}

type userMessage struct {
	userID  int64
	payload []byte
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[int64][]*Client),
		broadcast:  make(chan userMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliver(message)

		case <-h.ctx.Done():
			h.cleanup()
			return
		}
	}
}

// Send queues an event for every connection the user currently holds.
// Best-effort: if the hub or a client buffer is full the message is dropped.
func (h *Hub) Send(userID int64, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event for user %d: %v", userID, err)
		return
	}

	select {
	case h.broadcast <- userMessage{userID: userID, payload: payload}:
	default:
		log.Printf("Hub broadcast buffer full, dropping %s event for user %d", event.Kind, userID)
	}
}

func (h *Hub) Shutdown() {
	h.cancel()
}

// Register attaches a new websocket connection for the user and starts its pumps
func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	client := &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		hub:    h,
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// dropClient hands the client back to the hub loop. After Shutdown the loop
// is gone, so disconnecting pumps must not block on the unregister channel.
func (h *Hub) dropClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	h.clients[client.userID] = append(h.clients[client.userID], client)
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	conns := h.clients[client.userID]
	for i, c := range conns {
		if c == client {
			h.clients[client.userID] = append(conns[:i], conns[i+1:]...)
			close(client.send)
			break
		}
	}
	if len(h.clients[client.userID]) == 0 {
		delete(h.clients, client.userID)
	}
}

func (h *Hub) deliver(message userMessage) {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	for _, client := range h.clients[message.userID] {
		select {
		case client.send <- message.payload:
		default:
			// Slow consumer, drop rather than block the hub
			log.Printf("Client buffer full for user %d, dropping message", message.userID)
		}
	}
}

func (h *Hub) cleanup() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for userID, conns := range h.clients {
		for _, client := range conns {
			close(client.send)
			client.conn.Close()
		}
		delete(h.clients, userID)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// This channel is server-to-client only; reads exist to detect close
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
