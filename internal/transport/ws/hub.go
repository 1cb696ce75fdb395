// Package ws fans pipeline events out to connected websocket clients.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Connection represents a single websocket connection. A connection may
// subscribe to one thread; unsubscribed connections only receive global
// broadcasts.
type Connection struct {
	ID       string
	ThreadID string
	Conn     *websocket.Conn
	Send     chan []byte
	mu       sync.Mutex
}

// Hub manages all websocket connections.
type Hub struct {
	log logrus.FieldLogger

	// Connections indexed by connection ID
	connections map[string]*Connection

	// Threads maps thread_id to set of connection IDs
	threads map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *threadMessage

	mu sync.RWMutex
}

// threadMessage is a payload addressed to a thread's subscribers, or to
// everyone when ThreadID is empty.
type threadMessage struct {
	ThreadID string
	Data     []byte
}

// NewHub creates a new Hub.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log:         log,
		connections: make(map[string]*Connection),
		threads:     make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *threadMessage, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if conn.ThreadID != "" {
				if h.threads[conn.ThreadID] == nil {
					h.threads[conn.ThreadID] = make(map[string]bool)
				}
				h.threads[conn.ThreadID][conn.ID] = true
			}
			h.mu.Unlock()
			h.log.Debugf("Connection registered: %s (thread: %s)", conn.ID, conn.ThreadID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				h.dropSubscriptionLocked(conn)
				close(conn.Send)
			}
			h.mu.Unlock()
			h.log.Debugf("Connection unregistered: %s", conn.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if msg.ThreadID == "" {
				for _, conn := range h.connections {
					h.deliver(conn, msg.Data)
				}
			} else if connIDs, ok := h.threads[msg.ThreadID]; ok {
				for connID := range connIDs {
					if conn, exists := h.connections[connID]; exists {
						h.deliver(conn, msg.Data)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) deliver(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		// Buffer full, close the connection
		h.log.Warnf("Connection %s buffer full, closing", conn.ID)
		go h.Unregister(conn)
	}
}

func (h *Hub) dropSubscriptionLocked(conn *Connection) {
	if conn.ThreadID == "" || h.threads[conn.ThreadID] == nil {
		return
	}
	delete(h.threads[conn.ThreadID], conn.ID)
	if len(h.threads[conn.ThreadID]) == 0 {
		delete(h.threads, conn.ThreadID)
	}
}

// NewConnection creates a connection over an upgraded websocket.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Subscribe binds a connection to a thread, replacing any prior subscription.
func (h *Hub) Subscribe(conn *Connection, threadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropSubscriptionLocked(conn)

	conn.ThreadID = threadID
	if threadID == "" {
		return
	}
	if h.threads[threadID] == nil {
		h.threads[threadID] = make(map[string]bool)
	}
	h.threads[threadID][conn.ID] = true
}

// Broadcast sends a payload to a thread's subscribers.
func (h *Hub) Broadcast(threadID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warnf("Failed to marshal broadcast payload: %v", err)
		return
	}
	h.broadcast <- &threadMessage{ThreadID: threadID, Data: data}
}

// BroadcastAll sends a payload to every connection.
func (h *Hub) BroadcastAll(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warnf("Failed to marshal broadcast payload: %v", err)
		return
	}
	h.broadcast <- &threadMessage{Data: data}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Close closes the underlying websocket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
