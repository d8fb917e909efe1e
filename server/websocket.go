package server

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nedpals/davi-sector-agent/protocol"
)

// WebsocketRequest represents an incoming request from WebSocket clients.
type WebsocketRequest struct {
	ID      string          `json:"id,omitempty"` // Client-generated request ID
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is a connected WebSocket client. Writes are serialized so handlers
// and broadcasts can share the connection.
type Client struct {
	ID   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{ID: uuid.NewString(), conn: conn}
}

// WriteJSON sends v as a single text message.
func (c *Client) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SendResponse sends a successful response to a request.
func (c *Client) SendResponse(requestID, responseType string, payload any) error {
	return c.WriteJSON(protocol.WebSocketResponse{
		ID:      requestID,
		Type:    responseType,
		Success: true,
		Payload: payload,
	})
}

// SendError sends a structured error response.
func (c *Client) SendError(requestID, errorCode, message string) error {
	err := c.WriteJSON(protocol.WebSocketResponse{
		ID:      requestID,
		Type:    protocol.WSTypeError,
		Success: false,
		Error:   message,
		Payload: map[string]string{"code": errorCode},
	})
	if err != nil {
		log.Printf("Failed to send error response to %s: %v", c.ID, err)
	}
	return err
}

// clientSet tracks connected clients for broadcasting.
type clientSet struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[*Client]bool)}
}

func (cs *clientSet) add(c *Client) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.clients[c] = true
}

func (cs *clientSet) remove(c *Client) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.clients, c)
}

func (cs *clientSet) len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.clients)
}

// broadcast sends a message to all connected clients and drops the ones
// that fail.
func (cs *clientSet) broadcast(message protocol.WebSocketMessage) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for client := range cs.clients {
		if err := client.WriteJSON(message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			client.Close()
			delete(cs.clients, client)
		}
	}
}

// closeAll closes all client connections.
func (cs *clientSet) closeAll() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for client := range cs.clients {
		client.Close()
		delete(cs.clients, client)
	}
}
