package server

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nedpals/davi-sector-agent/nfc"
	"github.com/nedpals/davi-sector-agent/protocol"
)

// HandlerFunc handles one websocket request. It writes its own response to
// the client and returns an error if processing failed.
type HandlerFunc func(ctx context.Context, client *Client, req WebsocketRequest) error

// LifecycleFunc runs for the lifetime of the server. A non-nil error stops it.
type LifecycleFunc func(ctx context.Context) error

// HandlerServer provides methods for handlers to register routes and start lifecycle processes.
// It also provides broadcast methods for sending data to connected clients.
type HandlerServer interface {
	// Handle registers a handler function for a specific message type
	Handle(messageType string, handler HandlerFunc) error

	// StartLifecycle registers a function to be run when the server starts
	StartLifecycle(start LifecycleFunc)

	// Decode classifies a dump without broadcasting it.
	Decode(dump *nfc.SectorDump, source string) (*protocol.SectorReportPayload, error)

	// Publish classifies a dump and broadcasts the report to every client.
	Publish(dump *nfc.SectorDump, source string) (*protocol.SectorReportPayload, error)

	BroadcastReaderStatus(status protocol.ReaderStatusPayload)
}

// ServerHandler is the interface that handlers must implement.
// Handlers call Register() to set up their routes and lifecycle in one place.
type ServerHandler interface {
	Register(server HandlerServer)
}

// HandlerRegistry manages websocket message handlers using a router-style approach.
// It provides thread-safe registration and retrieval of handler functions by message type.
type HandlerRegistry struct {
	handlers          map[string]HandlerFunc
	lifecycleStarters []LifecycleFunc
	mu                sync.RWMutex
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers a handler function for a specific message type.
// Returns an error if a handler for the same message type is already registered.
func (r *HandlerRegistry) Handle(messageType string, handler HandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	if messageType == "" {
		return fmt.Errorf("message type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[messageType]; exists {
		return fmt.Errorf("handler for message type '%s' already registered", messageType)
	}

	r.handlers[messageType] = handler
	return nil
}

// RegisterLifecycle registers a lifecycle function to be run when the server starts.
func (r *HandlerRegistry) RegisterLifecycle(start LifecycleFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lifecycleStarters = append(r.lifecycleStarters, start)
}

// Get retrieves a handler function by message type.
func (r *HandlerRegistry) Get(messageType string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[messageType]
	return handler, ok
}

// MessageTypes returns all registered message types, sorted.
func (r *HandlerRegistry) MessageTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Lifecycles returns a copy of the registered lifecycle functions.
func (r *HandlerRegistry) Lifecycles() []LifecycleFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]LifecycleFunc(nil), r.lifecycleStarters...)
}
