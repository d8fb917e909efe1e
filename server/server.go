// Package server provides HTTP and WebSocket server infrastructure for the sector agent.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/nedpals/davi-sector-agent/nfc"
	"github.com/nedpals/davi-sector-agent/protocol"
)

// Config holds the server configuration
type Config struct {
	Port      int
	APISecret string // Optional secret required on /ws and /api/v1/sectors
	MDNS      bool
	StrictHex bool // Reject dumps containing malformed hex blocks
	Verbose   bool

	// Reader is optional. When set, the live reader loop publishes every new card.
	Reader       nfc.SectorReader
	PollInterval time.Duration

	// Classifier defaults to nfc.DefaultClassifier.
	Classifier *nfc.Classifier

	// TLSCertFile and TLSKeyFile switch the listener to HTTPS/WSS.
	TLSCertFile string
	TLSKeyFile  string
}

func (c Config) tlsEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Server manages the HTTP and WebSocket server
type Server struct {
	config   Config
	clients  *clientSet
	upgrader websocket.Upgrader

	handlerRegistry *HandlerRegistry

	lastReport   *protocol.SectorReportPayload
	readerStatus *protocol.ReaderStatusPayload
	stateMu      sync.RWMutex

	// mDNS service for auto-discovery
	mdns *mdnsService
}

// New creates a new server instance
func New(config Config) *Server {
	if config.Classifier == nil {
		config.Classifier = nfc.DefaultClassifier
	}

	s := &Server{
		config:  config,
		clients: newClientSet(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		handlerRegistry: NewHandlerRegistry(),
	}

	NewSectorHandler(config.StrictHex, config.Classifier).Register(s)
	if config.Reader != nil {
		NewReaderHandler(config.Reader, config.PollInterval).Register(s)
	}

	return s
}

// Handle implements HandlerServer interface.
func (s *Server) Handle(messageType string, handler HandlerFunc) error {
	return s.handlerRegistry.Handle(messageType, handler)
}

// StartLifecycle implements HandlerServer interface.
func (s *Server) StartLifecycle(start LifecycleFunc) {
	s.handlerRegistry.RegisterLifecycle(start)
}

// Decode implements HandlerServer interface.
func (s *Server) Decode(dump *nfc.SectorDump, source string) (*protocol.SectorReportPayload, error) {
	if dump == nil {
		return nil, nfc.Errorf(nfc.ErrCodeInvalidData, "Decode", "no dump")
	}
	if s.config.StrictHex {
		if err := dump.Validate(); err != nil {
			return nil, err
		}
	}

	report := nfc.BuildReport(dump, s.config.Classifier)
	payload := nfc.ToSectorReportPayload(uuid.NewString(), source, time.Now(), report)

	if s.config.Verbose {
		log.Printf("[%s] Decoded %d sector(s), UID=%s", source, len(payload.Sectors), payload.UID)
		for _, line := range report.Lines() {
			log.Printf("[%s] %s", source, line)
		}
	}
	return &payload, nil
}

// Publish implements HandlerServer interface.
func (s *Server) Publish(dump *nfc.SectorDump, source string) (*protocol.SectorReportPayload, error) {
	payload, err := s.Decode(dump, source)
	if err != nil {
		return nil, err
	}

	// stateMu stays held across the broadcast so a connecting client sees
	// each report exactly once, by replay or by broadcast.
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.lastReport = payload
	s.clients.broadcast(protocol.WebSocketMessage{
		Type:    protocol.WSTypeSectorReport,
		Payload: payload,
	})
	return payload, nil
}

// BroadcastReaderStatus implements HandlerServer interface.
func (s *Server) BroadcastReaderStatus(status protocol.ReaderStatusPayload) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.readerStatus = &status
	s.clients.broadcast(protocol.WebSocketMessage{
		Type:    protocol.WSTypeReaderStatus,
		Payload: status,
	})
}

// LastReport returns the most recently published report, or nil.
func (s *Server) LastReport() *protocol.SectorReportPayload {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastReport
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	return s.clients.len()
}

// enableCORS is a middleware that adds CORS headers to responses
func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", CORSAllowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", CORSAllowMethods)
		w.Header().Set("Access-Control-Allow-Headers", CORSAllowHeaders)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// requireSecret rejects requests without the configured API secret.
func (s *Server) requireSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.APISecret != "" && r.URL.Query().Get("secret") != s.config.APISecret {
			log.Printf("Request to %s rejected: invalid API secret", r.URL.Path)
			http.Error(w, "Unauthorized: Invalid API secret", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// Handler returns the HTTP routes served by the agent.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(RouteHealth, enableCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleHealthCheck(w, r)
	}))

	mux.HandleFunc(RouteSectors, enableCORS(s.requireSecret(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleSectorsInput(w, r)
	})))

	mux.HandleFunc(RouteWS, s.requireSecret(s.handleWebSocket))

	mux.HandleFunc("/", enableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Sector Agent Server Running"))
	}))

	return mux
}

// Run serves HTTP on the configured port and runs registered lifecycles
// until ctx is cancelled or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run with a caller-provided listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.config.MDNS {
		mdns, err := startMDNS(s.config.Port, s.config.tlsEnabled())
		if err != nil {
			log.Printf("Warning: Failed to start mDNS service: %v", err)
			log.Printf("Auto-discovery will not be available, but server will continue normally")
		} else {
			s.mdns = mdns
			defer func() {
				s.mdns.Shutdown()
				s.mdns = nil
			}()
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if s.config.tlsEnabled() {
			log.Printf("Starting server on https://%s", listener.Addr())
			err = httpServer.ServeTLS(listener, s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			log.Printf("Starting server on http://%s", listener.Addr())
			err = httpServer.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Server context cancelled, initiating shutdown...")
		s.clients.closeAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		return nil
	})

	for _, start := range s.handlerRegistry.Lifecycles() {
		g.Go(func() error {
			return start(gctx)
		})
	}

	return g.Wait()
}

// handleWebSocket upgrades HTTP connections to WebSocket connections and manages
// the client connection lifecycle
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := newClient(conn)
	log.Printf("WebSocket client %s connected from %s", client.ID, r.RemoteAddr)

	defer func() {
		s.clients.remove(client)
		client.Close()
		log.Printf("WebSocket client %s disconnected", client.ID)
	}()

	// Join the broadcast set and replay current state with publishers held off
	s.stateMu.RLock()
	s.clients.add(client)
	if s.readerStatus != nil {
		client.WriteJSON(protocol.WebSocketMessage{Type: protocol.WSTypeReaderStatus, Payload: s.readerStatus})
	}
	if s.lastReport != nil {
		client.WriteJSON(protocol.WebSocketMessage{Type: protocol.WSTypeSectorReport, Payload: s.lastReport})
	}
	s.stateMu.RUnlock()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var req WebsocketRequest
		if err := json.Unmarshal(message, &req); err != nil {
			log.Printf("Failed to parse WebSocket message: %v", err)
			client.SendError("", "PARSE_ERROR", "Invalid message format")
			continue
		}

		handler, ok := s.handlerRegistry.Get(req.Type)
		if !ok {
			log.Printf("Unknown message type: %s", req.Type)
			client.SendError(req.ID, "UNKNOWN_TYPE", fmt.Sprintf("Unknown message type: %s", req.Type))
			continue
		}

		if err := handler(r.Context(), client, req); err != nil {
			// Error already sent by handler, just log it
			log.Printf("Handler error for message type '%s': %v", req.Type, err)
		}
	}
}

// handleHealthCheck provides a health check endpoint (GET /api/v1/health)
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"clients":   s.ClientCount(),
		"messages":  s.handlerRegistry.MessageTypes(),
	}
	if s.config.Reader != nil {
		health["reader"] = s.config.Reader.String()
	}
	json.NewEncoder(w).Encode(health)
}
