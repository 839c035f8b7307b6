package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tendalyze/tendalyze/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventSource delivers ingest events as they are published
type EventSource interface {
	Tail(ctx context.Context, fn func(store.IngestEvent)) error
}

// Server represents the WebSocket server
type Server struct {
	port   string
	server *http.Server
	hub    *Hub
	source EventSource
	logger *zap.Logger
}

// NewServer creates a new WebSocket server. A nil source leaves the feed
// silent; clients can still connect.
func NewServer(source EventSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		hub:    NewHub(logger),
		source: source,
		logger: logger,
	}
}

// Handler returns the websocket routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/ingest", s.handleIngest)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start starts the hub, the event relay and the listener. It blocks until
// the listener stops.
func (s *Server) Start(ctx context.Context, port string) error {
	s.port = port

	// Start the hub in a goroutine
	go s.hub.Run()
	go s.relay(ctx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("WebSocket server listening", zap.String("port", port))
	return s.server.ListenAndServe()
}

// relay tails the event source and broadcasts every event until ctx ends
func (s *Server) relay(ctx context.Context) {
	if s.source == nil {
		return
	}

	for {
		err := s.source.Tail(ctx, s.BroadcastIngest)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("ingest stream tail failed, retrying", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

// handleIngest handles WebSocket connections for the ingest feed
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// handleHealth returns WebSocket server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// BroadcastIngest sends an ingest event to all connected clients
func (s *Server) BroadcastIngest(event store.IngestEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode ingest event", zap.Error(err))
		return
	}
	s.hub.Broadcast(data)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
