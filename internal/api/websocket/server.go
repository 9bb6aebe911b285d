package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fortuna/hoopstats/internal/publisher"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Tailer is a source of progress events.
type Tailer interface {
	Tail(ctx context.Context, from string, fn func(id string, e publisher.Event) error) error
}

// Server relays the progress stream to websocket clients.
type Server struct {
	hub    *Hub
	logger *zap.Logger
}

// NewServer creates a new WebSocket server
func NewServer(logger *zap.Logger) *Server {
	return &Server{
		hub:    NewHub(),
		logger: logger.Named("ws"),
	}
}

// Run starts the hub and, when tail is non-nil, relays new stream events
// until ctx ends.
func (s *Server) Run(ctx context.Context, tail Tailer) error {
	go s.hub.Run(ctx)
	if tail == nil {
		<-ctx.Done()
		return nil
	}

	err := tail.Tail(ctx, "$", func(id string, e publisher.Event) error {
		msg, err := json.Marshal(e)
		if err != nil {
			return err
		}
		s.hub.Broadcast(msg)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Handler returns the websocket routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws/progress", s.handleProgress)
	r.HandleFunc("/ws/health", s.handleHealth)
	return r
}

// handleProgress upgrades a connection and subscribes it to the feed.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
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
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// handleHealth returns WebSocket server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
	})
}

// Broadcast sends a message to every connected client.
func (s *Server) Broadcast(msg []byte) {
	s.hub.Broadcast(msg)
}
