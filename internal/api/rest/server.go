package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server. A non-nil ws handler is mounted
// under /ws/.
func NewServer(port string, handler *Handler, ws http.Handler, logger *zap.Logger) *Server {
	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           NewRouter(handler, ws, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter builds the route table.
func NewRouter(handler *Handler, ws http.Handler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/games", handler.ListGames).Methods("GET")
	api.HandleFunc("/teams/{team}/record", handler.GetTeamRecord).Methods("GET")
	api.HandleFunc("/schema", handler.GetSchema).Methods("GET")
	api.HandleFunc("/failures", handler.ListFailures).Methods("GET")
	api.HandleFunc("/failures", handler.ClearFailures).Methods("DELETE")

	if ws != nil {
		router.PathPrefix("/ws/").Handler(ws)
	}
	return router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
