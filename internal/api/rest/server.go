package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tendalyze/tendalyze/internal/metrics"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server
func NewServer(port string, handler *Handler, m *metrics.Metrics, logger *zap.Logger) *Server {
	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           NewRouter(handler, m, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter wires every route and middleware onto a mux router
func NewRouter(handler *Handler, m *metrics.Metrics, logger *zap.Logger) *mux.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)
	router.Use(MetricsMiddleware(m))

	// CORS preflight; CORSMiddleware answers before this handler runs
	router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Health check and metrics
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	router.Handle("/metrics", m.Handler()).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Teams
	api.HandleFunc("/teams", handler.GetTeams).Methods("GET")
	api.HandleFunc("/teams/{teamID}", handler.GetTeam).Methods("GET")
	api.HandleFunc("/teams/{teamID}/games", handler.GetTeamGames).Methods("GET")
	api.HandleFunc("/teams/{teamID}/tendencies", handler.GetTeamTendencies).Methods("GET")

	// Games
	api.HandleFunc("/games", handler.GetGames).Methods("GET")
	api.HandleFunc("/games/{gameID}", handler.GetGame).Methods("GET")
	api.HandleFunc("/games/{gameID}/plays", handler.GetGamePlays).Methods("GET")
	api.HandleFunc("/games/{gameID}/drives", handler.GetGameDrives).Methods("GET")
	api.HandleFunc("/games/{gameID}/summary", handler.GetGameSummary).Methods("GET")

	// Plays
	api.HandleFunc("/plays/{playID}", handler.GetPlay).Methods("GET")

	// Ingest operations
	api.HandleFunc("/ingest/teams", handler.IngestTeams).Methods("POST")
	api.HandleFunc("/ingest/hudl", handler.IngestHudl).Methods("POST")
	api.HandleFunc("/ingest/normalize", handler.IngestNormalize).Methods("POST")

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
