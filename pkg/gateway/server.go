package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/kevinai/kevin/pkg/orchestrator"
	"github.com/kevinai/kevin/pkg/router"
	"github.com/kevinai/kevin/pkg/store"
	"github.com/kevinai/kevin/pkg/tooldispatch"
)

// Server is the HTTP and WebSocket front of the daemon. It stays thin:
// every request is decode, delegate, encode.
type Server struct {
	port         int
	store        store.Store
	orchestrator *orchestrator.Orchestrator
	dispatcher   *tooldispatch.Dispatcher
	modelRouter  *router.ModelRouter
	toolTimeout  time.Duration

	server   *http.Server
	upgrader websocket.Upgrader

	clients   map[string]map[*wsClient]bool
	clientsMu sync.Mutex

	logger zerolog.Logger
}

// Config holds server configuration
type Config struct {
	Port         int
	Store        store.Store
	Orchestrator *orchestrator.Orchestrator
	Dispatcher   *tooldispatch.Dispatcher
	ModelRouter  *router.ModelRouter
	ToolTimeout  time.Duration
	Logger       zerolog.Logger
}

// NewServer creates a new Server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.ModelRouter == nil {
		return nil, fmt.Errorf("model router is required")
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = tooldispatch.DefaultTimeout
	}

	return &Server{
		port:         cfg.Port,
		store:        cfg.Store,
		orchestrator: cfg.Orchestrator,
		dispatcher:   cfg.Dispatcher,
		modelRouter:  cfg.ModelRouter,
		toolTimeout:  cfg.ToolTimeout,
		clients:      make(map[string]map[*wsClient]bool),
		logger:       cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}, nil
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	r := httprouter.New()

	r.GET("/", s.handleRoot)
	r.GET("/healthz", s.handleHealth)

	r.POST("/api/sessions", s.handleCreateSession)
	r.GET("/api/sessions", s.handleListSessions)
	r.GET("/api/sessions/:id", s.handleGetSession)
	r.DELETE("/api/sessions/:id", s.handleDeleteSession)

	r.POST("/api/sessions/:id/chat", s.handleChat)
	r.GET("/api/sessions/:id/messages", s.handleGetMessages)
	r.GET("/api/sessions/:id/todos", s.handleGetTodos)
	r.PUT("/api/sessions/:id/todos", s.handleUpdateTodos)
	r.POST("/api/sessions/:id/tools/execute", s.handleExecuteTool)

	r.GET("/api/sessions/:id/costs", s.handleSessionCosts)
	r.GET("/api/costs", s.handleAllCosts)
	r.POST("/api/costs/estimate", s.handleEstimateCost)
	r.GET("/api/tools", s.handleListTools)

	r.GET("/ws/:id", s.handleWebSocket)

	return r
}

// Start starts the server in the background
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Int("port", s.port).Msg("Starting gateway server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down gateway server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
