package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lox/flip7odds/internal/odds"
	"github.com/lox/flip7odds/internal/roundlog"
	"github.com/lox/flip7odds/internal/store"
)

// Options configures a Server. Engine is required; Recorder and Store
// are optional and the matching surfaces degrade when absent.
type Options struct {
	Addr     string
	Engine   *odds.Engine
	Recorder *roundlog.Recorder
	Store    *store.DB
	Clock    quartz.Clock
}

// Server serves evaluations over HTTP and WebSocket.
type Server struct {
	addr     string
	engine   *odds.Engine
	recorder *roundlog.Recorder
	store    *store.DB
	clock    quartz.Clock

	router     chi.Router
	httpServer *http.Server

	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection

	logger *log.Logger
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server around an engine.
func New(logger *log.Logger, opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:7707"
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:     opts.Addr,
		engine:   opts.Engine,
		recorder: opts.Recorder,
		store:    opts.Store,
		clock:    opts.Clock,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}

	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(compression)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/round", s.handleRound)
		r.Get("/deck", s.handleDeck)
		r.Get("/rounds", s.handleRounds)
	})
	s.router = r

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start() error {
	go s.run()

	s.logger.Info("Starting server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop closes all WebSocket connections and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.mu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "session", conn.Session(), "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close() // Ignore close errors during unregistration
			}
			total := len(s.connections)
			s.mu.Unlock()

			if s.recorder != nil {
				s.recorder.RemoveSession(conn.Session())
			}
			s.logger.Info("Client disconnected", "session", conn.Session(), "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)
	s.register <- client
	client.Start()

	// Connection cleanup is handled by the connection itself
	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}
