// internal/control/server.go
package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/jdharms/termynal/internal/player"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownCommand is returned for commands the server does not know
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidCommand is returned for commands missing a required argument
	ErrInvalidCommand = errors.New("invalid command")
)

// Server exposes registered players over REST and websockets
type Server struct {
	logger   *logrus.Logger
	upgrader websocket.Upgrader
	registry *player.Registry
	clients  map[*Client]bool
	router   http.Handler
	mu       sync.RWMutex

	// Server configuration
	host string
	port int

	// State
	running   bool
	startTime time.Time
	server    *http.Server
}

// NewServer creates a control server for the players in registry
func NewServer(logger *logrus.Logger, registry *player.Registry, host string, port int) *Server {
	s := &Server{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		registry: registry,
		clients:  make(map[*Client]bool),
		host:     host,
		port:     port,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/stats", s.handleStats)

	r.Route("/instances", func(r chi.Router) {
		r.Get("/", s.handleList)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.instanceCtx)

			r.Get("/", s.handleGet)
			r.Get("/ws", s.handleWebSocket)
			r.Get("/lines", s.handleGetLines)
			r.Post("/lines", s.handleAddLines)
			r.Patch("/lines/{index}", s.handlePatchLine)
			r.Delete("/lines/{index}", s.handleDeleteLine)
			r.Put("/timing", s.handleSetTiming)
			r.Put("/config", s.handleUpdateConfig)
			r.Post("/{action}", s.handleAction)
		})
	})

	return r
}

// Start starts the control server
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	// Create HTTP server; request contexts derive from ctx
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.running = true
	s.startTime = time.Now()

	// Start serving in the background
	go func() {
		s.logger.WithField("addr", s.server.Addr).Info("Starting control server")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Control server error")
		}
	}()

	return nil
}

// Stop disconnects every client and shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	server := s.server
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	s.logger.Info("Stopping control server")

	// Close all websocket clients
	for _, client := range clients {
		client.close()
	}

	// Shutdown HTTP server
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			s.logger.WithError(err).Error("Error shutting down control server")
			return err
		}
	}

	s.logger.Info("Control server stopped")
	return nil
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetClientCount returns the number of connected clients
func (s *Server) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Stats returns a snapshot of the server
func (s *Server) Stats() ServerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ServerStats{
		Running:     s.running,
		Address:     s.Addr(),
		StartTime:   s.startTime,
		Instances:   s.registry.Len(),
		ClientCount: len(s.clients),
		Clients:     make([]ClientInfo, 0, len(s.clients)),
	}
	for client := range s.clients {
		stats.Clients = append(stats.Clients, client.info())
	}
	return stats
}

// registerClient registers a new client
func (s *Server) registerClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[client] = true
	client.logger.Info("Control client connected")
}

// unregisterClient unregisters a client and stops its event stream
func (s *Server) unregisterClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
		client.cancel()
		client.logger.Info("Control client disconnected")
	}
}

// enqueue hands a frame to a client's writer unless it has gone away
func (s *Server) enqueue(client *Client, message []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.clients[client] {
		return
	}

	select {
	case client.send <- message:
	default:
		client.logger.Warn("Control client is not keeping up, dropping message")
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("Control request")
	})
}

// apply runs a playback command against p
func apply(p *player.Player, cmd Command) error {
	switch cmd.Command {
	case CommandStart:
		p.Start()
	case CommandPause:
		p.Pause()
	case CommandResume:
		p.Resume()
	case CommandToggle:
		p.TogglePause()
	case CommandRestart:
		p.Restart()
	case CommandStop:
		p.Stop()
	case CommandClear:
		p.Clear()
	case CommandSpeed:
		p.ToggleSpeed()
	case CommandFast:
		p.SetSpeed(true)
	case CommandNormal:
		p.SetSpeed(false)
	case CommandSkip:
		if cmd.Index == nil {
			return fmt.Errorf("%w: skip requires an index", ErrInvalidCommand)
		}
		p.SkipToLine(*cmd.Index)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Command)
	}
	return nil
}
