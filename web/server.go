package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"markestedt/snapkeys/binds"
	"markestedt/snapkeys/combo"
	"markestedt/snapkeys/logging"
	"markestedt/snapkeys/storage"
)

var logger = logging.For("web")

//go:embed static/*
var staticFiles embed.FS

// CheckOrigin is left nil: gorilla then rejects cross-origin upgrades.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StatusSource reports whether a combo is in progress.
type StatusSource interface {
	Armed() bool
}

// Server is the read-only dashboard. db may be nil when history is
// disabled.
type Server struct {
	store  *binds.Store
	db     *storage.DB
	status StatusSource
	port   int
	hub    *Hub
}

// NewServer creates a new web server
func NewServer(store *binds.Store, db *storage.DB, status StatusSource, port int) *Server {
	hub := NewHub()
	go hub.Run()

	return &Server{
		store:  store,
		db:     db,
		status: status,
		port:   port,
		hub:    hub,
	}
}

// URL is the dashboard address.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// Handler builds the route table.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/bindings", s.handleBindings)
	mux.HandleFunc("GET /api/bindings/{letter}", s.handleBindingImage)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load static files: %w", err)
	}
	mux.Handle("GET /", http.FileServer(http.FS(staticFS)))

	return s.loopbackOnly(mux), nil
}

// loopbackOnly rejects requests whose Host is not a loopback name. The
// port must match too unless the server was built with port 0.
func (s *Server) loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allowedHost(r.Host) {
			logger.Warn("Rejected request for foreign host", "host", r.Host, "path", r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedHost(hostport string) bool {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = strings.Trim(hostport, "[]"), ""
	}
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
	default:
		return false
	}
	return s.port == 0 || port == "" || port == strconv.Itoa(s.port)
}

// Start serves on the loopback interface until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.hub.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Web server shutdown", "error", err)
		}
	}()

	logger.Info("Starting web server", "port", s.port, "url", s.URL())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// BroadcastStatus broadcasts a status update to all connected clients
func (s *Server) BroadcastStatus(status string) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeStatus,
		Data: StatusMessage{Status: status},
	})
}

// BroadcastAttempt pushes a finished combo to all connected clients.
func (s *Server) BroadcastAttempt(a combo.Attempt) {
	msg := AttemptMessage{
		ID:         a.ID,
		Mode:       a.Mode.String(),
		Status:     a.Status.String(),
		Size:       a.Size,
		DurationMs: a.Duration.Milliseconds(),
		Timestamp:  a.Started.UTC().Format(time.RFC3339),
	}
	if a.Key != 0 {
		msg.Key = a.Key.String()
	}
	if a.Err != nil {
		msg.Error = a.Err.Error()
	}
	s.hub.BroadcastMessage(Message{Type: MessageTypeAttempt, Data: msg})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	if !s.hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
