package demo

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultAddr is the listen address used when none is given. Port 0 lets
// the kernel pick a free port; URL reports the resolved address.
const DefaultAddr = "127.0.0.1:0"

// Server serves the embedded practice exam page on a local address.
type Server struct {
	mu       sync.Mutex
	addr     string
	listener net.Listener
	httpSrv  *http.Server
	logger   *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for server lifecycle messages.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a demo page server for the given listen address.
// An empty address falls back to DefaultAddr.
func NewServer(addr string, opts ...ServerOption) *Server {
	s := &Server{addr: addr}

	for _, opt := range opts {
		opt(s)
	}

	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Start binds the listen address and serves the exam page in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return ErrServerRunning
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleExamPage)

	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := "http://" + listener.Addr().String()
	srv := s.httpSrv
	go func() {
		s.logger.Info("demo exam page available", "url", url)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("demo server stopped unexpectedly", "error", err)
		}
	}()

	return nil
}

// handleExamPage serves the embedded exam page at the root path.
func (s *Server) handleExamPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, examPageHTML)
}

// URL returns the base URL of the running server, or "" before Start.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// Shutdown gracefully stops the server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv == nil {
		return nil
	}
	srv := s.httpSrv
	s.httpSrv = nil

	return srv.Shutdown(ctx)
}
