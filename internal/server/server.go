package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/tvdiscovery/internal/discovery"
	"github.com/muurk/tvdiscovery/internal/logging"
)

// shutdownTimeout bounds graceful shutdown after a signal
const shutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Addr     string // host:port; port 0 picks a free port
	CertPath string // Serve wss:// when both CertPath and KeyPath are set
	KeyPath  string
	LogLevel string // Re-initializes logging when non-empty

	// ServiceTypes are scanned when a client does not pass ?types=
	ServiceTypes []string

	// Timing is used for every scan session
	Timing discovery.Timing

	// AllowedOrigins lists extra Origin values accepted on upgrade.
	// Same-origin and Origin-less clients are always accepted.
	AllowedOrigins []string

	// NewBrowser creates the browser for one scan session. When nil each
	// session gets its own zeroconf browser.
	NewBrowser func() discovery.Browser
}

// Server serves the WebSocket discovery feed
type Server struct {
	config      *Config
	httpServer  *http.Server
	listener    net.Listener
	tlsConfig   *tls.Config
	upgrader    websocket.Upgrader
	wg          sync.WaitGroup
	mu          sync.Mutex
	closing     bool
	activeConns map[string]*websocket.Conn
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if config.LogLevel != "" {
		if err := logging.Initialize(config.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	var tlsConfig *tls.Config
	switch {
	case config.CertPath != "" && config.KeyPath != "":
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	case config.CertPath != "" || config.KeyPath != "":
		return nil, errors.New("both a certificate and a key are required for TLS")
	}

	if len(config.ServiceTypes) == 0 {
		config.ServiceTypes = discovery.DefaultServiceTypes
	}

	s := &Server{
		config:      config,
		tlsConfig:   tlsConfig,
		activeConns: make(map[string]*websocket.Conn),
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: writeWait,
		CheckOrigin:      s.checkOrigin,
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start serves and blocks until SIGINT/SIGTERM or a serve error. It listens
// first unless Listen was already called.
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Listen opens the listening socket (TLS when configured)
func (s *Server) Listen() error {
	addr := s.config.Addr

	var (
		listener net.Listener
		err      error
	)
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
		listener, err = tls.Listen("tcp", addr, s.tlsConfig)
	} else {
		listener, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	logging.Info("Discovery feed listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.Strings("service_types", s.config.ServiceTypes),
	)
	return nil
}

// Addr returns the listening address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Shutdown
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections, closes running feeds and waits for
// their handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	s.closing = true
	for addr, conn := range s.activeConns {
		logging.Info("Closing active feed", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Error("Error closing listener", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All feeds closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return err
}

// ActiveScans returns the number of connected feed clients
func (s *Server) ActiveScans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// track registers a feed connection; it fails once shutdown has begun
func (s *Server) track(remoteAddr string, conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.activeConns[remoteAddr] = conn
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(remoteAddr string) {
	s.mu.Lock()
	delete(s.activeConns, remoteAddr)
	s.mu.Unlock()
	s.wg.Done()
}
