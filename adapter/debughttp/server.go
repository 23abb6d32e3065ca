package debughttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/trickstertwo/xlog"
)

// Config configures the debug server.
type Config struct {
	// ListenAddr defaults to "127.0.0.1:6060"; keep it on loopback.
	ListenAddr        string
	ReadHeaderTimeout time.Duration
}

// Defaults returns safe defaults.
func Defaults() Config {
	return Config{
		ListenAddr:        "127.0.0.1:6060",
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Server runs the debug router on its own listener.
type Server struct {
	cfg    Config
	srv    *http.Server
	logger *xlog.Logger

	mu   sync.Mutex
	addr net.Addr
}

// NewServer wraps router. Nothing listens until Start.
func NewServer(cfg Config, rc RouterConfig) *Server {
	def := Defaults()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = def.ReadHeaderTimeout
	}
	lg := rc.Logger
	if lg == nil {
		lg = xlog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: lg,
		srv: &http.Server{
			Handler:           NewRouter(rc),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
	}
}

// Start opens the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("debughttp listening")
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("debughttp serve failed")
		}
	}()
	return nil
}

// Addr returns the bound address once started, nil before.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
