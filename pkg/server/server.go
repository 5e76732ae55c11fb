package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"github.com/biglinux/bigbashview/internal/ports"
	"github.com/biglinux/bigbashview/pkg/dispatch"
	"github.com/biglinux/bigbashview/pkg/include"
	"github.com/biglinux/bigbashview/pkg/logging"
	"github.com/biglinux/bigbashview/pkg/script"
)

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("server is already running")

// Server is the loopback HTTP server that serves pages and runs scripts.
type Server struct {
	cfg  Config
	log  *slog.Logger
	root *script.RootFlag

	// addr is written once by Start before serving begins.
	addr script.Address

	executor   *script.Executor
	dispatcher *dispatch.Dispatcher
	includes   *include.Preprocessor
	routes     []route
	handler    http.Handler
	terminate  func() error

	scriptOpts  []script.Option
	includeOpts []include.Option

	mu         sync.Mutex
	httpServer *http.Server
	running    bool
	done       chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTerminator replaces what Stop and the close option do. The default
// sends SIGTERM to the current process.
func WithTerminator(fn func() error) Option {
	return func(s *Server) {
		if fn != nil {
			s.terminate = fn
		}
	}
}

// WithScriptOptions passes extra options to the script executor.
func WithScriptOptions(opts ...script.Option) Option {
	return func(s *Server) {
		s.scriptOpts = append(s.scriptOpts, opts...)
	}
}

// WithIncludeOptions passes extra options to the include preprocessor.
func WithIncludeOptions(opts ...include.Option) Option {
	return func(s *Server) {
		s.includeOpts = append(s.includeOpts, opts...)
	}
}

// New creates a Server. Zero values in cfg are replaced by defaults.
func New(cfg Config, opts ...Option) *Server {
	cfg.applyDefaults()
	s := &Server{
		cfg:       cfg,
		log:       logging.Nop(),
		root:      &script.RootFlag{},
		terminate: terminateSelf,
	}
	for _, opt := range opts {
		opt(s)
	}

	scriptOpts := append([]script.Option{
		script.WithLogger(logging.Component(s.log, "script")),
		script.WithTimeout(cfg.ScriptTimeout),
	}, s.scriptOpts...)
	s.executor = script.NewExecutor(s.root, scriptOpts...)

	s.dispatcher = dispatch.New(s.root, logging.Component(s.log, "dispatch"))

	includeOpts := append([]include.Option{
		include.WithMaxDepth(cfg.MaxIncludeDepth),
		include.WithLogger(logging.Component(s.log, "include")),
	}, s.includeOpts...)
	s.includes = include.New(includeOpts...)

	s.routes = s.buildRoutes()
	s.handler = s.requestLogger(s.gate(http.HandlerFunc(s.route)))
	return s
}

// Handler returns the full middleware chain and route table.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Root returns the root-execution flag shared by the dispatcher and executor.
func (s *Server) Root() *script.RootFlag {
	return s.root
}

// Start finds a free port, binds it, serves in the background and waits
// until the listener accepts connections.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ln, err := s.listen()
	if err != nil {
		return err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	s.addr = script.Address{IP: s.cfg.BindAddress, Port: port}

	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelError),
	}
	s.done = make(chan struct{})

	s.log.Info("starting server", "address", s.addr.String())
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
		}
	}(s.httpServer, s.done)

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()
	if err := ports.WaitListening(waitCtx, s.addr.String(), readyPollInterval); err != nil {
		_ = s.httpServer.Close()
		return fmt.Errorf("server did not become ready: %w", err)
	}

	s.running = true
	return nil
}

// listen binds the first free port in the configured range. A port lost to
// another process between probe and bind moves the search past it.
func (s *Server) listen() (net.Listener, error) {
	start := s.cfg.PortStart
	for {
		port, err := ports.FindFree(s.cfg.BindAddress, start, s.cfg.PortEnd)
		if err != nil {
			return nil, err
		}
		addr := net.JoinHostPort(s.cfg.BindAddress, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		s.log.Debug("port taken after probe", "port", port, "error", err)
		start = port + 1
	}
}

// Stop terminates the whole process with SIGTERM.
func (s *Server) Stop() error {
	return s.terminate()
}

// Shutdown gracefully stops serving.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	<-s.done
	return nil
}

// IsRunning reports whether Start succeeded and Shutdown has not run.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the bound address. It is zero before Start.
func (s *Server) Address() script.Address {
	return s.addr
}

// URL returns http://ip:port/path for the bound address.
func (s *Server) URL(path string) string {
	return URLFor(s.addr, path)
}

// URLFor builds the page URL for addr. Paths that already carry a scheme
// are returned unchanged; others are made absolute.
func URLFor(addr script.Address, path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + addr.String() + path
}
