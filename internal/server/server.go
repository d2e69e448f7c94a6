// Package server runs an in-memory FTP Finder index server. It backs local
// development, the doctor command and end-to-end tests.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/internal/server/handlers"
	"github.com/3leaps/ftpfinder/internal/server/middleware"
	"github.com/3leaps/ftpfinder/internal/server/state"
)

// DefaultIndexStep is the simulated pause between crawled directories.
const DefaultIndexStep = 200 * time.Millisecond

const shutdownTimeout = 5 * time.Second

// Server is the mock index server.
type Server struct {
	host string
	port int

	logger  *zap.Logger
	store   *state.Store
	indexer *state.Indexer
	router  chi.Router

	step time.Duration
	tree []string
	cost int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIndexStep sets the pause between crawled directories.
func WithIndexStep(step time.Duration) Option {
	return func(s *Server) { s.step = step }
}

// WithTree sets the directory layout reported under every source.
func WithTree(tree []string) Option {
	return func(s *Server) { s.tree = tree }
}

// WithPasswordCost sets the bcrypt cost of the admin password.
func WithPasswordCost(cost int) Option {
	return func(s *Server) { s.cost = cost }
}

// New builds a server that will listen on host:port.
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host:   host,
		port:   port,
		logger: zap.NewNop(),
		step:   DefaultIndexStep,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.store = state.NewStore(s.cost)
	s.indexer = state.NewIndexer(s.store, s.step, s.tree, s.logger.Named("indexer"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(s.logger))
	r.Use(middleware.RecoveryWithLogger(s.logger))
	r.NotFound(middleware.NotFound)
	r.MethodNotAllowed(middleware.MethodNotAllowed)

	handlers.NewAPI(s.store, s.indexer, s.logger).Register(r)
	s.router = r
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Port returns the configured port.
func (s *Server) Port() int { return s.port }

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Store exposes the server's state for seeding and inspection.
func (s *Server) Store() *state.Store { return s.store }

// Close stops any running crawl.
func (s *Server) Close() { s.indexer.Close() }

// Start listens and serves until ctx is canceled, then shuts down
// gracefully. ready, if non-nil, receives the bound address once the
// listener is open.
func (s *Server) Start(ctx context.Context, ready chan<- string) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Mock server listening", zap.String("addr", ln.Addr().String()))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down mock server")
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
