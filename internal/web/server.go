package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/run"
	"go.uber.org/zap"
)

const readHeaderTimeout = 10 * time.Second

// Server handles the setup and shutdown of the http server for a handler.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger

	// closed once Shutdown has returned, so Serve can wait for drained
	// connections before reporting.
	done          chan struct{}
	closeDoneOnce sync.Once
}

// NewServer returns a server for handler listening on addr.
func NewServer(log *zap.Logger, addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		log:  log,
		done: make(chan struct{}),
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe blocks until the server stops. After Shutdown it returns
// nil once connections are drained.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("starting server", zap.String("address", ln.Addr().String()))

	err := s.httpServer.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.log.Debug("listener shutdown, waiting for connections to drain")
	<-s.done
	s.log.Debug("server connections are drained")
	return nil
}

// Shutdown gracefully stops the server, waiting at most timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	defer s.closeDoneOnce.Do(func() {
		close(s.done)
	})

	err := s.httpServer.Shutdown(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down within shutdownTimeout. A stop caused by ctx or a
// signal is not an error.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	var g run.Group

	g.Add(s.ListenAndServe, func(error) {
		if err := s.Shutdown(shutdownTimeout); err != nil {
			s.log.Error("server shutdown failed", zap.Error(err))
		}
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err := g.Run()

	var sigErr run.SignalError
	switch {
	case errors.As(err, &sigErr):
		s.log.Info("received signal, server stopped", zap.String("signal", sigErr.Signal.String()))
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	default:
		return err
	}
}
