package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/isthis/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackServer serves a [CallbackHandler] until a result arrives.
type CallbackServer struct {
	handler *CallbackHandler
	logger  *log.Logger
	srv     *http.Server
	ln      net.Listener
	errs    chan error
}

// NewCallbackServer creates a server for handler. A nil logger discards output.
func NewCallbackServer(handler *CallbackHandler, logger *log.Logger) *CallbackServer {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	router := NewRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handler(handler)

	return &CallbackServer{
		handler: handler,
		logger:  logger,
		srv:     &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		errs:    make(chan error, 1),
	}
}

// Start binds addr and serves in the background.
func (s *CallbackServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %v", shared.ErrServiceUnavailable, addr, err)
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	s.logger.Debug("callback server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or an empty string before [CallbackServer.Start].
func (s *CallbackServer) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Wait blocks until the callback delivers a result, the server fails, timeout elapses or ctx ends.
// The server is shut down before Wait returns.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	defer s.shutdown()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-s.handler.Result():
		if result.Err != nil {
			return nil, result.Err
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case err := <-s.errs:
		return nil, fmt.Errorf("%w: callback server: %v", shared.ErrServiceUnavailable, err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization not completed within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("error shutting down callback server", "error", err)
	}
}
