package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"chatroom-api/internal/storage"
)

// Server defines fields used in HTTP processing
type Server struct {
	logger        *zap.SugaredLogger
	httpServer    *http.Server
	h             handler
	afterShutdown []func()
}

// NewServer returns new Server struct with provided zap.SugaredLogger and storage.Store
// configured by the provided options
func NewServer(logger *zap.SugaredLogger, store *storage.Store, opts ...Option) (*Server, error) {
	srv := &Server{
		logger:     logger,
		httpServer: nil,
		h: handler{
			logger:   logger,
			store:    store,
			validate: validator.New(),
			parsers:  parsers{},
		},
	}

	c := &config{
		httpServer: &http.Server{Addr: "0.0.0.0:9000"},
		handlers: map[string]http.Handler{
			"/participants": http.HandlerFunc(srv.h.participants),
			"/messages":     http.HandlerFunc(srv.h.messages),
			"/status":       http.HandlerFunc(srv.h.heartbeat),
		},
	}

	// wrapping and mux registration run after user options so every tuned
	// handler ends up behind the request-log middleware
	opts = append(opts, applyLog(logger.Desugar()), registerHandlers())
	for _, opt := range opts {
		opt.apply(c)
	}

	srv.httpServer = c.httpServer
	srv.afterShutdown = c.afterShutdown

	return srv, nil
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	for _, f := range s.afterShutdown {
		f()
	}

	s.logger.Info("Closing store")
	s.h.store.Close()
	s.logger.Info("Store is closed")

	return nil
}
