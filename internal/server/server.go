// Package server exposes the documentation tree over HTTP and the live-reload
// push endpoint.
//
// Routes:
//
//	GET /        index.md
//	GET /health  status and connected client count
//	    /ws      push connection upgrade
//	GET /*       any other Markdown file under the root
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conneroisu/docsman/internal/config"
	"github.com/conneroisu/docsman/internal/legend"
	"github.com/conneroisu/docsman/internal/livereload"
	"github.com/conneroisu/docsman/internal/logging"
	"github.com/conneroisu/docsman/internal/markdown"
	"github.com/conneroisu/docsman/internal/page"
	"github.com/conneroisu/docsman/internal/registry"
	"github.com/conneroisu/docsman/internal/sandbox"
	"github.com/conneroisu/docsman/internal/watcher"
	docsws "github.com/conneroisu/docsman/internal/websocket"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server is the documentation preview server.
type Server struct {
	config   *config.Config
	root     sandbox.Root
	indexer  *legend.Indexer
	pipeline *page.Pipeline
	clients  *registry.ClientRegistry
	router   chi.Router
	logger   logging.Logger

	serverMutex sync.Mutex
	httpServer  *http.Server
	fileWatcher *watcher.FileWatcher

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds a server for cfg. The root must exist and be a directory.
func New(cfg *config.Config, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	root, err := sandbox.NewRoot(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open documentation root: %w", err)
	}

	indexer := legend.NewIndexer(root.Path())
	pipeline := page.NewPipeline(root, markdown.Default(), indexer, page.Options{
		Legend:     cfg.Features.Legend,
		AutoReload: cfg.Features.AutoReload,
	}, logger)

	s := &Server{
		config:   cfg,
		root:     root,
		indexer:  indexer,
		pipeline: pipeline,
		clients:  registry.NewClientRegistry(registry.WithLogger(logger)),
		logger:   logger.WithComponent("server"),
	}
	s.router = s.routes(docsws.NewManager(s.clients, nil, docsws.DefaultPingInterval, logger))

	return s, nil
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Clients returns the push connection registry.
func (s *Server) Clients() *registry.ClientRegistry {
	return s.clients
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}

	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done, then shuts down gracefully.
// With auto-reload enabled the watcher is set up first, and failing to do so
// is returned as a WatchSetupError before any request is accepted.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.config.Features.AutoReload {
		fw, err := watcher.NewFileWatcher(s.root, s.logger)
		if err != nil {
			_ = listener.Close()
			return fmt.Errorf("failed to start file watcher: %w", err)
		}

		s.serverMutex.Lock()
		s.fileWatcher = fw
		s.serverMutex.Unlock()

		go fw.Run(ctx)
		go livereload.NewNotifier(s.clients, s.indexer, s.logger).Run(ctx, fw.Events())
	} else {
		s.logger.Info(ctx, "Auto-reload disabled, not watching for changes")
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.serverMutex.Lock()
	s.httpServer = httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Serving documentation",
		"root", s.root.Path(),
		"addr", listener.Addr().String(),
		"autoreload", s.config.Features.AutoReload,
		"legend", s.config.Features.Legend,
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		_ = s.Shutdown(context.Background())
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, closes the watcher and every push
// connection. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.serverMutex.Lock()
		httpServer := s.httpServer
		fw := s.fileWatcher
		s.serverMutex.Unlock()

		if httpServer != nil {
			if err := httpServer.Shutdown(ctx); err != nil {
				s.shutdownErr = fmt.Errorf("failed to shut down http server: %w", err)
			}
		}
		if fw != nil {
			if err := fw.Close(); err != nil {
				s.logger.Warn(ctx, err, "Failed to close file watcher")
			}
		}
		s.clients.CloseAll()

		s.logger.Info(ctx, "Server stopped")
	})

	return s.shutdownErr
}
