// Package web serves a csvdb database over HTTP.
//
// EDUCATIONAL NOTES:
// ------------------
// The server is a thin layer over the executor, built on the chi router:
//
// 1. Middleware wraps every handler with request ids, logging, panic
//    recovery and a request timeout.
//
// 2. The executor is not safe for concurrent use. Table files are read and
//    rewritten in place, so two statements must never run at once. Every
//    handler that touches the executor goes through Server.locked, which
//    holds a single mutex for the duration of the call.
//
// 3. Run shuts down gracefully: on SIGINT or SIGTERM it stops accepting
//    connections and lets in-flight requests finish.

package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cabewaldrop/csvdb/internal/log"
	"github.com/cabewaldrop/csvdb/internal/sql/executor"
)

// Server is the HTTP front end of a database.
type Server struct {
	router   *chi.Mux
	port     int
	executor *executor.Executor
	mu       sync.Mutex
}

// NewServer creates a server listening on port. If exec is nil the pages
// still render but every database endpoint answers 503.
func NewServer(port int, exec *executor.Executor) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	s := &Server{
		router:   r,
		port:     port,
		executor: exec,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/tables", s.handleTableList)
	s.router.Get("/tables/{name}", s.handleTableData)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(WithExecutor(s.executor))
		r.Use(RequireExecutor)

		r.Get("/tables", s.handleAPITables)
		r.Get("/tables/{name}", s.handleAPITableSchema)
		r.Get("/tables/{name}/rows", s.handleAPITableRows)
		r.Post("/query", s.handleAPIQuery)
	})
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() http.Handler {
	return s.router
}

// locked runs fn while holding the executor lock.
func (s *Server) locked(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errChan := make(chan error, 1)
	go func() {
		log.Info("listening on port %d", s.port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-done:
		log.Info("shutdown signal received, draining requests")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	log.Info("server stopped")
	return nil
}
