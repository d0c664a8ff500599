// Package api exposes the pipeline engine over HTTP. Handlers stay thin:
// decode, delegate to the engine, map errors to status codes.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/engine"
)

// Server routes HTTP traffic to the lifecycle engine.
type Server struct {
	router chi.Router
	engine *engine.Engine
}

// NewServer builds the router around an engine.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{
		router: chi.NewRouter(),
		engine: eng,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/pipelines", func(r chi.Router) {
			r.Get("/", s.handleListPipelines)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPipeline)
				r.Patch("/", s.handlePatchPipeline)
				r.Delete("/", s.handleDeletePipeline)
				r.Post("/confirm-transition", s.handleConfirmTransition)
				r.Get("/activity", s.handleGetActivity)
				r.Post("/activity", s.handlePostActivity)
			})
		})

		r.Route("/sheets", func(r chi.Router) {
			r.Get("/", s.handleListSheets)
			r.Post("/", s.handleCreateSheet)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", s.handlePatchSheet)
				r.Delete("/", s.handleDeleteSheet)
				r.Post("/sync", s.handleSheetSync)
			})
		})
	})
}

// Handler returns the assembled router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
