// Package server exposes the admin API: manual sync, connectivity test,
// activity log paging, settings, and status.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hubmirror/internal/domain"
	"hubmirror/internal/service"
)

type SyncRunner interface {
	Run(ctx context.Context, settings domain.Settings, trigger domain.Trigger) (*domain.SyncResult, error)
}

type Prober interface {
	TestConnection(ctx context.Context, token string) (bool, string)
	ListBlogs(ctx context.Context, token string) ([]domain.Blog, error)
}

type SettingsStore interface {
	Load(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, st domain.Settings) error
}

type Rescheduler interface {
	Reschedule(enabled bool, interval time.Duration)
}

type Server struct {
	syncer     SyncRunner
	prober     Prober
	settings   SettingsStore
	sched      Rescheduler
	runlog     service.RunLogStore
	options    service.OptionStore
	posts      service.PostStore
	adminToken string
	validate   *validator.Validate
	logger     *slog.Logger
	httpServer *http.Server
}

func New(
	addr string,
	adminToken string,
	syncer SyncRunner,
	prober Prober,
	settings SettingsStore,
	sched Rescheduler,
	runlog service.RunLogStore,
	options service.OptionStore,
	posts service.PostStore,
	logger *slog.Logger,
) *Server {
	s := &Server{
		syncer:     syncer,
		prober:     prober,
		settings:   settings,
		sched:      sched,
		runlog:     runlog,
		options:    options,
		posts:      posts,
		adminToken: adminToken,
		validate:   validator.New(),
		logger:     logger.With("component", "server"),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Manual sync handles its own auth so denied attempts land in
		// the activity log.
		r.Post("/sync", s.handleRunSync)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/connection/test", s.handleTestConnection)
			r.Get("/blogs", s.handleListBlogs)
			r.Get("/logs", s.handleGetLogs)
			r.Delete("/logs", s.handleClearLogs)
			r.Get("/status", s.handleStatus)
			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handleUpdateSettings)
		})
	})

	return r
}

func (s *Server) Start() error {
	s.logger.Info("admin api listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.adminToken == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
