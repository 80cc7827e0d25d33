package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fps2me/fpsqr/emv"
	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/internal/config"
	"github.com/fps2me/fpsqr/internal/logger"
	"github.com/fps2me/fpsqr/internal/session"
	"github.com/fps2me/fpsqr/render"
	"github.com/fps2me/fpsqr/rules"
)

const sessionCookie = "fpsqr_session"

type Server struct {
	cfg       config.Config
	engine    *rules.Engine
	sessions  *session.Manager
	render    render.Options
	router    *chi.Mux
	startedAt time.Time
}

func NewServer(cfg config.Config, engine *rules.Engine, encoder generation.Encoder) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    engine,
		render:    cfg.RenderOptions(),
		startedAt: time.Now(),
	}

	s.sessions = session.NewManager(func() *generation.Controller {
		return generation.New(encoder,
			generation.WithMerchantName(cfg.Generation.MerchantName),
			generation.WithDiscardStale(cfg.Generation.DiscardStale),
		)
	}, session.Options{
		TTL:  cfg.Server.SessionTTL.Std(),
		Max:  cfg.Server.MaxSessions,
		Mode: cfg.RewriteMode(),
	})

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	compressor := middleware.NewCompressor(5, "application/json", "text/html")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout.Std()))
	r.Use(compressor.Handler)

	// Health check
	r.Get("/api/v1/health", s.handleHealth)

	// Classification and generation
	r.Post("/api/v1/classify", s.handleClassify)
	r.Post("/api/v1/generate", s.handleGenerate)
	r.Post("/api/v1/qr", s.handleQRImage)

	// Rule management
	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Post("/evaluate", s.handleEvaluate)

		r.Group(func(r chi.Router) {
			r.Use(s.requireEditableRules)
			r.Post("/", s.handleCreateRule)
			r.Put("/{ruleId}", s.handleUpdateRule)
			r.Delete("/{ruleId}", s.handleDeleteRule)
		})
	})

	// Form page
	r.Get("/", redirectTo("/qr", http.StatusFound))
	r.Get("/qr", s.handlePage)
	r.Post("/qr", s.handlePageSubmit)
	r.Get("/qr-generator", redirectTo("/qr", http.StatusPermanentRedirect))

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// logRequests logs method, path, status and duration. Bodies and query
// strings are never logged.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info("request",
			"requestId", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

func (s *Server) requireEditableRules(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Server.EditableRules {
			respondError(w, http.StatusForbidden, "rule editing is disabled", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func redirectTo(target string, code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, code)
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	var se *schemaError
	if errors.As(err, &se) {
		response.Details = ""
		response.Errors = se.problems
	}
	respondJSON(w, status, response)
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $"+config.EnvConfigPath+")")
	flag.Parse()

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	engine, err := rules.LoadEngine(cfg.Rules.File)
	if err != nil {
		logger.Fatal("failed to load rules", "file", cfg.Rules.File, "error", err)
	}
	ruleList, _ := engine.Rules()
	logger.Info("classification rules loaded", "count", len(ruleList), "file", cfg.Rules.File)

	server := NewServer(cfg, engine, emv.NewEncoder())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go server.sessions.Run(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
