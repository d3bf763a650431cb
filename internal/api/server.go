package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/policychat/internal/config"
	"github.com/dgallion1/policychat/internal/gemini"
	"github.com/dgallion1/policychat/internal/page"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// StatsSource reports upstream latency statistics.
type StatsSource interface {
	Snapshot() gemini.StatsSnapshot
}

// PageFetcher loads a remote document as text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*page.Content, error)
}

// Server is the HTTP API server for policychat.
type Server struct {
	router chi.Router
	llm    Generator
	stats  StatsSource
	pages  PageFetcher
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(llm Generator, stats StatsSource, pages PageFetcher, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		llm:   llm,
		stats: stats,
		pages: pages,
		log:   log,
		cfg:   cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(CORS)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "Not found", http.StatusNotFound)
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// The chat endpoint answers every method itself so that non-POST
	// requests get the JSON 405 body.
	r.HandleFunc("/api/chat", s.handleChat)
	r.Get("/api/cbi", s.handleCBI)
	r.Get("/api/stats/llm", s.handleLLMStats)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
