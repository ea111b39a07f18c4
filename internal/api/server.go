package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abd-ghreeb/venture-pulse/internal/agent"
	"github.com/abd-ghreeb/venture-pulse/internal/config"
	"github.com/abd-ghreeb/venture-pulse/internal/events"
	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

type Server struct {
	turns    TurnHandler
	ventures store.VentureStore
	broker   Broker
	sessions Pinger
	cfg      config.Config
	validate *validator.Validate
	limiter  *sessionLimiter
	logger   *zap.Logger
}

type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID string, message string) (agent.TurnResult, error)
	ClearSession(ctx context.Context, sessionID string) (agent.ClearResult, error)
}

type Broker interface {
	Subscribe(ctx context.Context, sessionID string) <-chan events.SessionEvent
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewServer(turns TurnHandler, ventures store.VentureStore, broker Broker, sessions Pinger, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		turns:    turns,
		ventures: ventures,
		broker:   broker,
		sessions: sessions,
		cfg:      cfg,
		validate: newValidator(),
		limiter:  newSessionLimiter(cfg.QueryRatePerMinute, queryBurst),
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(quietRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(instrument)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", s.query)
		r.Post("/session/clear", s.clearSession)
		r.Get("/sessions/{id}/events", s.streamEvents)
		r.Get("/ventures", s.listVentures)
		r.Get("/ventures/filter", s.filterVentures)
		r.Get("/ventures/{id}", s.getVenture)
		r.Get("/dashboard-stats", s.dashboardStats)
	})
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func quietRequestLogger(next http.Handler) http.Handler {
	logged := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSuppressRequestLog(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		logged.ServeHTTP(w, r)
	})
}

func shouldSuppressRequestLog(method string, path string) bool {
	cleanPath := strings.TrimSpace(path)
	if method == http.MethodGet && strings.HasSuffix(cleanPath, "/events") {
		return true
	}
	if method == http.MethodGet && (cleanPath == "/health" || cleanPath == "/ready" || cleanPath == "/metrics") {
		return true
	}
	if method == http.MethodOptions {
		return true
	}
	return false
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type subsystemStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status     string                     `json:"status"`
	Subsystems map[string]subsystemStatus `json:"subsystems"`
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	subsystems := map[string]subsystemStatus{}
	overall := http.StatusOK

	probe := func(name string, p Pinger) {
		if p == nil {
			subsystems[name] = subsystemStatus{Status: "skipped"}
			return
		}
		if err := p.Ping(ctx); err != nil {
			subsystems[name] = subsystemStatus{Status: "error", Error: err.Error()}
			overall = http.StatusServiceUnavailable
			return
		}
		subsystems[name] = subsystemStatus{Status: "ok"}
	}
	probe("venture_store", s.ventures)
	probe("session_store", s.sessions)

	status := "ok"
	if overall != http.StatusOK {
		status = "degraded"
	}
	writeJSONStatus(w, readinessResponse{Status: status, Subsystems: subsystems}, overall)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatus(w, map[string]string{"error": message}, statusCode)
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if s.broker == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	eventsChan := s.broker.Subscribe(ctx, sessionID)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-eventsChan:
			if !ok {
				return
			}
			sendSSE(w, event)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, event events.SessionEvent) {
	payload, _ := json.Marshal(event)
	fmt.Fprintf(w, "id: %s:%d\n", event.SessionID, event.Seq)
	fmt.Fprint(w, "event: session_event\n")
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
