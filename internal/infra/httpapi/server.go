package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-qa/internal/application"
)

const injectTimeout = 5 * time.Second

// Assistant is the part of the supervisor the control API drives.
type Assistant interface {
	Inject(ctx context.Context, text string) error
	Status() application.Status
}

// Server is the local control API: text utterance injection, health and
// metrics.
type Server struct {
	addr        string
	authToken   string
	assistant   Assistant
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu      sync.Mutex
	server  *http.Server
	running bool
}

// NewServer builds the API. A nil gatherer leaves /metrics unregistered.
func NewServer(addr, authToken string, assistant Assistant, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		authToken:   authToken,
		assistant:   assistant,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(30, time.Minute),
	}
	s.mux.HandleFunc("POST /utterance", s.rateLimiter.Middleware(s.requireToken(s.handleUtterance)))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("control API starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("control API error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.rateLimiter.Prune()
			}
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			s.logger.Warn("unauthorized control request", "remote_addr", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

type utteranceRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleUtterance(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	text := string(data)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req utteranceRequest
		if err := json.Unmarshal(data, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		text = req.Text
	}

	ctx, cancel := context.WithTimeout(r.Context(), injectTimeout)
	defer cancel()

	err = s.assistant.Inject(ctx, text)
	switch {
	case errors.Is(err, application.ErrEmptyUtterance):
		writeError(w, http.StatusBadRequest, "empty text")
		return
	case err != nil:
		s.logger.Warn("injecting utterance", "error", err)
		writeError(w, http.StatusServiceUnavailable, "assistant busy, try again")
		return
	}

	s.logger.Info("received utterance via control API", "text", text)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "received", "text": text})
}

type healthResponse struct {
	Server string `json:"server"`
	application.Status
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	server := "running"
	if !running {
		server = "not_started"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Server: server,
		Status: s.assistant.Status(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
