// Package ops provides the small operational HTTP surface each binary
// exposes: liveness, readiness, and event-log statistics.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rooster/internal/types"
)

// Pinger reports whether a dependency is reachable. *pgxpool.Pool satisfies
// it directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider supplies event-log statistics for the /stats endpoint.
// Satisfied by db.EventLogRepository.
type StatsProvider interface {
	Stats(ctx context.Context) (*types.EventLogStats, error)
}

// Server is the ops HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     types.Logger
}

// NewServer builds the ops listener for a binary. db and stats may be nil;
// the corresponding endpoints then degrade (readyz reports ok, stats returns
// 404).
func NewServer(port string, service string, db Pinger, stats StatsProvider, logger types.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": service,
		})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"reason": "database unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if stats != nil {
		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			s, err := stats.Stats(req.Context())
			if err != nil {
				logger.Error("stats query failed", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error": "failed to collect stats",
				})
				return
			}
			writeJSON(w, http.StatusOK, s)
		})
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown. It blocks; run it in a goroutine.
func (s *Server) Start() {
	s.logger.Info("ops listener started", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("ops listener failed", "error", err)
	}
}

// Shutdown drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
