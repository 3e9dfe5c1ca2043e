package diag

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server is the optional diagnostics listener exposing /metrics and
// /healthz. It runs only when an address is configured.
type Server struct {
	addr       string
	metrics    *Metrics
	httpServer *http.Server
}

// NewServer builds a diagnostics server for the given listen address.
func NewServer(addr string, metrics *Metrics) *Server {
	return &Server{addr: addr, metrics: metrics}
}

// Start serves until ctx is cancelled, then shuts down with a short
// grace period.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", handleHealth)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	slog.Info("diagnostics server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("diagnostics server: %w", err)
	}
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
