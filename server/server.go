package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"chartflow/chart"
	"chartflow/logger"
	"chartflow/models"

	"github.com/google/uuid"
)

// ChartService is the query surface consumed by the handlers.
type ChartService interface {
	GetHistoricalBars(ctx context.Context, symbol, interval string, from, to int64) ([]models.Bar, error)
}

// HealthChecker reports the availability of a backing resource.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server exposes the chart subsystem over HTTP.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	svc             ChartService
	health          []HealthChecker
	log             *logger.Log
	srv             *http.Server
}

func NewServer(addr string, shutdownTimeout time.Duration, svc ChartService, health ...HealthChecker) *Server {
	return &Server{
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		svc:             svc,
		health:          health,
		log:             logger.GetLogger(),
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/klines", s.handleKlines)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.srv = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	s.log.WithComponent("server").WithFields(logger.Fields{"addr": s.addr}).Info("http server starting")
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleKlines serves GET /api/v1/klines?symbol=&interval=&from=&to=
// as a JSON array of [timestamp, open, high, low, close, volume] tuples.
func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqID := uuid.NewString()
	log := s.log.WithComponent("server").WithFields(logger.Fields{"request_id": reqID})

	q := r.URL.Query()
	symbol := q.Get("symbol")
	interval := q.Get("interval")
	if symbol == "" {
		httpError(w, reqID, "symbol required", http.StatusBadRequest)
		return
	}
	if !models.ValidInterval(interval) {
		httpError(w, reqID, "unsupported interval", http.StatusBadRequest)
		return
	}

	from, err := strconv.ParseInt(q.Get("from"), 10, 64)
	if err != nil {
		httpError(w, reqID, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := strconv.ParseInt(q.Get("to"), 10, 64)
	if err != nil {
		httpError(w, reqID, "invalid to", http.StatusBadRequest)
		return
	}
	if to < from {
		httpError(w, reqID, "to before from", http.StatusBadRequest)
		return
	}

	started := time.Now()
	bars, err := s.svc.GetHistoricalBars(r.Context(), symbol, interval, from, to)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"symbol":   symbol,
			"interval": interval,
		}).Error("historical bars request failed")
		code := http.StatusInternalServerError
		if errors.Is(err, chart.ErrUpstreamUnavailable) || errors.Is(err, chart.ErrProviderUnavailable) {
			code = http.StatusServiceUnavailable
		}
		httpError(w, reqID, "market data temporarily unavailable", code)
		return
	}

	log.WithFields(logger.Fields{
		"symbol":      symbol,
		"interval":    interval,
		"from":        from,
		"to":          to,
		"bars":        len(bars),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("klines served")

	if bars == nil {
		bars = []models.Bar{}
	}
	writeJSON(w, http.StatusOK, bars)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, h := range s.health {
		if err := h.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func httpError(w http.ResponseWriter, reqID, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg, "request_id": reqID})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
