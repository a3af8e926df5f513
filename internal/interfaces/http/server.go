// Package http serves the read-only coinscope API: latest rankings, scan
// history, health, Prometheus metrics and a websocket feed of new scans.
package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/persistence"
	"github.com/sawpanic/coinscope/internal/providers"
)

const requestTimeout = 5 * time.Second

type ctxKey int

const requestIDKey ctxKey = iota

// Options are the server collaborators. All are optional.
type Options struct {
	Repo     persistence.ScanRepo
	Metrics  *MetricsRegistry
	Statuses func() []providers.BreakerStatus
	Version  string
}

// Server represents the read-only HTTP server
type Server struct {
	router  *mux.Router
	server  *http.Server
	hub     *Hub
	cfg     config.HTTPConfig
	opts    Options
	started time.Time

	mu     sync.RWMutex
	latest *scan.Result
}

// NewServer creates the server and its routes
func NewServer(cfg config.HTTPConfig, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = NewMetricsRegistry()
	}
	s := &Server{
		router:  mux.NewRouter(),
		hub:     NewHub(opts.Metrics),
		cfg:     cfg,
		opts:    opts,
		started: time.Now(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/api/v1/rankings", s.handleRankings).Methods(http.MethodGet)
	api.HandleFunc("/api/v1/rankings/{symbol}", s.handleSymbol).Methods(http.MethodGet)
	api.HandleFunc("/api/v1/rankings/{symbol}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/api/v1/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/api/v1/scans", s.handleScans).Methods(http.MethodGet)

	s.router.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	s.router.Handle("/ws", s.hub).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish stores res as the latest scan and pushes it to websocket clients.
// It has the scan.Subscriber signature.
func (s *Server) Publish(res *scan.Result) {
	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()

	if err := s.hub.Broadcast(NewScanEvent(res)); err != nil {
		log.Warn().Err(err).Str("scan_id", res.ID).Msg("Failed to broadcast scan")
	}
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("address %s is busy or unavailable: %w", s.cfg.Addr, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("Starting HTTP server (read-only)")

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs every request and counts it by route
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.opts.Metrics.Requests.WithLabelValues(route, strconv.Itoa(wrapper.statusCode)).Inc()

		requestID, _ := r.Context().Value(requestIDKey).(string)
		log.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// timeoutMiddleware enforces request timeouts
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}
