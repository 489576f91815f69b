// Package api is the HTTP surface of the application. Handlers are thin:
// they validate, call into storage and the availability engine, and render
// JSON. Every tenant-scoped route requires an explicit firm id.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"studioflow/internal/availability"
	"studioflow/internal/billing"
	"studioflow/internal/crew"
	"studioflow/internal/database"
	"studioflow/internal/events"
	"studioflow/shared/reports"
)

// Options configures the HTTP server.
type Options struct {
	Port         int
	APIKey       string
	MaxRangeDays int // maximum availability query window, default 90
}

// HTTPServer serves the JSON API.
type HTTPServer struct {
	server    *http.Server
	db        *database.DB
	engine    *availability.Engine
	suggester *crew.Suggester
	reports   *reports.Generator
	renewals  *billing.RenewalService
	bus       *events.Bus
	redis     *redis.Client
	opts      Options
	log       zerolog.Logger
}

// NewHTTPServer wires routes and middleware. The redis client may be nil;
// readiness then checks the database only. A nil renewal service makes the
// renewal routes answer 503.
func NewHTTPServer(
	opts Options,
	db *database.DB,
	engine *availability.Engine,
	suggester *crew.Suggester,
	reportGen *reports.Generator,
	renewals *billing.RenewalService,
	bus *events.Bus,
	redisClient *redis.Client,
	logger zerolog.Logger,
) *HTTPServer {
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = 90
	}

	s := &HTTPServer{
		db:        db,
		engine:    engine,
		suggester: suggester,
		reports:   reportGen,
		renewals:  renewals,
		bus:       bus,
		redis:     redisClient,
		opts:      opts,
		log:       logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)

	mux.HandleFunc("/api/v1/availability/check", s.auth(s.handleAvailabilityCheck))
	mux.HandleFunc("/api/v1/availability/filter", s.auth(s.handleAvailabilityFilter))
	mux.HandleFunc("/api/v1/availability/conflicts", s.auth(s.handleAvailabilityConflicts))

	mux.HandleFunc("/api/v1/events", s.auth(s.handleEvents))
	mux.HandleFunc("/api/v1/events/", s.auth(s.handleEventSubresource))

	mux.HandleFunc("/api/v1/payments", s.auth(s.handlePayments))

	mux.HandleFunc("/api/v1/subscriptions/renewals", s.auth(s.handleRenewals))
	mux.HandleFunc("/api/v1/subscriptions/renewals/", s.auth(s.handleRenewalSubresource))

	mux.HandleFunc("/api/v1/reports/finance", s.auth(s.handleFinanceReport))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routing table for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// auth checks the X-Api-Key header when a key is configured.
func (s *HTTPServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" && r.Header.Get("X-Api-Key") != s.opts.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready only when the dependencies answer.
func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable", "reason": "database",
		})
		return
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable", "reason": "redis",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
