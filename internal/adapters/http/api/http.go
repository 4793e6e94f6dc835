// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/types"
	"github.com/okian/forecasthub/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the hub implementation.
type Dependencies interface {
	// SeenAndRecord and Unrecord implement request id idempotency.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)

	Snapshot(ctx context.Context) model.Snapshot
	ApplyModifications(ctx context.Context, mods []model.Modification) (types.Outcome, error)
	Reset(ctx context.Context) (types.Outcome, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	forecastHandler      *ForecastHandler
	modificationsHandler *ModificationsHandler
	resetHandler         *ResetHandler
	ws                   http.Handler

	allowedOrigins []string
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		forecastHandler:      NewForecastHandler(deps),
		modificationsHandler: NewModificationsHandler(deps),
		resetHandler:         NewResetHandler(deps),
		allowedOrigins:       []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /forecast", MetricsMiddleware(s.forecastHandler.HandleGetForecast, "forecast"))
	mux.HandleFunc("POST /modifications", MetricsMiddleware(s.modificationsHandler.HandlePostModifications, "modifications"))
	mux.HandleFunc("POST /reset", MetricsMiddleware(s.resetHandler.HandleReset, "reset"))
	if s.ws != nil {
		mux.HandleFunc("GET /ws", MetricsMiddleware(s.ws.ServeHTTP, "ws"))
	}
}

// Handler wraps mux with panic recovery, CORS and access logging.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	var h http.Handler = mux
	h = handlers.CORS(
		handlers.AllowedOrigins(s.allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
	return handlers.LoggingHandler(accessLog{s.logger}, h)
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
