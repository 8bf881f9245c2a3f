// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	service "github.com/okian/paddock/internal/app"
	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/internal/domain/recovery"
	"github.com/okian/paddock/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ActivitySubmitter
	Recommender
}

// ActivitySubmitter queues activities for storage.
type ActivitySubmitter interface {
	Submit(ctx context.Context, a model.Activity) (service.Receipt, error)
}

// Recommender computes recovery recommendations.
type Recommender interface {
	Recommend(ctx context.Context, horseID string, days int) (recovery.Recommendation, error)
	// LookbackDays is the window used when a request omits days.
	LookbackDays() int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	recoveryHandler   *RecoveryHandler
	activitiesHandler *ActivitiesHandler

	allowedOrigin string
	logger        logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		allowedOrigin: "*",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.recoveryHandler = NewRecoveryHandler(deps, s.logger)
	s.activitiesHandler = NewActivitiesHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", s.route(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", s.route(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/recovery", s.route(s.recoveryHandler.HandlePostRecovery, "recovery"))
	mux.HandleFunc("/activities", s.route(s.activitiesHandler.HandlePostActivity, "activities"))
}

func (s *Server) route(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	return MetricsMiddleware(CORSMiddleware(h, s.allowedOrigin), endpoint)
}
