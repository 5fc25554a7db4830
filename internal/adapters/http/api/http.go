// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/okian/asinrank/internal/domain/model"
	"github.com/okian/asinrank/internal/domain/types"
	"github.com/okian/asinrank/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ingest appends an observation and returns it as stored.
	Ingest(ctx context.Context, obs model.RankObservation) (model.RankObservation, error)

	// Charts renders every category chart recorded for asin.
	Charts(ctx context.Context, asin string) (types.ChartsResponse, error)

	// Ping reports storage health.
	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	apiKey        string
	log           logger.Logger
	healthHandler *HealthHandler
	ingestHandler *IngestHandler
	chartsHandler *ChartsHandler
}

// NewServer creates a new API server with all handlers. Every route requires
// the Api-Key header to equal apiKey.
func NewServer(deps Dependencies, apiKey string, log logger.Logger) *Server {
	if log == nil {
		log = logger.Named("api")
	}
	return &Server{
		apiKey:        apiKey,
		log:           log,
		healthHandler: NewHealthHandler(deps),
		ingestHandler: NewIngestHandler(deps, log),
		chartsHandler: NewChartsHandler(deps, log),
	}
}

// Routes builds the router. extra registers additional routes, such as the
// API docs, behind the same middleware stack.
func (s *Server) Routes(extra ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(AccessLog(s.log))
	r.Use(MetricsMiddleware)
	r.Use(APIKeyAuth(s.apiKey))

	r.Get("/", s.ingestHandler.HandleIngest)
	r.Get("/api/charts/{asin}", s.chartsHandler.HandleCharts)
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/metrics", s.healthHandler.HandleMetrics)

	for _, register := range extra {
		register(r)
	}
	return r
}

// errorResponse is the JSON shape of every error body.
type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
