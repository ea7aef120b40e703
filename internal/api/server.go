// Package api provides the HTTP and WebSocket server.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/meridian-desktop/volatility-backend/internal/analysis"
	"github.com/meridian-desktop/volatility-backend/internal/backtester"
	"github.com/meridian-desktop/volatility-backend/internal/data"
	"github.com/meridian-desktop/volatility-backend/internal/metrics"
	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/internal/volatility"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server is the HTTP/WebSocket API server
type Server struct {
	mu            sync.RWMutex
	logger        *zap.Logger
	config        *types.ServerConfig
	defaults      types.SearchConfig
	router        *mux.Router
	httpServer    *http.Server
	hub           *Hub
	store         *data.Store
	analyzer      *analysis.Analyzer
	registry      *prometheus.Registry
	searchMetrics *metrics.SearchMetrics
	searches      map[string]*SearchState
}

// SearchState tracks a submitted sample-size search
type SearchState struct {
	ID      string                  `json:"id"`
	Config  types.SearchConfig      `json:"config"`
	Status  string                  `json:"status"`
	Started time.Time               `json:"started"`
	Result  *types.BestSampleResult `json:"result,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// NewServer creates a new API server.
func NewServer(logger *zap.Logger, config *types.ServerConfig, defaults types.SearchConfig, store *data.Store) *Server {
	registry := prometheus.NewRegistry()
	server := &Server{
		logger:        logger,
		config:        config,
		defaults:      defaults,
		router:        mux.NewRouter(),
		hub:           NewHub(logger),
		store:         store,
		analyzer:      analysis.NewAnalyzer(logger),
		registry:      registry,
		searchMetrics: metrics.NewSearchMetrics(registry),
		searches:      make(map[string]*SearchState),
	}

	server.setupRoutes()
	go server.hub.Run()
	return server
}

// Router returns the HTTP router, mostly for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/v1/data/series", s.handleListSeries).Methods("GET")

	s.router.HandleFunc("/api/v1/search/run", s.handleRunSearch).Methods("POST")
	s.router.HandleFunc("/api/v1/search/{id}", s.handleGetSearch).Methods("GET")

	s.router.HandleFunc("/api/v1/analysis/diagnostics", s.handleDiagnostics).Methods("POST")
	s.router.HandleFunc("/api/v1/analysis/buckets", s.handleBuckets).Methods("POST")

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	s.router.HandleFunc(s.config.WebSocketPath, s.handleWebSocket)
}

// Start starts the HTTP server and the WebSocket hub.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting API server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// handleListSeries returns available return series
func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"series": s.store.AvailableSeries(),
	})
}

// handleRunSearch starts a sample-size search in the background
func (s *Server) handleRunSearch(w http.ResponseWriter, r *http.Request) {
	cfg := s.defaults
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if cfg.Series == "" {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("series name required"))
		return
	}

	series, err := s.store.LoadSeries(cfg.Series)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err)
		return
	}

	model, err := volatility.NewEWMAModel(cfg.ModelLambda)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	estimator, err := volatility.NewEstimator(s.logger, cfg.Estimator)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	search, err := backtester.NewSampleSizeSearch(s.logger, model, estimator, cfg)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	search.SetMetrics(s.searchMetrics)

	state := &SearchState{
		ID:      uuid.New().String(),
		Config:  cfg,
		Status:  "running",
		Started: time.Now(),
	}
	// Snapshot before the search goroutine starts mutating the shared state.
	accepted := *state
	s.mu.Lock()
	s.searches[state.ID] = state
	s.mu.Unlock()

	go s.runSearch(state, search, series)

	s.respondJSON(w, http.StatusAccepted, &accepted)
}

// runSearch executes a search in the background and forwards its progress
// updates to WebSocket clients.
func (s *Server) runSearch(state *SearchState, search *backtester.SampleSizeSearch, series *timeseries.Series) {
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case update := <-search.ProgressChan():
				s.hub.BroadcastProgress(update)
			case <-stop:
				// Drain buffered updates before exiting.
				for {
					select {
					case update := <-search.ProgressChan():
						s.hub.BroadcastProgress(update)
					default:
						return
					}
				}
			}
		}
	}()

	result, err := search.BestSampleSize(context.Background(), series)
	close(stop)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		state.Status = "failed"
		state.Error = err.Error()
		s.logger.Error("search failed",
			zap.String("id", state.ID),
			zap.Error(err),
		)
		return
	}
	state.Status = "completed"
	state.Result = result
}

// handleGetSearch returns the state of a submitted search
func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Copy under the lock: the search goroutine mutates the shared state, so
	// encoding must work from a snapshot.
	s.mu.RLock()
	state, ok := s.searches[id]
	var snapshot SearchState
	if ok {
		snapshot = *state
	}
	s.mu.RUnlock()

	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Errorf("unknown search %q", id))
		return
	}
	s.respondJSON(w, http.StatusOK, &snapshot)
}

// diagnosticsRequest is the body for residual diagnostics requests
type diagnosticsRequest struct {
	Series string `json:"series"`
	MaxLag int    `json:"maxLag"`
}

// handleDiagnostics computes residual autocorrelation diagnostics
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	var req diagnosticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	series, err := s.store.LoadSeries(req.Series)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err)
		return
	}

	diag, err := s.analyzer.Analyze(series, req.MaxLag)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.respondJSON(w, http.StatusOK, diag)
}

// bucketsRequest is the body for realized-volatility bucket requests
type bucketsRequest struct {
	Series    string                `json:"series"`
	Window    int                   `json:"window"`
	Estimator types.EstimatorConfig `json:"estimator"`
}

// handleBuckets computes bucketed realized volatility for a series
func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	req := bucketsRequest{Estimator: s.defaults.Estimator}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	series, err := s.store.LoadSeries(req.Series)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err)
		return
	}

	estimator, err := volatility.NewEstimator(s.logger, req.Estimator)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	samples, err := estimator.Estimate(series, req.Window)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	buckets, err := analysis.BucketRealizedVol(samples, estimator.Frequency())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"series":  req.Series,
		"buckets": buckets,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}
