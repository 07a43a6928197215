package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/ledgerscope/service/config"
	"github.com/brojonat/ledgerscope/service/explorer"
	"github.com/brojonat/ledgerscope/service/metrics"
	"github.com/dimfeld/httptreemux/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Explorer is the set of aggregator operations served over HTTP.
// *explorer.Service implements it.
type Explorer interface {
	LatestBlock(ctx context.Context) (*explorer.Block, error)
	BlockByHash(ctx context.Context, hash string) (*explorer.Block, error)
	BlockByHeight(ctx context.Context, height int64) (*explorer.Block, error)
	BlocksPage(ctx context.Context, page, pageSize int) (*explorer.BlockPage, error)
	BlockTransactions(ctx context.Context, hash string) (*explorer.BlockTransactions, error)
	TransactionDetails(ctx context.Context, hash string) (*explorer.Transaction, error)
	AddressDetails(ctx context.Context, address string) (*explorer.Address, error)
	Search(ctx context.Context, query string) (*explorer.SearchResult, error)
}

// Server represents the HTTP server for the explorer API.
type Server struct {
	addr     string
	cfg      *config.Config
	explorer Explorer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, cfg *config.Config, ex Explorer, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     addr,
		cfg:      cfg,
		explorer: ex,
		metrics:  m,
		logger:   logger,
	}
}

// Handler builds the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	mux := httptreemux.NewContextMux()
	mux.NotFoundHandler = func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", nil)
	}

	r := &responder{
		timeout:     s.cfg.RequestTimeout,
		exposeStack: !s.cfg.IsProduction(),
		logger:      s.logger,
	}

	// Static segments take priority over the :id wildcard.
	s.route(mux, "/blocks/latest", handleLatestBlock(s.explorer, r))
	s.route(mux, "/blocks", handleListBlocks(s.explorer, r))
	s.route(mux, "/blocks/search", handleSearch(s.explorer, r))
	s.route(mux, "/blocks/tx/:hash", handleTransaction(s.explorer, r))
	s.route(mux, "/tx/:hash", handleTransaction(s.explorer, r))
	s.route(mux, "/blocks/address/:address", handleAddress(s.explorer, r))
	s.route(mux, "/blocks/:id", handleBlock(s.explorer, r))
	s.route(mux, "/blocks/:id/transactions", handleBlockTransactions(s.explorer, r))

	// Health check endpoint
	mux.GET("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", headerRequestID},
		ExposedHeaders: []string{headerRequestID},
		MaxAge:         3600,
	})

	return requestID(logRequests(s.logger)(c.Handler(mux)))
}

func (s *Server) route(mux *httptreemux.ContextMux, path string, h http.Handler) {
	mux.Handler(http.MethodGet, path, metrics.HTTPMetricsMiddleware(s.metrics, path)(h))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr, "network", s.cfg.Network)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
