// Package main runs the unified transfer analytics service: incremental
// cache sync against the upstream explorer API plus the HTTP surface for
// transfers, analytics snapshots and cache invalidation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"token-flow-lab/internal/config"
	"token-flow-lab/internal/explorer"
	"token-flow-lab/internal/observability"
	"token-flow-lab/internal/service"
	"token-flow-lab/internal/storage"
	chstore "token-flow-lab/internal/storage/clickhouse"
	"token-flow-lab/internal/storage/memory"
	"token-flow-lab/internal/storage/migrations"
	pgstore "token-flow-lab/internal/storage/postgres"
	"token-flow-lab/internal/syncer"
)

// Server holds the wired components and request counters.
type Server struct {
	svc     *service.Service
	network string
	logger  *log.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	startedAt time.Time
	syncCount int
	snapCount int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Flags override env-derived config where given.
	addr := flag.String("addr", cfg.Server.Addr, "HTTP listen address")
	backend := flag.String("backend", cfg.Storage.Backend, "Storage backend: memory, postgres or clickhouse")
	flag.Parse()
	cfg.Server.Addr = *addr
	cfg.Storage.Backend = *backend

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transferStore, entityStore, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("initialize storage: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")

	client := explorer.NewClient(cfg.Explorer.BaseURL, cfg.Explorer.APIKey,
		explorer.WithTimeout(cfg.Sync.FetchTimeout))
	fetcher := explorer.NewFetcher(client, log.New(os.Stdout, "[fetcher] ", log.LstdFlags))

	syncRunner := syncer.New(syncer.Options{
		Store:         transferStore,
		Source:        fetcher,
		FetchTimeout:  cfg.Sync.FetchTimeout,
		CourtesyDelay: cfg.Sync.CourtesyDelay,
		Logger:        log.New(os.Stdout, "[syncer] ", log.LstdFlags),
		Metrics:       metrics,
	})

	svc := service.New(service.Options{
		Syncer:          syncRunner,
		EntityStore:     entityStore,
		Balances:        explorer.NewHolderFetcher(client, logger),
		WhaleThreshold:  decimal.NewFromFloat(cfg.Sync.WhaleThreshold),
		SurgeFraction:   cfg.Sync.SurgeFraction,
		CustomExchanges: cfg.Sync.CustomExchanges,
		Logger:          logger,
		Metrics:         metrics,
	})

	srv := &Server{
		svc:       svc,
		network:   cfg.Explorer.Network,
		logger:    logger,
		metrics:   metrics,
		startedAt: time.Now(),
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.routes(),
	}

	go func() {
		<-ctx.Done()
		logger.Println("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s (backend=%s, network=%s)", cfg.Server.Addr, cfg.Storage.Backend, cfg.Explorer.Network)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http server: %v", err)
	}
}

// buildStores creates the configured storage backend and, for durable
// backends, applies migrations.
func buildStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.TransferStore, storage.EntityStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Println("using in-memory storage (data is not durable)")
		return memory.NewTransferStore(), memory.NewEntityStore(), func() {}, nil

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		return pgstore.NewTransferStore(pool), pgstore.NewEntityStore(pool), pool.Close, nil

	case config.BackendClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		// Entities stay in memory with the analytical backend; they are
		// operator-seeded at startup and small.
		cleanup := func() { conn.Close() }
		return chstore.NewTransferStore(conn), memory.NewEntityStore(), cleanup, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/v1/transfers", s.instrument("transfers", s.handleTransfers))
	mux.HandleFunc("/v1/analytics", s.instrument("analytics", s.handleAnalytics))
	mux.HandleFunc("/v1/invalidate", s.instrument("invalidate", s.handleInvalidate))

	return mux
}

// instrument records handler latency per endpoint.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		s.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

// scopeParams extracts and validates the scope/network query parameters.
func (s *Server) scopeParams(r *http.Request) (scope, network string, err error) {
	scope = r.URL.Query().Get("scope")
	if scope == "" {
		return "", "", fmt.Errorf("scope parameter is required")
	}
	network = r.URL.Query().Get("network")
	if network == "" {
		network = s.network
	}
	return scope, network, nil
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	scope, network, err := s.scopeParams(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	records, err := s.svc.Sync(r.Context(), scope, network)
	if err != nil {
		s.logger.Printf("sync %s/%s: %v", scope, network, err)
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	s.syncCount++
	s.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"scope":     scope,
		"network":   network,
		"count":     len(records),
		"transfers": records,
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	scope, network, err := s.scopeParams(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	windowDays := 30
	if v := r.URL.Query().Get("window_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpError(w, http.StatusBadRequest, fmt.Errorf("invalid window_days %q", v))
			return
		}
		windowDays = n
	}

	var whaleThreshold float64
	if v := r.URL.Query().Get("whale_threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			httpError(w, http.StatusBadRequest, fmt.Errorf("invalid whale_threshold %q", v))
			return
		}
		whaleThreshold = f
	}

	snapshot, err := s.svc.GetAnalytics(r.Context(), scope, network, windowDays, whaleThreshold)
	if err != nil {
		s.logger.Printf("analytics %s/%s: %v", scope, network, err)
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	s.snapCount++
	s.mu.Unlock()

	writeJSON(w, snapshot)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, fmt.Errorf("POST required"))
		return
	}

	scope, network, err := s.scopeParams(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.svc.Invalidate(r.Context(), scope, network); err != nil {
		s.logger.Printf("invalidate %s/%s: %v", scope, network, err)
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, map[string]string{"status": "invalidated", "scope": scope, "network": network})
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Network   string `json:"network"`
	Syncs     int    `json:"syncs"`
	Snapshots int    `json:"snapshots"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.startedAt).String(),
		Network:   s.network,
		Syncs:     s.syncCount,
		Snapshots: s.snapCount,
	}
	s.mu.Unlock()

	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func httpError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
