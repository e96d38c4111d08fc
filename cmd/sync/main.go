// Package main runs a one-shot incremental sync for one or more scopes.
// Intended for cron jobs and operational backfills.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"token-flow-lab/internal/config"
	"token-flow-lab/internal/explorer"
	"token-flow-lab/internal/storage"
	"token-flow-lab/internal/storage/memory"
	"token-flow-lab/internal/storage/migrations"
	pgstore "token-flow-lab/internal/storage/postgres"
	"token-flow-lab/internal/syncer"
)

func main() {
	scopes := flag.String("scopes", "", "Comma-separated scope addresses to sync (required)")
	network := flag.String("network", "", "Network name (defaults to NETWORK env)")
	invalidate := flag.Bool("invalidate", false, "Clear the cache for each scope before syncing")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall run timeout")
	flag.Parse()

	logger := log.New(os.Stdout, "[sync] ", log.LstdFlags)

	if *scopes == "" {
		logger.Fatal("--scopes is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *network == "" {
		*network = cfg.Explorer.Network
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("initialize storage: %v", err)
	}
	defer cleanup()

	client := explorer.NewClient(cfg.Explorer.BaseURL, cfg.Explorer.APIKey,
		explorer.WithTimeout(cfg.Sync.FetchTimeout))
	fetcher := explorer.NewFetcher(client, logger)

	s := syncer.New(syncer.Options{
		Store:         store,
		Source:        fetcher,
		FetchTimeout:  cfg.Sync.FetchTimeout,
		CourtesyDelay: cfg.Sync.CourtesyDelay,
		Logger:        logger,
	})

	scopeList := splitScopes(*scopes)

	if *invalidate {
		for _, scope := range scopeList {
			if err := s.Invalidate(ctx, scope, *network); err != nil {
				logger.Fatalf("invalidate %s: %v", scope, err)
			}
		}
	}

	start := time.Now()
	results, err := s.SyncMany(ctx, scopeList, *network)
	if err != nil {
		logger.Fatalf("sync: %v", err)
	}

	for _, scope := range scopeList {
		res, ok := results[scope]
		if !ok {
			continue
		}
		staleNote := ""
		if res.Stale {
			staleNote = " (stale: fetch degraded)"
		}
		fmt.Printf("%s: %d cached, %d fetched, %d stored%s\n",
			scope, len(res.Records), res.Fetched, res.Stored, staleNote)
	}

	logger.Printf("synced %d scope(s) in %v", len(results), time.Since(start))
}

// buildStore creates the configured transfer store. The clickhouse backend
// is server-only; this tool supports memory and postgres.
func buildStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.TransferStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		return pgstore.NewTransferStore(pool), pool.Close, nil
	default:
		logger.Println("using in-memory storage (results are not durable)")
		return memory.NewTransferStore(), func() {}, nil
	}
}

func splitScopes(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
