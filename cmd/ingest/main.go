// Package main runs the headless ingestion daemon: it subscribes to
// the PumpPortal push feed, enriches token creations and persists them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pumpwatch/internal/enrich"
	"pumpwatch/internal/feed"
	"pumpwatch/internal/ingest"
	"pumpwatch/internal/observability"
	"pumpwatch/internal/solana"
	"pumpwatch/internal/storage"
	chstore "pumpwatch/internal/storage/clickhouse"
	"pumpwatch/internal/storage/memory"
	"pumpwatch/internal/storage/migrations"
	pgstore "pumpwatch/internal/storage/postgres"
)

const defaultFeedEndpoint = "wss://pumpportal.fun/api/data"

func main() {
	// Load .env file if exists; system env vars take precedence
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	feedEndpoint := flag.String("feed-endpoint", envOr("PUMPPORTAL_WS_ENDPOINT", defaultFeedEndpoint), "PumpPortal WebSocket endpoint")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint (optional, enables on-chain enrichment)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables event archive)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	storeCapacity := flag.Int("store-capacity", memory.DefaultCapacity, "In-memory store capacity (oldest evicted first)")
	topics := flag.String("topics", "create", "Comma-separated feed topics (create, migrate, trade)")
	enrichTimeout := flag.Duration("enrich-timeout", ingest.DefaultEnrichTimeout, "Per-stage metadata enrichment timeout")
	reconnectBase := flag.Duration("reconnect-base", 1*time.Second, "Base reconnect delay (grows linearly per attempt)")
	reconnectMax := flag.Int("reconnect-max", 5, "Max reconnect attempts (0 retries forever at the base delay)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *feedEndpoint == "" {
		logger.Fatal("--feed-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	topicList, err := resolveTopics(*topics)
	if err != nil {
		logger.Fatalf("Invalid --topics: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	store, archive, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *storeCapacity)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Feed client
	wsConfig := feed.DefaultWSConfig()
	wsConfig.Reconnect = feed.ReconnectPolicy{BaseDelay: *reconnectBase, MaxAttempts: *reconnectMax}
	client := feed.NewWSClient(*feedEndpoint, &wsConfig, log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lshortfile))
	defer client.Close()

	// Enrichment stages
	opts := ingest.NormalizerOptions{
		Fetcher: enrich.NewFetcher(enrich.WithFetchTimeout(*enrichTimeout)),
		Timeout: *enrichTimeout,
		Logger:  log.New(os.Stdout, "[enrich] ", log.LstdFlags|log.Lshortfile),
	}
	if *rpcEndpoint != "" {
		rpcClient := solana.NewHTTPClient(*rpcEndpoint)
		logRPCHealth(ctx, rpcClient, logger)
		opts.Onchain = enrich.NewOnchainSource(rpcClient)
	} else {
		logger.Println("No RPC endpoint configured, on-chain enrichment disabled")
	}

	runner, err := ingest.NewRunner(ingest.RunnerOptions{
		Feed:       client,
		Topics:     topicList,
		Normalizer: ingest.NewNormalizer(opts),
		Store:      store,
		Archive:    archive,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create runner: %v", err)
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Metrics endpoint
	go startMetricsServer(*metricsAddr, logger)

	// Connect and run
	if err := client.Connect(ctx); err != nil {
		logger.Fatalf("Failed to connect to feed: %v", err)
	}
	logger.Printf("Connected to feed %s", *feedEndpoint)

	err = runner.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Ingestion error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// resolveTopics maps comma-separated event kind names to feed topics.
func resolveTopics(raw string) ([]feed.Topic, error) {
	aliases := map[string]feed.Topic{
		"create":  feed.TopicNewToken,
		"migrate": feed.TopicMigration,
		"trade":   feed.TopicTrade,
	}

	var list []feed.Topic
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		topic, ok := aliases[name]
		if !ok {
			return nil, fmt.Errorf("unknown topic %q", name)
		}
		list = append(list, topic)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no topics specified")
	}
	return list, nil
}

// createStores creates the token store and optional event archive.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, capacity int) (storage.TokenStore, storage.EventArchive, func(), error) {
	if useMemory {
		return memory.NewTokenStore(capacity), nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	store := pgstore.NewTokenStore(pool)

	if clickhouseDSN == "" {
		return store, nil, func() { pool.Close() }, nil
	}

	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
		chConn.Close()
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return store, chstore.NewEventArchiveStore(chConn), cleanup, nil
}

// logRPCHealth checks the RPC endpoint at startup. A failure only
// logs; on-chain enrichment is fail-open anyway.
func logRPCHealth(ctx context.Context, client solana.RPCClient, logger *log.Logger) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slot, err := client.GetSlot(checkCtx)
	if err != nil {
		logger.Printf("RPC endpoint check failed: %v", err)
		return
	}
	logger.Printf("RPC endpoint healthy at slot %d", slot)
}

// startMetricsServer serves Prometheus metrics and a liveness probe.
func startMetricsServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
