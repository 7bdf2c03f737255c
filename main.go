package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/udayj/dex-aggregator/config"
	"github.com/udayj/dex-aggregator/internal/aggregator"
	"github.com/udayj/dex-aggregator/internal/api"
	"github.com/udayj/dex-aggregator/internal/cache"
	"github.com/udayj/dex-aggregator/internal/collector"
)

func main() {
	indexPairs := flag.Bool("index-pairs", false, "refresh the factory pair records and exit")
	indexPaths := flag.Bool("index-paths", false, "rebuild the candidate path map and exit")
	indexPools := flag.Bool("index-pools", false, "refresh the pool snapshot and exit")
	flag.Parse()

	if err := config.Init(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	log.Println("Starting DEX aggregator...")

	files := cache.NewFileStore(
		config.AppConfig.Storage.WorkingDir,
		config.AppConfig.Storage.PathMapFile,
		config.AppConfig.Storage.PoolMapFile,
	)
	store := buildStore(files)

	source, err := collector.NewEthSource(config.AppConfig.Ethereum.RPCURL, config.AppConfig.Ethereum.Factory)
	if err != nil {
		log.Fatalf("Failed to create RPC source: %v", err)
	}

	poolCollector := collector.NewPoolCollector(source, source, config.AppConfig.Performance.MaxConcurrentFetches)
	indexer := collector.NewIndexer(poolCollector, files, store,
		config.AppConfig.SupportedTokens, config.AppConfig.Storage.PairFile)

	if *indexPairs || *indexPaths || *indexPools {
		runIndexers(indexer, *indexPairs, *indexPaths, *indexPools)
		return
	}

	router := aggregator.NewRouter(store, indexer, config.AppConfig.TokenSymbols)
	handler := api.NewHandler(router, store)

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/quote", handler.GetQuote).Methods("GET")
	r.HandleFunc("/api/v1/pools", handler.GetPools).Methods("GET")
	r.HandleFunc("/api/v1/paths", handler.GetPaths).Methods("GET")
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.HandleFunc("/config", handler.GetConfig).Methods("GET")

	port := ":" + config.AppConfig.Server.Port
	log.Printf("HTTP server starting on http://localhost%s", port)

	server := &http.Server{
		Addr:         port,
		Handler:      r,
		ReadTimeout:  time.Duration(config.AppConfig.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(config.AppConfig.Server.WriteTimeout) * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}

func buildStore(files *cache.FileStore) cache.Store {
	switch config.AppConfig.Storage.Backend {
	case "redis":
		return cache.NewRedisStore(
			config.AppConfig.Redis.Addr,
			config.AppConfig.Redis.Password,
			config.AppConfig.Redis.DB,
		)
	case "twolevel":
		redisStore := cache.NewRedisStore(
			config.AppConfig.Redis.Addr,
			config.AppConfig.Redis.Password,
			config.AppConfig.Redis.DB,
		)
		return cache.NewTwoLevelStore(redisStore)
	default:
		return files
	}
}

func runIndexers(indexer *collector.Indexer, pairs, paths, pools bool) {
	timeout := time.Duration(config.AppConfig.Performance.RequestTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if pairs {
		if err := indexer.IndexPairs(ctx); err != nil {
			log.Fatalf("Pair indexing failed: %v", err)
		}
	}
	if paths {
		if err := indexer.IndexPaths(ctx); err != nil {
			log.Fatalf("Path indexing failed: %v", err)
		}
	}
	if pools {
		if err := indexer.IndexPools(ctx); err != nil {
			log.Fatalf("Pool indexing failed: %v", err)
		}
	}
}
