package collector

import (
	"context"
	"fmt"
	"log"

	"github.com/udayj/dex-aggregator/internal/aggregator"
	"github.com/udayj/dex-aggregator/internal/cache"
	"github.com/udayj/dex-aggregator/internal/types"
)

// Indexer runs the offline pipelines: pair discovery, path enumeration, and
// pool snapshot refresh. Pair records and per-token path files live in the
// file store; the aggregated path map and pool snapshot go to the configured
// store so the quote flow can read them.
type Indexer struct {
	collector       *PoolCollector
	files           *cache.FileStore
	store           cache.Store
	supportedTokens []string
	pairFile        string
}

func NewIndexer(poolCollector *PoolCollector, files *cache.FileStore, store cache.Store,
	supportedTokens []string, pairFile string) *Indexer {
	return &Indexer{
		collector:       poolCollector,
		files:           files,
		store:           store,
		supportedTokens: supportedTokens,
		pairFile:        pairFile,
	}
}

// IndexPairs discovers all factory pairs and persists the pair records.
func (ix *Indexer) IndexPairs(ctx context.Context) error {
	pairs, err := ix.collector.CollectPairs(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect pairs: %w", err)
	}
	if err := ix.files.WritePairRecords(ix.pairFile, pairs); err != nil {
		return fmt.Errorf("failed to persist pair records: %w", err)
	}
	log.Printf("Indexer: wrote %d pair records", len(pairs))
	return nil
}

// IndexPaths rebuilds the candidate-path map from the persisted pair records.
// Paths are first written per start token in the line format, then read back,
// merged and stored as the aggregated path map. Run this whenever the pair
// set or the supported-token list changes.
func (ix *Indexer) IndexPaths(ctx context.Context) error {
	pairs, err := ix.files.ReadPairRecords(ix.pairFile)
	if err != nil {
		return fmt.Errorf("failed to read pair records: %w", err)
	}

	graph := aggregator.NewTokenGraphFromPairs(pairs, ix.supportedTokens)

	tokenPathFiles := make([]string, 0, len(ix.supportedTokens))
	for i, token := range ix.supportedTokens {
		targetNodes := make(map[string]bool, len(ix.supportedTokens)-1)
		for _, other := range ix.supportedTokens {
			if other != token {
				targetNodes[other] = true
			}
		}

		name := fmt.Sprintf("token_paths_%d.txt", i)
		if err := ix.files.WriteTokenPaths(name, graph.FindAllPaths(token, targetNodes)); err != nil {
			return fmt.Errorf("failed to write paths for token %s: %w", token, err)
		}
		tokenPathFiles = append(tokenPathFiles, name)
	}

	combined := make(types.PathMap)
	for _, name := range tokenPathFiles {
		pathMap, err := ix.files.ReadTokenPaths(name)
		if err != nil {
			return fmt.Errorf("failed to read token path file %s: %w", name, err)
		}
		for key, routes := range pathMap {
			combined[key] = append(combined[key], routes...)
		}
	}

	if err := ix.store.WritePathMap(ctx, combined); err != nil {
		return fmt.Errorf("failed to store path map: %w", err)
	}
	log.Printf("Indexer: stored path map with %d token pairs", len(combined))
	return nil
}

// IndexPools refreshes the pool snapshot from the upstream RPC source and
// persists it.
func (ix *Indexer) IndexPools(ctx context.Context) error {
	poolMap, blockNumber, err := ix.LatestPoolMap(ctx)
	if err != nil {
		return err
	}
	if err := ix.store.WritePoolMap(ctx, poolMap, blockNumber); err != nil {
		return fmt.Errorf("failed to store pool map: %w", err)
	}
	log.Printf("Indexer: stored %d pools at block %d", len(poolMap), blockNumber)
	return nil
}

// LatestPoolMap builds a fresh snapshot without persisting it.
func (ix *Indexer) LatestPoolMap(ctx context.Context) (types.PoolMap, uint64, error) {
	pairs, err := ix.files.ReadPairRecords(ix.pairFile)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read pair records: %w", err)
	}
	return ix.collector.CollectPoolMap(ctx, pairs, ix.supportedTokens)
}
