package cache

import (
	"context"
	"log"
	"sync"

	"github.com/udayj/dex-aggregator/internal/types"
)

// TwoLevelStore layers an in-memory store in front of a persistent backend.
// Reads hit memory first and fall back to the backend, backfilling memory on
// the way out; writes go to both.
type TwoLevelStore struct {
	local   *MemoryStore
	backend Store
	stats   *StoreStats
}

// StoreStats tracks store hit/miss counts across both levels.
type StoreStats struct {
	LocalHits     int64
	LocalMisses   int64
	BackendHits   int64
	BackendMisses int64
	mutex         sync.RWMutex
}

func NewTwoLevelStore(backend Store) *TwoLevelStore {
	return &TwoLevelStore{
		local:   NewMemoryStore(),
		backend: backend,
		stats:   &StoreStats{},
	}
}

func (ts *TwoLevelStore) WritePathMap(ctx context.Context, pathMap types.PathMap) error {
	if err := ts.local.WritePathMap(ctx, pathMap); err != nil {
		log.Printf("Warning: failed to store path map in local cache: %v", err)
	}
	return ts.backend.WritePathMap(ctx, pathMap)
}

func (ts *TwoLevelStore) ReadPathMap(ctx context.Context) (types.PathMap, error) {
	pathMap, err := ts.local.ReadPathMap(ctx)
	if err == nil {
		ts.recordLocal(true)
		return pathMap, nil
	}
	ts.recordLocal(false)

	pathMap, err = ts.backend.ReadPathMap(ctx)
	if err != nil {
		ts.recordBackend(false)
		return nil, err
	}
	ts.recordBackend(true)

	if err := ts.local.WritePathMap(ctx, pathMap); err != nil {
		log.Printf("Warning: failed to backfill local path map: %v", err)
	}
	return pathMap, nil
}

func (ts *TwoLevelStore) WritePoolMap(ctx context.Context, poolMap types.PoolMap, blockNumber uint64) error {
	if err := ts.local.WritePoolMap(ctx, poolMap, blockNumber); err != nil {
		log.Printf("Warning: failed to store pool map in local cache: %v", err)
	}
	return ts.backend.WritePoolMap(ctx, poolMap, blockNumber)
}

func (ts *TwoLevelStore) ReadPoolMap(ctx context.Context) (types.PoolMap, uint64, error) {
	poolMap, blockNumber, err := ts.local.ReadPoolMap(ctx)
	if err == nil {
		ts.recordLocal(true)
		return poolMap, blockNumber, nil
	}
	ts.recordLocal(false)

	poolMap, blockNumber, err = ts.backend.ReadPoolMap(ctx)
	if err != nil {
		ts.recordBackend(false)
		return nil, 0, err
	}
	ts.recordBackend(true)

	if err := ts.local.WritePoolMap(ctx, poolMap, blockNumber); err != nil {
		log.Printf("Warning: failed to backfill local pool map: %v", err)
	}
	return poolMap, blockNumber, nil
}

func (ts *TwoLevelStore) recordLocal(hit bool) {
	ts.stats.mutex.Lock()
	if hit {
		ts.stats.LocalHits++
	} else {
		ts.stats.LocalMisses++
	}
	ts.stats.mutex.Unlock()
}

func (ts *TwoLevelStore) recordBackend(hit bool) {
	ts.stats.mutex.Lock()
	if hit {
		ts.stats.BackendHits++
	} else {
		ts.stats.BackendMisses++
	}
	ts.stats.mutex.Unlock()
}

// GetStats returns a copy of the current hit/miss counters.
func (ts *TwoLevelStore) GetStats() StoreStats {
	ts.stats.mutex.RLock()
	defer ts.stats.mutex.RUnlock()

	return StoreStats{
		LocalHits:     ts.stats.LocalHits,
		LocalMisses:   ts.stats.LocalMisses,
		BackendHits:   ts.stats.BackendHits,
		BackendMisses: ts.stats.BackendMisses,
	}
}
