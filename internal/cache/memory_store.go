package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/udayj/dex-aggregator/internal/types"
)

// MemoryStore is an in-memory Store. Reads hand out deep copies so callers
// can mutate snapshots freely; a single RWMutex gives the single-writer /
// multi-reader contract.
type MemoryStore struct {
	mutex       sync.RWMutex
	pathMap     types.PathMap
	poolMap     types.PoolMap
	blockNumber uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) WritePathMap(ctx context.Context, pathMap types.PathMap) error {
	copied := make(types.PathMap, len(pathMap))
	for key, routes := range pathMap {
		copiedRoutes := make([]types.TokenPath, len(routes))
		for i, route := range routes {
			copiedRoutes[i] = append(types.TokenPath(nil), route...)
		}
		copied[key] = copiedRoutes
	}

	ms.mutex.Lock()
	ms.pathMap = copied
	ms.mutex.Unlock()
	return nil
}

func (ms *MemoryStore) ReadPathMap(ctx context.Context) (types.PathMap, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if ms.pathMap == nil {
		return nil, fmt.Errorf("in-memory path map: %w", ErrStoreMissing)
	}

	copied := make(types.PathMap, len(ms.pathMap))
	for key, routes := range ms.pathMap {
		copiedRoutes := make([]types.TokenPath, len(routes))
		for i, route := range routes {
			copiedRoutes[i] = append(types.TokenPath(nil), route...)
		}
		copied[key] = copiedRoutes
	}
	return copied, nil
}

func (ms *MemoryStore) WritePoolMap(ctx context.Context, poolMap types.PoolMap, blockNumber uint64) error {
	stamped := poolMap.Clone()
	for _, pool := range stamped {
		pool.BlockNumber = blockNumber
	}

	ms.mutex.Lock()
	ms.poolMap = stamped
	ms.blockNumber = blockNumber
	ms.mutex.Unlock()
	return nil
}

func (ms *MemoryStore) ReadPoolMap(ctx context.Context) (types.PoolMap, uint64, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if ms.poolMap == nil {
		return nil, 0, fmt.Errorf("in-memory pool map: %w", ErrStoreMissing)
	}
	return ms.poolMap.Clone(), ms.blockNumber, nil
}
