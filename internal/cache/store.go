package cache

import (
	"context"
	"errors"

	"github.com/udayj/dex-aggregator/internal/types"
)

// ErrStoreMissing is returned when a store has no snapshot to read. The
// orchestrator fails the quote when it surfaces.
var ErrStoreMissing = errors.New("store data missing")

// PathStore persists the candidate-path map. Writes must be atomic from the
// reader's perspective: a concurrent reader sees either the old or the new
// map in its entirety.
type PathStore interface {
	WritePathMap(ctx context.Context, pathMap types.PathMap) error
	ReadPathMap(ctx context.Context) (types.PathMap, error)
}

// PoolStore persists a pool snapshot together with the block it was taken
// at. Same atomicity contract as PathStore.
type PoolStore interface {
	WritePoolMap(ctx context.Context, poolMap types.PoolMap, blockNumber uint64) error
	ReadPoolMap(ctx context.Context) (types.PoolMap, uint64, error)
}

// Store combines both capabilities; every backend in this package implements
// it.
type Store interface {
	PathStore
	PoolStore
}
