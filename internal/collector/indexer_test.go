package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udayj/dex-aggregator/internal/cache"
	"github.com/udayj/dex-aggregator/internal/types"
)

func newTestIndexer(t *testing.T, source *fakeSource) (*Indexer, *cache.MemoryStore) {
	files := cache.NewFileStore(t.TempDir(), "pathmap.json", "poolmap.json")
	store := cache.NewMemoryStore()
	pc := NewPoolCollector(source, source, 10)
	indexer := NewIndexer(pc, files, store, []string{tokenA, tokenB, tokenC}, "pairs.csv")
	return indexer, store
}

func TestIndexer_FullPipeline(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	indexer, store := newTestIndexer(t, source)

	assert.NoError(t, indexer.IndexPairs(ctx))
	assert.NoError(t, indexer.IndexPaths(ctx))
	assert.NoError(t, indexer.IndexPools(ctx))

	pathMap, err := store.ReadPathMap(ctx)
	assert.NoError(t, err)

	// a—b and b—c pools give a direct a->b route; pool-xy's unsupported
	// token contributes nothing
	routes := pathMap[types.PathKey{From: tokenA, To: tokenB}]
	assert.Equal(t, []types.TokenPath{{tokenA, tokenB}}, routes)

	// a->c must go through b
	routes = pathMap[types.PathKey{From: tokenA, To: tokenC}]
	assert.Equal(t, []types.TokenPath{{tokenA, tokenB, tokenC}}, routes)

	poolMap, blockNumber, err := store.ReadPoolMap(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(4242), blockNumber)
	assert.Len(t, poolMap, 2)
}

func TestIndexer_LatestPoolMapDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	indexer, store := newTestIndexer(t, source)

	assert.NoError(t, indexer.IndexPairs(ctx))

	poolMap, blockNumber, err := indexer.LatestPoolMap(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(4242), blockNumber)
	assert.Len(t, poolMap, 2)

	_, _, err = store.ReadPoolMap(ctx)
	assert.ErrorIs(t, err, cache.ErrStoreMissing)
}

func TestIndexer_PathsRequirePairRecords(t *testing.T) {
	source := newFakeSource()
	indexer, _ := newTestIndexer(t, source)

	err := indexer.IndexPaths(context.Background())
	assert.ErrorIs(t, err, cache.ErrStoreMissing)
}
