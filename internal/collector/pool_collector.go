package collector

import (
	"context"
	"log"
	"math/big"
	"sync"

	"github.com/udayj/dex-aggregator/internal/types"
)

// defaultBatchSize caps how many RPC calls are in flight at once.
const defaultBatchSize = 50

// PoolCollector fans out against the pair and reserves sources to build pair
// records and pool snapshots. Aggregation into the shared maps is serialized
// behind a mutex; a cancelled context abandons outstanding work and the
// partial results are discarded.
type PoolCollector struct {
	pairSource     PairSource
	reservesSource ReservesSource
	batchSize      int
}

func NewPoolCollector(pairSource PairSource, reservesSource ReservesSource, batchSize int) *PoolCollector {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PoolCollector{
		pairSource:     pairSource,
		reservesSource: reservesSource,
		batchSize:      batchSize,
	}
}

// CollectPairs lists every factory pair and resolves its two tokens
// concurrently.
func (pc *PoolCollector) CollectPairs(ctx context.Context) ([]types.PairRecord, error) {
	pairAddresses, err := pc.pairSource.ListAllPairs(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("Collector: resolving tokens for %d pairs", len(pairAddresses))

	var (
		wg       sync.WaitGroup
		mutex    sync.Mutex
		firstErr error
		records  []types.PairRecord
	)
	sem := make(chan struct{}, pc.batchSize)

	for _, pairAddress := range pairAddresses {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)

		go func(pairAddress string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			token0, token1, err := pc.pairSource.TokensOf(ctx, pairAddress)

			mutex.Lock()
			defer mutex.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			records = append(records, types.PairRecord{
				Address: pairAddress,
				Token0:  token0,
				Token1:  token1,
			})
		}(pairAddress)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	log.Printf("Collector: resolved %d pairs", len(records))
	return records, nil
}

// CollectPoolMap builds a pool snapshot for every pair whose tokens are both
// supported, reading all reserves at one block.
func (pc *PoolCollector) CollectPoolMap(ctx context.Context, pairs []types.PairRecord, supportedTokens []string) (types.PoolMap, uint64, error) {
	supported := make(map[string]bool, len(supportedTokens))
	for _, token := range supportedTokens {
		supported[token] = true
	}

	// Empty pools first, so a failed reserve read is distinguishable from a
	// missing pool
	poolMap := make(types.PoolMap)
	for _, pair := range pairs {
		if !supported[pair.Token0] || !supported[pair.Token1] {
			continue
		}
		poolMap[types.NewPairKey(pair.Token0, pair.Token1)] = &types.Pool{
			Address:  pair.Address,
			Reserve0: big.NewInt(0),
			Reserve1: big.NewInt(0),
		}
	}

	blockNumber, err := pc.reservesSource.CurrentBlock(ctx)
	if err != nil {
		return nil, 0, err
	}
	log.Printf("Collector: reading reserves for %d pools at block %d", len(poolMap), blockNumber)

	// Snapshot the entries before fanning out: the workers write back into
	// the shared map
	type poolEntry struct {
		key     types.PairKey
		address string
	}
	entries := make([]poolEntry, 0, len(poolMap))
	for key, pool := range poolMap {
		entries = append(entries, poolEntry{key: key, address: pool.Address})
	}

	var (
		wg       sync.WaitGroup
		mutex    sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, pc.batchSize)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)

		go func(key types.PairKey, address string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			reserve0, reserve1, err := pc.reservesSource.ReservesOf(ctx, address, blockNumber)

			mutex.Lock()
			defer mutex.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			poolMap[key] = &types.Pool{
				Address:         address,
				Reserve0:        reserve0,
				Reserve1:        reserve1,
				ReservesUpdated: true,
				BlockNumber:     blockNumber,
			}
		}(entry.key, entry.address)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if firstErr != nil {
		return nil, 0, firstErr
	}

	return poolMap, blockNumber, nil
}
