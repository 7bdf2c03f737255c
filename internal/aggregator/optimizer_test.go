package aggregator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udayj/dex-aggregator/internal/types"
)

func directPath() TradePath {
	return TradePath{Tokens: []string{tokenA, tokenB}}
}

func indirectPath() TradePath {
	return TradePath{Tokens: []string{tokenA, tokenC, tokenB}}
}

func equalLiquidityPools() types.PoolMap {
	return types.PoolMap{
		types.NewPairKey(tokenA, tokenB): testPool("pool-ab", 1000000, 1000000),
		types.NewPairKey(tokenA, tokenC): testPool("pool-ac", 1000000, 1000000),
		types.NewPairKey(tokenB, tokenC): testPool("pool-bc", 1000000, 1000000),
	}
}

func splitsAsFloats(splits []*big.Int) []float64 {
	floats := make([]float64, len(splits))
	for i, split := range splits {
		floats[i] = types.ToFloat64(split)
	}
	return floats
}

func TestOptimizeAmountOut_SingleDirectPath(t *testing.T) {
	pools := equalLiquidityPools()
	paths := []TradePath{directPath()}

	splits, total := OptimizeAmountOut(paths, pools, big.NewInt(100))

	assert.Len(t, splits, 1)
	assert.InDelta(t, 1.0, types.ToFloat64(splits[0]), 1e-9)
	// (100 * 997 * 1e6) / (1e6 * 1000 + 100 * 997) = 99
	assert.Equal(t, int64(99), total.Int64())
}

func TestOptimizeAmountOut_NoPaths(t *testing.T) {
	splits, total := OptimizeAmountOut(nil, equalLiquidityPools(), big.NewInt(100))

	assert.Empty(t, splits)
	assert.Equal(t, int64(0), total.Int64())
}

func TestOptimizeAmountIn_NoPaths(t *testing.T) {
	splits, total := OptimizeAmountIn(nil, equalLiquidityPools(), big.NewInt(100))

	assert.Empty(t, splits)
	assert.Equal(t, 0, total.Cmp(types.Infinite()))
}

func TestOptimizeAmountOut_SplitsOnSimplex(t *testing.T) {
	pools := equalLiquidityPools()
	paths := []TradePath{directPath(), indirectPath()}

	splits, _ := OptimizeAmountOut(paths, pools, big.NewInt(100000))

	assert.Len(t, splits, 2)
	sum := 0.0
	for _, split := range splitsAsFloats(splits) {
		assert.GreaterOrEqual(t, split, 0.0)
		assert.LessOrEqual(t, split, 1.0+1e-6)
		sum += split
	}
	assert.LessOrEqual(t, sum, 1.0+1e-6)
}

func TestOptimizeAmountOut_TwoParallelPaths(t *testing.T) {
	pools := equalLiquidityPools()
	paths := []TradePath{indirectPath(), directPath()}

	// Baseline: the whole amount through the direct pool alone
	amountIn := big.NewInt(1000)
	baseline := directPath().GetAmountOut(amountIn, equalLiquidityPools().Clone())

	splits, total := OptimizeAmountOut(paths, pools, amountIn)

	// Splitting never hurts relative to the warm-start single path
	assert.True(t, total.Cmp(baseline) >= 0,
		"optimized %s worse than single-path baseline %s", total, baseline)

	// Paths are sorted by hop count: index 0 is the direct route, and the
	// lower hop penalty keeps most of the mass on it
	floats := splitsAsFloats(splits)
	assert.Greater(t, floats[0], 0.5)
	assert.GreaterOrEqual(t, floats[0], floats[1])
}

func TestOptimizeAmountOut_LiquidityStealing(t *testing.T) {
	// Both candidate paths traverse the same pool: splitting must not beat a
	// single path taking the full amount, or shared reserves were not debited
	pools := types.PoolMap{
		types.NewPairKey(tokenA, tokenB): testPool("pool-ab", 1000000, 1000000),
	}
	paths := []TradePath{directPath(), directPath()}

	amountIn := big.NewInt(50000)
	single := directPath().GetAmountOut(amountIn, pools.Clone())

	_, total := OptimizeAmountOut(paths, pools, amountIn)

	assert.True(t, total.Cmp(single) <= 0,
		"split through a shared pool yielded %s > single-path %s", total, single)
}

func TestOptimizeAmountIn_SingleDirectPath(t *testing.T) {
	pools := equalLiquidityPools()
	paths := []TradePath{directPath()}

	splits, total := OptimizeAmountIn(paths, pools, big.NewInt(90))

	assert.Len(t, splits, 1)
	assert.InDelta(t, 1.0, types.ToFloat64(splits[0]), 1e-9)
	// ceil(90 * 1e6 * 1000 / ((1e6 - 90) * 997)) = 91
	assert.Equal(t, int64(91), total.Int64())
}

func TestOptimizeAmountIn_Infeasible(t *testing.T) {
	pools := types.PoolMap{
		types.NewPairKey(tokenA, tokenB): testPool("pool-ab", 100, 100),
	}
	paths := []TradePath{directPath()}

	splits, total := OptimizeAmountIn(paths, pools, big.NewInt(200))

	assert.Empty(t, splits)
	assert.Equal(t, 0, total.Cmp(types.Infinite()))
}

func TestOptimizeAmountIn_TwoParallelPaths(t *testing.T) {
	pools := equalLiquidityPools()
	paths := []TradePath{directPath(), indirectPath()}

	splits, total := OptimizeAmountIn(paths, pools, big.NewInt(10000))

	assert.Len(t, splits, 2)
	assert.True(t, total.Sign() > 0)
	assert.True(t, total.Cmp(types.Infinite()) < 0)

	sum := 0.0
	for _, split := range splitsAsFloats(splits) {
		assert.GreaterOrEqual(t, split, 0.0)
		sum += split
	}
	assert.LessOrEqual(t, sum, 1.0+1e-6)
}

func TestNewOptimizer_SortsPathsByHopCount(t *testing.T) {
	optimizer := NewOptimizer(
		[]TradePath{indirectPath(), directPath()},
		equalLiquidityPools(),
		big.NewInt(100),
		DefaultOptimizerParams(),
	)

	paths := optimizer.Paths()
	assert.Equal(t, 1, paths[0].Hops())
	assert.Equal(t, 2, paths[1].Hops())
}

func TestOptimizer_SnapshotUnchanged(t *testing.T) {
	pools := equalLiquidityPools()
	paths := []TradePath{directPath(), indirectPath()}

	OptimizeAmountOut(paths, pools, big.NewInt(100000))

	// The optimizer works on clones; the caller's snapshot stays pristine
	for _, pool := range pools {
		assert.Equal(t, int64(1000000), pool.Reserve0.Int64())
		assert.Equal(t, int64(1000000), pool.Reserve1.Int64())
		assert.False(t, pool.ReservesUpdated)
	}
}
