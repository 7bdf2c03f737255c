package aggregator

import (
	"math/big"

	"github.com/udayj/dex-aggregator/internal/types"
)

// TradePath is an ordered token sequence [t0, t1, ..., tk] describing a
// multi-hop swap. Every consecutive pair must have a pool in the map it is
// simulated against.
type TradePath struct {
	Tokens []string
}

// NewTradePaths wraps raw token paths from a path map.
func NewTradePaths(paths []types.TokenPath) []TradePath {
	tradePaths := make([]TradePath, 0, len(paths))
	for _, p := range paths {
		tradePaths = append(tradePaths, TradePath{Tokens: append([]string(nil), p...)})
	}
	return tradePaths
}

// Hops returns the number of pool traversals along the path.
func (tp TradePath) Hops() int {
	if len(tp.Tokens) < 2 {
		return 0
	}
	return len(tp.Tokens) - 1
}

var pathCalc = NewPriceCalculator()

// GetAmountOut simulates selling amountIn along the path, returning the final
// output amount. The pool map is mutated hop by hop: the same pool may be
// used by another path within one optimizer evaluation, and without debiting
// local reserves the optimizer would overestimate the output of a split.
// Returns zero when any hop has no pool or produces no output.
func (tp TradePath) GetAmountOut(amountIn *big.Int, pools types.PoolMap) *big.Int {
	currentAmount := new(big.Int).Set(amountIn)

	for i := 0; i+1 < len(tp.Tokens); i++ {
		tokenIn := tp.Tokens[i]
		tokenOut := tp.Tokens[i+1]

		poolKey := types.NewPairKey(tokenIn, tokenOut)
		pool, ok := pools[poolKey]
		if !ok {
			return big.NewInt(0)
		}

		amountHopIn := currentAmount
		updated := pool.Clone()
		updated.ReservesUpdated = true

		if tokenIn == poolKey.Token0 {
			currentAmount = pathCalc.GetAmountOut(currentAmount, pool.Reserve0, pool.Reserve1)
			updated.Reserve0.Add(updated.Reserve0, amountHopIn)
			updated.Reserve1.Sub(updated.Reserve1, currentAmount)
		} else {
			currentAmount = pathCalc.GetAmountOut(currentAmount, pool.Reserve1, pool.Reserve0)
			updated.Reserve1.Add(updated.Reserve1, amountHopIn)
			updated.Reserve0.Sub(updated.Reserve0, currentAmount)
		}

		if currentAmount.Sign() == 0 {
			return big.NewInt(0)
		}
		pools[poolKey] = updated
	}

	return currentAmount
}

// GetAmountIn simulates the inverse direction: the input required to receive
// amountOut at the end of the path. The path is walked in reverse. Returns
// nil when any hop is infeasible (requested output meets or exceeds the
// hop's output reserve) or has no pool. Reserve subtraction saturates at
// zero rather than underflowing.
func (tp TradePath) GetAmountIn(amountOut *big.Int, pools types.PoolMap) *big.Int {
	currentAmount := new(big.Int).Set(amountOut)

	for i := len(tp.Tokens) - 1; i > 0; i-- {
		tokenOut := tp.Tokens[i]
		tokenIn := tp.Tokens[i-1]

		poolKey := types.NewPairKey(tokenIn, tokenOut)
		pool, ok := pools[poolKey]
		if !ok {
			return nil
		}

		amountHopOut := currentAmount
		updated := pool.Clone()
		updated.ReservesUpdated = true

		if tokenIn == poolKey.Token0 {
			currentAmount = pathCalc.GetAmountIn(currentAmount, pool.Reserve0, pool.Reserve1)
			if currentAmount == nil {
				return nil
			}
			updated.Reserve0.Add(updated.Reserve0, currentAmount)
			saturatingSub(updated.Reserve1, amountHopOut)
		} else {
			currentAmount = pathCalc.GetAmountIn(currentAmount, pool.Reserve1, pool.Reserve0)
			if currentAmount == nil {
				return nil
			}
			updated.Reserve1.Add(updated.Reserve1, currentAmount)
			saturatingSub(updated.Reserve0, amountHopOut)
		}

		pools[poolKey] = updated
	}

	return currentAmount
}

// GetMaxAmountOut runs the forward calculation with an effectively unbounded
// input against a read-only view of the pools. The result is a proxy for how
// much liquidity the path can absorb, used to seed the buy-side optimizer.
func (tp TradePath) GetMaxAmountOut(pools types.PoolMap) *big.Int {
	currentAmount := types.Infinite()

	for i := 0; i+1 < len(tp.Tokens); i++ {
		poolKey := types.NewPairKey(tp.Tokens[i], tp.Tokens[i+1])
		pool, ok := pools[poolKey]
		if !ok {
			return big.NewInt(0)
		}

		if tp.Tokens[i] == poolKey.Token0 {
			currentAmount = pathCalc.GetAmountOut(currentAmount, pool.Reserve0, pool.Reserve1)
		} else {
			currentAmount = pathCalc.GetAmountOut(currentAmount, pool.Reserve1, pool.Reserve0)
		}
	}

	return currentAmount
}

// saturatingSub sets a to max(a-b, 0) in place.
func saturatingSub(a, b *big.Int) {
	a.Sub(a, b)
	if a.Sign() < 0 {
		a.SetInt64(0)
	}
}
