package collector

import (
	"context"
	"math/big"
)

// PairSource lists the factory's pairs and resolves each pair's two tokens.
type PairSource interface {
	ListAllPairs(ctx context.Context) ([]string, error)
	TokensOf(ctx context.Context, pairAddress string) (token0, token1 string, err error)
}

// ReservesSource reads pool reserves pinned to a block.
type ReservesSource interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	ReservesOf(ctx context.Context, poolAddress string, blockNumber uint64) (reserve0, reserve1 *big.Int, err error)
}
