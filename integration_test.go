package main

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udayj/dex-aggregator/internal/aggregator"
	"github.com/udayj/dex-aggregator/internal/cache"
	"github.com/udayj/dex-aggregator/internal/types"
)

const (
	wethAddr = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdtAddr = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	usdcAddr = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

var integrationSymbols = map[string]string{
	wethAddr: "WETH",
	usdtAddr: "USDT",
	usdcAddr: "USDC",
}

// setupIntegrationStore builds path and pool data for a small three-token
// universe through the real pipeline pieces: pair records -> token graph ->
// path map, persisted via the file store.
func setupIntegrationStore(t *testing.T) cache.Store {
	ctx := context.Background()
	store := cache.NewFileStore(t.TempDir(), "pathmap.json", "poolmap.json")

	pairs := []types.PairRecord{
		{Address: "pool-weth-usdt", Token0: wethAddr, Token1: usdtAddr},
		{Address: "pool-weth-usdc", Token0: wethAddr, Token1: usdcAddr},
		{Address: "pool-usdc-usdt", Token0: usdcAddr, Token1: usdtAddr},
	}
	supported := []string{wethAddr, usdtAddr, usdcAddr}

	graph := aggregator.NewTokenGraphFromPairs(pairs, supported)
	pathMap := aggregator.BuildPathMap(graph, supported)
	assert.NoError(t, store.WritePathMap(ctx, pathMap))

	reserve := func(value string) *big.Int {
		r, ok := new(big.Int).SetString(value, 10)
		assert.True(t, ok)
		return r
	}

	poolMap := types.PoolMap{
		types.NewPairKey(wethAddr, usdtAddr): {
			Address:  "pool-weth-usdt",
			Reserve0: reserve("10000000000000000000000"),
			Reserve1: reserve("20000000000000"),
		},
		// USDC orders before WETH, so reserve0 is the USDC side of this pool
		types.NewPairKey(wethAddr, usdcAddr): {
			Address:  "pool-weth-usdc",
			Reserve0: reserve("20000000000000"),
			Reserve1: reserve("10000000000000000000000"),
		},
		types.NewPairKey(usdcAddr, usdtAddr): {
			Address:  "pool-usdc-usdt",
			Reserve0: reserve("50000000000000"),
			Reserve1: reserve("50000000000000"),
		},
	}
	assert.NoError(t, store.WritePoolMap(ctx, poolMap, 19000000))

	return store
}

func TestIntegration_SellQuote(t *testing.T) {
	store := setupIntegrationStore(t)
	router := aggregator.NewRouter(store, nil, integrationSymbols)

	// Sell 1 WETH for USDT
	resp, err := router.GetQuote(context.Background(), &types.QuoteRequest{
		SellTokenAddress: wethAddr,
		BuyTokenAddress:  usdtAddr,
		SellAmount:       big.NewInt(1000000000000000000),
	})

	assert.NoError(t, err)
	assert.True(t, resp.TotalAmount.Sign() > 0)
	assert.Equal(t, uint64(19000000), resp.BlockNumber)
	assert.NotEmpty(t, resp.Routes)

	// Split fractions stay on the simplex
	sum := 0.0
	for _, route := range resp.Routes {
		assert.Greater(t, route.Split, 0.0)
		assert.LessOrEqual(t, route.Split, 1.0+1e-6)
		assert.Equal(t, wethAddr, route.Tokens[0])
		assert.Equal(t, usdtAddr, route.Tokens[len(route.Tokens)-1])
		sum += route.Split
	}
	assert.LessOrEqual(t, sum, 1.0+1e-6)
}

func TestIntegration_BuyQuote(t *testing.T) {
	store := setupIntegrationStore(t)
	router := aggregator.NewRouter(store, nil, integrationSymbols)

	// Buy 2000 USDT (6 decimals) with WETH
	resp, err := router.GetQuote(context.Background(), &types.QuoteRequest{
		SellTokenAddress: wethAddr,
		BuyTokenAddress:  usdtAddr,
		BuyAmount:        big.NewInt(2000000000),
	})

	assert.NoError(t, err)
	assert.True(t, resp.TotalAmount.Sign() > 0)
	assert.True(t, resp.TotalAmount.Cmp(types.Infinite()) < 0)
	assert.NotEmpty(t, resp.Routes)
}

func TestIntegration_UnknownPairGivesZeroQuote(t *testing.T) {
	store := setupIntegrationStore(t)
	router := aggregator.NewRouter(store, nil, integrationSymbols)

	resp, err := router.GetQuote(context.Background(), &types.QuoteRequest{
		SellTokenAddress: usdtAddr,
		BuyTokenAddress:  "0x6b175474e89094c44da98b954eedeac495271d0f",
		SellAmount:       big.NewInt(1000000),
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(0), resp.TotalAmount.Int64())
	assert.Empty(t, resp.Routes)
}

func TestIntegration_QuoteRoundTripConsistency(t *testing.T) {
	store := setupIntegrationStore(t)
	router := aggregator.NewRouter(store, nil, integrationSymbols)
	ctx := context.Background()

	sellResp, err := router.GetQuote(ctx, &types.QuoteRequest{
		SellTokenAddress: wethAddr,
		BuyTokenAddress:  usdtAddr,
		SellAmount:       big.NewInt(1000000000000000000),
	})
	assert.NoError(t, err)

	// Buying back the sell-side output should require roughly the original
	// input: between 0.99 and 1.02 WETH
	buyResp, err := router.GetQuote(ctx, &types.QuoteRequest{
		SellTokenAddress: wethAddr,
		BuyTokenAddress:  usdtAddr,
		BuyAmount:        sellResp.TotalAmount,
	})
	assert.NoError(t, err)

	lower := big.NewInt(990000000000000000)  // 0.99 WETH
	upper := big.NewInt(1020000000000000000) // 1.02 WETH
	assert.True(t, buyResp.TotalAmount.Cmp(lower) >= 0,
		"buy-back input %s implausibly low", buyResp.TotalAmount)
	assert.True(t, buyResp.TotalAmount.Cmp(upper) <= 0,
		"buy-back input %s implausibly high", buyResp.TotalAmount)
}
