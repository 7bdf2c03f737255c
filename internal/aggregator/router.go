package aggregator

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/udayj/dex-aggregator/internal/cache"
	"github.com/udayj/dex-aggregator/internal/types"
)

// PoolRefresher produces a fresh pool snapshot from the upstream RPC source
// instead of the cached one.
type PoolRefresher interface {
	LatestPoolMap(ctx context.Context) (types.PoolMap, uint64, error)
}

// Router glues the quote flow together: candidate paths from the path store,
// a pool snapshot from the pool store (or the refresher when the caller asks
// for fresh data), the optimizer in the requested direction, and route
// assembly for the nonzero splits.
type Router struct {
	store     cache.Store
	refresher PoolRefresher
	symbols   map[string]string
	params    OptimizerParams
}

func NewRouter(store cache.Store, refresher PoolRefresher, symbols map[string]string) *Router {
	return &Router{
		store:     store,
		refresher: refresher,
		symbols:   symbols,
		params:    DefaultOptimizerParams(),
	}
}

// GetQuote computes the optimal split quote for the request. Exactly one of
// SellAmount / BuyAmount must be set.
func (r *Router) GetQuote(ctx context.Context, req *types.QuoteRequest) (*types.QuoteResponse, error) {
	startTime := time.Now()

	if (req.SellAmount == nil) == (req.BuyAmount == nil) {
		return nil, fmt.Errorf("exactly one of sellAmount and buyAmount must be provided")
	}

	pathMap, err := r.store.ReadPathMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load path map: %w", err)
	}

	tokenPaths := pathMap[types.PathKey{From: req.SellTokenAddress, To: req.BuyTokenAddress}]
	paths := NewTradePaths(tokenPaths)
	log.Printf("Quote request: %s -> %s, %d candidate paths",
		req.SellTokenAddress, req.BuyTokenAddress, len(paths))

	var (
		pools       types.PoolMap
		blockNumber uint64
	)
	if req.UseLatest && r.refresher != nil {
		pools, blockNumber, err = r.refresher.LatestPoolMap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh pool snapshot: %w", err)
		}
	} else {
		pools, blockNumber, err = r.store.ReadPoolMap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load pool snapshot: %w", err)
		}
	}

	optimizer := newRouterOptimizer(paths, pools, req, r.params)

	var splits []*big.Int
	var totalAmount *big.Int
	if req.SellAmount != nil {
		splits, totalAmount = optimizer.Optimize()
	} else {
		splits, totalAmount = optimizer.OptimizeInput()
	}

	response := &types.QuoteResponse{
		SellTokenAddress: req.SellTokenAddress,
		BuyTokenAddress:  req.BuyTokenAddress,
		TotalAmount:      totalAmount,
		Routes:           r.buildRoutes(optimizer.Paths(), splits),
		BlockNumber:      blockNumber,
		ProcessingTime:   time.Since(startTime).Milliseconds(),
	}

	log.Printf("Quote result: total %s across %d routes in %v",
		totalAmount.String(), len(response.Routes), time.Since(startTime))
	return response, nil
}

func newRouterOptimizer(paths []TradePath, pools types.PoolMap, req *types.QuoteRequest, params OptimizerParams) *Optimizer {
	amount := req.SellAmount
	if amount == nil {
		amount = req.BuyAmount
	}
	return NewOptimizer(paths, pools, amount, params)
}

// buildRoutes turns the nonzero split components into response routes; the
// splits are aligned with the optimizer's path ordering.
func (r *Router) buildRoutes(paths []TradePath, splits []*big.Int) []types.Route {
	routes := []types.Route{}
	for i, split := range splits {
		fraction := types.ToFloat64(split)
		if fraction <= 0.0 {
			continue
		}
		route := types.Route{
			Tokens: paths[i].Tokens,
			Split:  fraction,
		}
		if len(r.symbols) > 0 {
			route.Symbols = make([]string, len(route.Tokens))
			for j, token := range route.Tokens {
				symbol, ok := r.symbols[token]
				if !ok {
					symbol = "UNKNOWN"
				}
				route.Symbols[j] = symbol
			}
		}
		routes = append(routes, route)
	}
	return routes
}
