package api

import (
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/udayj/dex-aggregator/config"
	"github.com/udayj/dex-aggregator/internal/aggregator"
	"github.com/udayj/dex-aggregator/internal/cache"
	"github.com/udayj/dex-aggregator/internal/types"
)

type Handler struct {
	router *aggregator.Router
	store  cache.Store
}

func NewHandler(router *aggregator.Router, store cache.Store) *Handler {
	return &Handler{
		router: router,
		store:  store,
	}
}

// GetQuote handles GET /api/v1/quote. Exactly one of sellAmount / buyAmount
// selects the quote direction.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := types.QuoteRequest{
		SellTokenAddress: strings.ToLower(query.Get("sellTokenAddress")),
		BuyTokenAddress:  strings.ToLower(query.Get("buyTokenAddress")),
		UseLatest:        query.Get("useLatest") == "true",
	}

	if req.SellTokenAddress == "" || req.BuyTokenAddress == "" {
		http.Error(w, "sellTokenAddress and buyTokenAddress are required", http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(req.SellTokenAddress) {
		http.Error(w, "Invalid sellTokenAddress", http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(req.BuyTokenAddress) {
		http.Error(w, "Invalid buyTokenAddress", http.StatusBadRequest)
		return
	}

	sellAmountStr := query.Get("sellAmount")
	buyAmountStr := query.Get("buyAmount")
	if (sellAmountStr == "") == (buyAmountStr == "") {
		http.Error(w, "Provide exactly one of sellAmount and buyAmount", http.StatusBadRequest)
		return
	}

	if sellAmountStr != "" {
		amount, ok := new(big.Int).SetString(sellAmountStr, 10)
		if !ok || amount.Sign() <= 0 {
			http.Error(w, "Invalid sellAmount", http.StatusBadRequest)
			return
		}
		req.SellAmount = amount
	} else {
		amount, ok := new(big.Int).SetString(buyAmountStr, 10)
		if !ok || amount.Sign() <= 0 {
			http.Error(w, "Invalid buyAmount", http.StatusBadRequest)
			return
		}
		req.BuyAmount = amount
	}

	resp, err := h.router.GetQuote(r.Context(), &req)
	if err != nil {
		log.Printf("Quote calculation failed: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, cache.ErrStoreMissing) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "Quote calculation failed: "+err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

// GetPools handles GET /api/v1/pools, returning the stored pool snapshot.
func (h *Handler) GetPools(w http.ResponseWriter, r *http.Request) {
	poolMap, blockNumber, err := h.store.ReadPoolMap(r.Context())
	if err != nil {
		if errors.Is(err, cache.ErrStoreMissing) {
			http.Error(w, "No pool snapshot available", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch pools: "+err.Error(), http.StatusInternalServerError)
		return
	}

	type poolInfo struct {
		Token0 string      `json:"token0"`
		Token1 string      `json:"token1"`
		Pool   *types.Pool `json:"pool"`
	}
	pools := make([]poolInfo, 0, len(poolMap))
	for key, pool := range poolMap {
		pools = append(pools, poolInfo{Token0: key.Token0, Token1: key.Token1, Pool: pool})
	}

	response := map[string]interface{}{
		"count":       len(pools),
		"blockNumber": blockNumber,
		"pools":       pools,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetPaths handles GET /api/v1/paths, returning the stored candidate paths
// for a token pair.
func (h *Handler) GetPaths(w http.ResponseWriter, r *http.Request) {
	from := strings.ToLower(r.URL.Query().Get("from"))
	to := strings.ToLower(r.URL.Query().Get("to"))

	if from == "" || to == "" {
		http.Error(w, "Both from and to parameters are required", http.StatusBadRequest)
		return
	}

	pathMap, err := h.store.ReadPathMap(r.Context())
	if err != nil {
		if errors.Is(err, cache.ErrStoreMissing) {
			http.Error(w, "No path map available", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch paths: "+err.Error(), http.StatusInternalServerError)
		return
	}

	routes := pathMap[types.PathKey{From: from, To: to}]
	response := map[string]interface{}{
		"from":   from,
		"to":     to,
		"count":  len(routes),
		"routes": routes,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetConfig handles GET /config for operational inspection.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	configInfo := map[string]interface{}{
		"server": map[string]interface{}{
			"port":          config.AppConfig.Server.Port,
			"read_timeout":  config.AppConfig.Server.ReadTimeout,
			"write_timeout": config.AppConfig.Server.WriteTimeout,
		},
		"ethereum": map[string]interface{}{
			"rpc_url":  config.AppConfig.Ethereum.RPCURL,
			"chain_id": config.AppConfig.Ethereum.ChainID,
			"factory":  config.AppConfig.Ethereum.Factory,
		},
		"storage": map[string]interface{}{
			"backend":     config.AppConfig.Storage.Backend,
			"working_dir": config.AppConfig.Storage.WorkingDir,
		},
		"supported_tokens": config.AppConfig.SupportedTokens,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(configInfo)
}
