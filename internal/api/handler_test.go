package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udayj/dex-aggregator/internal/aggregator"
	"github.com/udayj/dex-aggregator/internal/cache"
	"github.com/udayj/dex-aggregator/internal/types"
)

const (
	weth = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdt = "0xdac17f958d2ee523a2206206994597c13d831ec7"
)

func newTestHandler(t *testing.T, populated bool) *Handler {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	if populated {
		pathMap := types.PathMap{
			{From: weth, To: usdt}: {{weth, usdt}},
			{From: usdt, To: weth}: {{usdt, weth}},
		}
		assert.NoError(t, store.WritePathMap(ctx, pathMap))

		poolMap := types.PoolMap{
			types.NewPairKey(weth, usdt): {
				Address:  "pool-weth-usdt",
				Reserve0: big.NewInt(1000000),
				Reserve1: big.NewInt(1000000),
			},
		}
		assert.NoError(t, store.WritePoolMap(ctx, poolMap, 4242))
	}

	router := aggregator.NewRouter(store, nil, map[string]string{weth: "WETH", usdt: "USDT"})
	return NewHandler(router, store)
}

func TestGetQuote_Sell(t *testing.T) {
	handler := newTestHandler(t, true)

	req := httptest.NewRequest("GET",
		"/api/v1/quote?sellTokenAddress="+weth+"&buyTokenAddress="+usdt+"&sellAmount=100", nil)
	rec := httptest.NewRecorder()
	handler.GetQuote(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp types.QuoteResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(99), resp.TotalAmount.Int64())
	assert.Len(t, resp.Routes, 1)
	assert.Equal(t, []string{"WETH", "USDT"}, resp.Routes[0].Symbols)
	assert.Equal(t, uint64(4242), resp.BlockNumber)
}

func TestGetQuote_Buy(t *testing.T) {
	handler := newTestHandler(t, true)

	req := httptest.NewRequest("GET",
		"/api/v1/quote?sellTokenAddress="+weth+"&buyTokenAddress="+usdt+"&buyAmount=90", nil)
	rec := httptest.NewRecorder()
	handler.GetQuote(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp types.QuoteResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(91), resp.TotalAmount.Int64())
}

func TestGetQuote_Validation(t *testing.T) {
	handler := newTestHandler(t, true)

	cases := []struct {
		name  string
		query string
	}{
		{"missing addresses", "sellAmount=100"},
		{"invalid sell address", "sellTokenAddress=notanaddress&buyTokenAddress=" + usdt + "&sellAmount=100"},
		{"invalid buy address", "sellTokenAddress=" + weth + "&buyTokenAddress=xyz&sellAmount=100"},
		{"no amount", "sellTokenAddress=" + weth + "&buyTokenAddress=" + usdt},
		{"both amounts", "sellTokenAddress=" + weth + "&buyTokenAddress=" + usdt + "&sellAmount=1&buyAmount=1"},
		{"negative amount", "sellTokenAddress=" + weth + "&buyTokenAddress=" + usdt + "&sellAmount=-5"},
		{"malformed amount", "sellTokenAddress=" + weth + "&buyTokenAddress=" + usdt + "&sellAmount=abc"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/api/v1/quote?"+tc.query, nil)
		rec := httptest.NewRecorder()
		handler.GetQuote(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
	}
}

func TestGetQuote_StoreMissing(t *testing.T) {
	handler := newTestHandler(t, false)

	req := httptest.NewRequest("GET",
		"/api/v1/quote?sellTokenAddress="+weth+"&buyTokenAddress="+usdt+"&sellAmount=100", nil)
	rec := httptest.NewRecorder()
	handler.GetQuote(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetPools(t *testing.T) {
	handler := newTestHandler(t, true)

	req := httptest.NewRequest("GET", "/api/v1/pools", nil)
	rec := httptest.NewRecorder()
	handler.GetPools(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["count"])
	assert.Equal(t, float64(4242), resp["blockNumber"])
}

func TestGetPools_Missing(t *testing.T) {
	handler := newTestHandler(t, false)

	req := httptest.NewRequest("GET", "/api/v1/pools", nil)
	rec := httptest.NewRecorder()
	handler.GetPools(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPaths(t *testing.T) {
	handler := newTestHandler(t, true)

	req := httptest.NewRequest("GET", "/api/v1/paths?from="+weth+"&to="+usdt, nil)
	rec := httptest.NewRecorder()
	handler.GetPaths(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["count"])
}

func TestHealthCheck(t *testing.T) {
	handler := newTestHandler(t, false)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
