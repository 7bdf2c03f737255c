package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Token information
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Liquidity pool snapshot. Fee is carried for forward compatibility but the
// swap math uses the uniform protocol fee.
type Pool struct {
	Address         string   `json:"address"`
	Reserve0        *big.Int `json:"reserve0"`
	Reserve1        *big.Int `json:"reserve1"`
	Fee             int64    `json:"fee"`
	ReservesUpdated bool     `json:"reserves_updated"`
	BlockNumber     uint64   `json:"block_number"`
}

// Clone returns a deep copy of the pool so that simulations can mutate
// reserves without touching the snapshot.
func (p *Pool) Clone() *Pool {
	return &Pool{
		Address:         p.Address,
		Reserve0:        new(big.Int).Set(p.Reserve0),
		Reserve1:        new(big.Int).Set(p.Reserve1),
		Fee:             p.Fee,
		ReservesUpdated: p.ReservesUpdated,
		BlockNumber:     p.BlockNumber,
	}
}

// MarshalJSON custom marshaler for Pool to handle big.Int
func (p *Pool) MarshalJSON() ([]byte, error) {
	type Alias Pool
	return json.Marshal(&struct {
		Reserve0 string `json:"reserve0"`
		Reserve1 string `json:"reserve1"`
		*Alias
	}{
		Reserve0: p.Reserve0.String(),
		Reserve1: p.Reserve1.String(),
		Alias:    (*Alias)(p),
	})
}

// UnmarshalJSON custom unmarshaler for Pool to handle big.Int
func (p *Pool) UnmarshalJSON(data []byte) error {
	type Alias Pool
	aux := &struct {
		Reserve0 string `json:"reserve0"`
		Reserve1 string `json:"reserve1"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.Reserve0 != "" {
		reserve0, ok := new(big.Int).SetString(aux.Reserve0, 10)
		if !ok {
			return fmt.Errorf("invalid reserve0 format: %s", aux.Reserve0)
		}
		p.Reserve0 = reserve0
	} else {
		p.Reserve0 = big.NewInt(0)
	}

	if aux.Reserve1 != "" {
		reserve1, ok := new(big.Int).SetString(aux.Reserve1, 10)
		if !ok {
			return fmt.Errorf("invalid reserve1 format: %s", aux.Reserve1)
		}
		p.Reserve1 = reserve1
	} else {
		p.Reserve1 = big.NewInt(0)
	}

	return nil
}

// PairKey identifies a pool by its canonically ordered token pair. Token0 is
// always the numerically smaller address; construct keys with NewPairKey.
type PairKey struct {
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
}

// PoolMap maps canonical token pairs to pools. A snapshot is materialized per
// quote request and mutated only through clones during simulation.
type PoolMap map[PairKey]*Pool

// Clone deep-copies the map and every pool in it.
func (pm PoolMap) Clone() PoolMap {
	cloned := make(PoolMap, len(pm))
	for key, pool := range pm {
		cloned[key] = pool.Clone()
	}
	return cloned
}

// TokenPath is an ordered token sequence describing a multi-hop route.
type TokenPath []string

// PathKey is the ordered (from, to) token pair a set of candidate paths is
// stored under.
type PathKey struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PathMap maps ordered token pairs to their candidate trade paths.
type PathMap map[PathKey][]TokenPath

// PairRecord is one factory pair with its two tokens, as produced by the pair
// indexer.
type PairRecord struct {
	Address string
	Token0  string
	Token1  string
}

// QuoteRequest asks for a sell-side quote (SellAmount set) or a buy-side
// quote (BuyAmount set). Exactly one of the two amounts must be present.
type QuoteRequest struct {
	SellTokenAddress string   `json:"sellTokenAddress"`
	BuyTokenAddress  string   `json:"buyTokenAddress"`
	SellAmount       *big.Int `json:"sellAmount,omitempty"`
	BuyAmount        *big.Int `json:"buyAmount,omitempty"`
	UseLatest        bool     `json:"useLatest,omitempty"`
}

// Route is one path of a split quote together with the fraction of the total
// amount routed through it.
type Route struct {
	Tokens  []string `json:"tokens"`
	Symbols []string `json:"symbols,omitempty"`
	Split   float64  `json:"split"`
}

// QuoteResponse carries the optimized split. TotalAmount is the aggregate
// output for sell-side quotes and the aggregate input for buy-side quotes.
type QuoteResponse struct {
	SellTokenAddress string   `json:"sellTokenAddress"`
	BuyTokenAddress  string   `json:"buyTokenAddress"`
	TotalAmount      *big.Int `json:"totalAmount"`
	Routes           []Route  `json:"routes"`
	BlockNumber      uint64   `json:"blockNumber"`
	ProcessingTime   int64    `json:"processingTime,omitempty"` // milliseconds
}

// MarshalJSON custom marshaler for QuoteResponse to handle big.Int
func (q *QuoteResponse) MarshalJSON() ([]byte, error) {
	type Alias QuoteResponse
	return json.Marshal(&struct {
		TotalAmount string `json:"totalAmount"`
		*Alias
	}{
		TotalAmount: q.TotalAmount.String(),
		Alias:       (*Alias)(q),
	})
}

// UnmarshalJSON custom unmarshaler for QuoteResponse to handle big.Int
func (q *QuoteResponse) UnmarshalJSON(data []byte) error {
	type Alias QuoteResponse
	aux := &struct {
		TotalAmount string `json:"totalAmount"`
		*Alias
	}{
		Alias: (*Alias)(q),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.TotalAmount != "" {
		total, ok := new(big.Int).SetString(aux.TotalAmount, 10)
		if !ok {
			return fmt.Errorf("invalid totalAmount format: %s", aux.TotalAmount)
		}
		q.TotalAmount = total
	}

	return nil
}
