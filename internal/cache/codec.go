package cache

import (
	"encoding/json"

	"github.com/udayj/dex-aggregator/internal/types"
)

// Serialized forms: maps keyed by token pairs become flat entry lists so the
// JSON stays self-describing.

type pathEntry struct {
	From   string            `json:"from"`
	To     string            `json:"to"`
	Routes []types.TokenPath `json:"routes"`
}

type pathList struct {
	Paths []pathEntry `json:"paths"`
}

type poolEntry struct {
	Token0 string      `json:"token0"`
	Token1 string      `json:"token1"`
	Pool   *types.Pool `json:"pool"`
}

type poolList struct {
	Pools []poolEntry `json:"pools"`
}

func marshalPathMap(pathMap types.PathMap) ([]byte, error) {
	list := pathList{Paths: make([]pathEntry, 0, len(pathMap))}
	for key, routes := range pathMap {
		list.Paths = append(list.Paths, pathEntry{From: key.From, To: key.To, Routes: routes})
	}
	return json.MarshalIndent(list, "", "  ")
}

func unmarshalPathMap(data []byte) (types.PathMap, error) {
	var list pathList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	pathMap := make(types.PathMap, len(list.Paths))
	for _, entry := range list.Paths {
		pathMap[types.PathKey{From: entry.From, To: entry.To}] = entry.Routes
	}
	return pathMap, nil
}

func marshalPoolMap(poolMap types.PoolMap) ([]byte, error) {
	list := poolList{Pools: make([]poolEntry, 0, len(poolMap))}
	for key, pool := range poolMap {
		list.Pools = append(list.Pools, poolEntry{Token0: key.Token0, Token1: key.Token1, Pool: pool})
	}
	return json.MarshalIndent(list, "", "  ")
}

func unmarshalPoolMap(data []byte) (types.PoolMap, error) {
	var list poolList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	poolMap := make(types.PoolMap, len(list.Pools))
	for _, entry := range list.Pools {
		poolMap[types.PairKey{Token0: entry.Token0, Token1: entry.Token1}] = entry.Pool
	}
	return poolMap, nil
}
