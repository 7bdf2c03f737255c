package aggregator

import (
	"sort"

	"github.com/udayj/dex-aggregator/internal/types"
)

// maxPathHops caps path enumeration at 4 pool traversals (5 tokens). Longer
// routes pay too much in fees and gas to ever win a split.
const maxPathHops = 4

// TokenGraph is an undirected graph over supported tokens. An edge exists for
// every token pair that has a pool. Duplicate edges are harmless.
type TokenGraph struct {
	edges map[string][]string
}

func NewTokenGraph() *TokenGraph {
	return &TokenGraph{
		edges: make(map[string][]string),
	}
}

// NewTokenGraphFromPairs builds the graph from factory pair records, keeping
// only pairs whose tokens are both in the supported set.
func NewTokenGraphFromPairs(pairs []types.PairRecord, supportedTokens []string) *TokenGraph {
	supported := make(map[string]bool, len(supportedTokens))
	for _, token := range supportedTokens {
		supported[token] = true
	}

	graph := NewTokenGraph()
	for _, pair := range pairs {
		if supported[pair.Token0] && supported[pair.Token1] {
			graph.AddEdge(pair.Token0, pair.Token1)
		}
	}
	return graph
}

// AddEdge records an undirected edge between two tokens.
func (g *TokenGraph) AddEdge(from, to string) {
	g.edges[from] = append(g.edges[from], to)
	g.edges[to] = append(g.edges[to], from)
}

// FindAllPaths returns, for every target token, all simple paths from start
// to it with at most maxPathHops hops. Only nodes in the target set are
// traversed; enumeration order is unspecified.
func (g *TokenGraph) FindAllPaths(start string, targetNodes map[string]bool) map[string][]types.TokenPath {
	allPaths := make(map[string][]types.TokenPath)
	for node := range targetNodes {
		allPaths[node] = []types.TokenPath{}
	}

	visited := make(map[string]bool)
	var currentPath []string
	g.dfs(start, start, visited, &currentPath, allPaths, targetNodes)

	return allPaths
}

func (g *TokenGraph) dfs(current, start string, visited map[string]bool, currentPath *[]string,
	allPaths map[string][]types.TokenPath, targetNodes map[string]bool) {

	if len(*currentPath) > maxPathHops {
		return
	}
	visited[current] = true
	*currentPath = append(*currentPath, current)

	// Record the path whenever we stand on a target other than the start
	if targetNodes[current] && current != start {
		if paths, ok := allPaths[current]; ok {
			allPaths[current] = append(paths, append(types.TokenPath(nil), *currentPath...))
		}
	}

	for _, neighbor := range g.edges[current] {
		if !visited[neighbor] && targetNodes[neighbor] {
			g.dfs(neighbor, start, visited, currentPath, allPaths, targetNodes)
		}
	}

	visited[current] = false
	*currentPath = (*currentPath)[:len(*currentPath)-1]
}

// BuildPathMap enumerates candidate paths for every ordered pair of supported
// tokens. Path lists come out sorted by hop count ascending so the shortest
// route leads each candidate set.
func BuildPathMap(graph *TokenGraph, supportedTokens []string) types.PathMap {
	pathMap := make(types.PathMap)

	for _, start := range supportedTokens {
		targetNodes := make(map[string]bool, len(supportedTokens)-1)
		for _, token := range supportedTokens {
			if token != start {
				targetNodes[token] = true
			}
		}

		for target, paths := range graph.FindAllPaths(start, targetNodes) {
			if len(paths) == 0 {
				continue
			}
			sort.SliceStable(paths, func(i, j int) bool {
				return len(paths[i]) < len(paths[j])
			})
			pathMap[types.PathKey{From: start, To: target}] = paths
		}
	}

	return pathMap
}
