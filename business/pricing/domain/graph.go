// Package domain contains the price discovery core: the liquidity graph,
// path search and rate arithmetic.
package domain

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/internal/token"
)

// Pool is one tradable liquidity pool feeding the graph. Reserves are in
// whole-token units.
type Pool struct {
	ID       token.ID
	TokenA   token.ID
	TokenB   token.ID
	ReserveA decimal.Decimal
	ReserveB decimal.Decimal
	FeeBps   int64
}

// PoolEdge is one directed traversal of a pool: swap From into To.
type PoolEdge struct {
	PoolID      token.ID
	From        token.ID
	To          token.ID
	ReserveFrom decimal.Decimal
	ReserveTo   decimal.Decimal
	FeeBps      int64
}

// Liquidity is the depth heuristic for scoring: the sum of both reserves
// in whole-token units.
func (e *PoolEdge) Liquidity() float64 {
	f, _ := e.ReserveFrom.Add(e.ReserveTo).Float64()
	return f
}

// Rate returns how many To units one From unit buys at the current
// reserve ratio, discounted by the pool fee.
func (e *PoolEdge) Rate() decimal.Decimal {
	fee := decimal.NewFromInt(10_000 - e.FeeBps).Div(decimal.NewFromInt(10_000))
	return e.ReserveTo.Div(e.ReserveFrom).Mul(fee)
}

// Graph is the token adjacency built from one snapshot's pools. Tokens
// are nodes; every pool contributes a directed edge in both directions.
// Multiple pools over the same pair stay as parallel edges.
type Graph struct {
	adjacency map[token.ID][]PoolEdge
}

// NewGraph builds the adjacency from the given pools. Pools with a zero
// or negative reserve on either side are excluded entirely: they cannot
// quote a rate and must not appear as connectivity.
func NewGraph(pools []Pool) *Graph {
	g := &Graph{adjacency: make(map[token.ID][]PoolEdge)}
	for _, p := range pools {
		if p.ReserveA.Sign() <= 0 || p.ReserveB.Sign() <= 0 {
			continue
		}
		g.adjacency[p.TokenA] = append(g.adjacency[p.TokenA], PoolEdge{
			PoolID: p.ID, From: p.TokenA, To: p.TokenB,
			ReserveFrom: p.ReserveA, ReserveTo: p.ReserveB, FeeBps: p.FeeBps,
		})
		g.adjacency[p.TokenB] = append(g.adjacency[p.TokenB], PoolEdge{
			PoolID: p.ID, From: p.TokenB, To: p.TokenA,
			ReserveFrom: p.ReserveB, ReserveTo: p.ReserveA, FeeBps: p.FeeBps,
		})
	}

	// Deterministic edge order regardless of input order.
	for id := range g.adjacency {
		edges := g.adjacency[id]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return edges[i].PoolID < edges[j].PoolID
		})
	}
	return g
}

// Has reports whether the token appears in any pool.
func (g *Graph) Has(id token.ID) bool {
	_, ok := g.adjacency[id]
	return ok
}

// Edges returns the outgoing edges of a token.
func (g *Graph) Edges(id token.ID) []PoolEdge {
	return g.adjacency[id]
}

// Tokens returns all node ids in lexical order.
func (g *Graph) Tokens() []token.ID {
	out := make([]token.ID, 0, len(g.adjacency))
	for id := range g.adjacency {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TokenCount returns the number of nodes.
func (g *Graph) TokenCount() int {
	return len(g.adjacency)
}

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.adjacency {
		n += len(edges)
	}
	return n
}

// TotalLiquidity sums the depth of every pool the token sits in.
func (g *Graph) TotalLiquidity(id token.ID) float64 {
	total := 0.0
	for _, e := range g.adjacency[id] {
		total += e.Liquidity()
	}
	return total
}
