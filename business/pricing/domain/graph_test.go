package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/internal/token"
)

var (
	tokA = token.MustParse("SP1.token-alpha::alpha")
	tokB = token.MustParse("SP1.token-beta::beta")
	tokC = token.MustParse("SP1.token-gamma::gamma")
	tokD = token.MustParse("SP1.token-delta::delta")
)

func pool(id string, a, b token.ID, reserveA, reserveB int64, feeBps int64) Pool {
	return Pool{
		ID:       token.MustParse(id),
		TokenA:   a,
		TokenB:   b,
		ReserveA: decimal.NewFromInt(reserveA),
		ReserveB: decimal.NewFromInt(reserveB),
		FeeBps:   feeBps,
	}
}

func TestNewGraph_ExcludesEmptyPools(t *testing.T) {
	g := NewGraph([]Pool{
		pool("SP1.pool-ab", tokA, tokB, 1000, 500, 30),
		pool("SP1.pool-bc", tokB, tokC, 0, 500, 30),    // zero reserve
		pool("SP1.pool-cd", tokC, tokD, 100, -100, 30), // negative reserve
	})

	if !g.Has(tokA) || !g.Has(tokB) {
		t.Fatal("tokens of the valid pool must be nodes")
	}
	// Tokens only reachable through excluded pools must not appear at all.
	if g.Has(tokD) {
		t.Error("token connected only by an invalid pool must not be a node")
	}
	if g.Has(tokC) {
		t.Error("token connected only by invalid pools must not be a node")
	}
	if got := g.EdgeCount(); got != 2 {
		t.Errorf("EdgeCount = %d, want 2 (one pool, both directions)", got)
	}
}

func TestNewGraph_ParallelEdges(t *testing.T) {
	g := NewGraph([]Pool{
		pool("SP1.pool-ab-1", tokA, tokB, 1000, 500, 30),
		pool("SP1.pool-ab-2", tokA, tokB, 2000, 900, 100),
	})

	edges := g.Edges(tokA)
	if len(edges) != 2 {
		t.Fatalf("len(Edges(A)) = %d, want 2 parallel edges", len(edges))
	}
	if edges[0].PoolID == edges[1].PoolID {
		t.Error("parallel edges must keep distinct pool identities")
	}
}

func TestGraph_DeterministicOrder(t *testing.T) {
	pools := []Pool{
		pool("SP1.pool-ab", tokA, tokB, 1000, 500, 30),
		pool("SP1.pool-ac", tokA, tokC, 800, 400, 30),
		pool("SP1.pool-ad", tokA, tokD, 600, 300, 30),
	}
	reversed := []Pool{pools[2], pools[1], pools[0]}

	g1, g2 := NewGraph(pools), NewGraph(reversed)

	e1, e2 := g1.Edges(tokA), g2.Edges(tokA)
	if len(e1) != len(e2) {
		t.Fatalf("edge counts differ: %d vs %d", len(e1), len(e2))
	}
	for i := range e1 {
		if e1[i].PoolID != e2[i].PoolID {
			t.Errorf("edge %d differs by input order: %s vs %s", i, e1[i].PoolID, e2[i].PoolID)
		}
	}

	t1, t2 := g1.Tokens(), g2.Tokens()
	for i := range t1 {
		if t1[i] != t2[i] {
			t.Errorf("token order differs at %d: %s vs %s", i, t1[i], t2[i])
		}
	}
}

func TestGraph_TotalLiquidity(t *testing.T) {
	g := NewGraph([]Pool{
		pool("SP1.pool-ab", tokA, tokB, 1000, 500, 30),
		pool("SP1.pool-ac", tokA, tokC, 200, 100, 30),
	})

	// A sits in both pools: (1000+500) + (200+100).
	if got := g.TotalLiquidity(tokA); got != 1800 {
		t.Errorf("TotalLiquidity(A) = %v, want 1800", got)
	}
	if got := g.TotalLiquidity(tokB); got != 1500 {
		t.Errorf("TotalLiquidity(B) = %v, want 1500", got)
	}
}

func TestPoolEdge_Rate(t *testing.T) {
	g := NewGraph([]Pool{pool("SP1.pool-ab", tokA, tokB, 1000, 500, 30)})

	var ab PoolEdge
	for _, e := range g.Edges(tokA) {
		if e.To == tokB {
			ab = e
		}
	}

	// 500/1000 * (1 - 0.003) = 0.4985
	want := decimal.RequireFromString("0.4985")
	if got := ab.Rate(); !got.Equal(want) {
		t.Errorf("Rate = %s, want %s", got, want)
	}
}
