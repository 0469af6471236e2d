package domain

import (
	"testing"
)

func lineGraph() *Graph {
	// A - B - C - D plus a direct A - C shortcut through a thin pool.
	return NewGraph([]Pool{
		pool("SP1.pool-ab", tokA, tokB, 10_000, 5000, 30),
		pool("SP1.pool-bc", tokB, tokC, 8000, 4000, 30),
		pool("SP1.pool-cd", tokC, tokD, 6000, 3000, 30),
		pool("SP1.pool-ac", tokA, tokC, 10, 5, 30),
	})
}

func TestFindPaths_EnumeratesSimpleRoutes(t *testing.T) {
	g := lineGraph()

	paths := FindPaths(g, tokA, tokC, DefaultPathPolicy())
	if len(paths) != 2 {
		t.Fatalf("found %d paths A->C, want 2 (direct and via B)", len(paths))
	}

	for _, p := range paths {
		if p.Hops() != 1 && p.Hops() != 2 {
			t.Errorf("unexpected path length %d", p.Hops())
		}
	}
}

func TestFindPaths_NoRoute(t *testing.T) {
	g := NewGraph([]Pool{
		pool("SP1.pool-ab", tokA, tokB, 1000, 500, 30),
		pool("SP1.pool-cd", tokC, tokD, 1000, 500, 30),
	})

	if paths := FindPaths(g, tokA, tokC, DefaultPathPolicy()); len(paths) != 0 {
		t.Errorf("found %d paths across disconnected components, want 0", len(paths))
	}
}

func TestFindPaths_RespectsHopBudget(t *testing.T) {
	g := lineGraph()

	policy := DefaultPathPolicy()
	policy.MaxHops = 1

	paths := FindPaths(g, tokA, tokD, policy)
	if len(paths) != 0 {
		t.Errorf("A->D needs 2+ hops, found %d paths with MaxHops=1", len(paths))
	}

	policy.MaxHops = 2
	paths = FindPaths(g, tokA, tokD, policy)
	if len(paths) != 1 {
		t.Fatalf("found %d paths A->D with MaxHops=2, want 1 (A-C-D direct shortcut)", len(paths))
	}
}

func TestReliability_HopMonotonic(t *testing.T) {
	policy := DefaultPathPolicy()

	// Same depth, growing length: strictly decreasing confidence.
	prev := policy.reliability(5000, 1)
	for hops := 2; hops <= 6; hops++ {
		cur := policy.reliability(5000, hops)
		if cur >= prev {
			t.Errorf("reliability(%d hops) = %v, not below %d hops = %v", hops, cur, hops-1, prev)
		}
		prev = cur
	}
}

func TestReliability_LiquidityMonotonic(t *testing.T) {
	policy := DefaultPathPolicy()

	prev := 0.0
	for _, liq := range []float64{10, 100, 1000, 10_000, 100_000} {
		cur := policy.reliability(liq, 2)
		if cur <= prev {
			t.Errorf("reliability(liq=%v) = %v, not above %v", liq, cur, prev)
		}
		prev = cur
	}

	if got := policy.reliability(0, 2); got != 0 {
		t.Errorf("reliability of empty route = %v, want 0", got)
	}
	if got := policy.reliability(1e12, 1); got >= 1 {
		t.Errorf("reliability = %v, must stay below 1 (only anchors score 1)", got)
	}
}

func TestBestPath_PrefersShortDeepRoutes(t *testing.T) {
	g := lineGraph()

	paths := FindPaths(g, tokA, tokC, DefaultPathPolicy())
	best, ok := BestPath(paths)
	if !ok {
		t.Fatal("no best path")
	}

	// The direct A-C pool holds 15 tokens total; the A-B-C route crosses
	// pools thousands deep. Depth dominates the single extra hop.
	if best.Hops() != 2 {
		t.Errorf("best path has %d hops, want the deep 2-hop route over the dust-pool shortcut", best.Hops())
	}
}

func TestBestPath_DeterministicTieBreak(t *testing.T) {
	// Two identical parallel pools: scores tie exactly, lexical pool id
	// must decide.
	g := NewGraph([]Pool{
		pool("SP1.pool-ab-x", tokA, tokB, 1000, 500, 30),
		pool("SP1.pool-ab-a", tokA, tokB, 1000, 500, 30),
	})

	for i := 0; i < 10; i++ {
		paths := FindPaths(g, tokA, tokB, DefaultPathPolicy())
		best, ok := BestPath(paths)
		if !ok {
			t.Fatal("no best path")
		}
		if got := best.PoolIDs()[0]; got != "SP1.pool-ab-a" {
			t.Fatalf("tie broke to %s, want SP1.pool-ab-a", got)
		}
	}
}

func TestRankPaths_OrdersByReliability(t *testing.T) {
	g := lineGraph()

	paths := RankPaths(FindPaths(g, tokA, tokC, DefaultPathPolicy()))
	if len(paths) != 2 {
		t.Fatalf("found %d paths, want 2", len(paths))
	}
	if paths[0].Reliability < paths[1].Reliability {
		t.Errorf("paths not sorted: %v before %v", paths[0].Reliability, paths[1].Reliability)
	}
	if paths[0].Hops() != 2 {
		t.Errorf("primary path has %d hops, want the deep 2-hop route first", paths[0].Hops())
	}
}

func TestBestPath_TotalLiquidityTieBreak(t *testing.T) {
	// Both 2-hop routes bottleneck on an identical 1500-deep pool, so
	// reliability and length tie. The route through the deeper far pool
	// must win on combined liquidity.
	g := NewGraph([]Pool{
		pool("SP1.pool-ab", tokA, tokB, 1000, 500, 30),
		pool("SP1.pool-bd", tokB, tokD, 50_000, 25_000, 30),
		pool("SP1.pool-ac", tokA, tokC, 1000, 500, 30),
		pool("SP1.pool-cd", tokC, tokD, 2000, 1000, 30),
	})

	paths := FindPaths(g, tokA, tokD, DefaultPathPolicy())
	best, ok := BestPath(paths)
	if !ok {
		t.Fatal("no best path")
	}
	if got := best.PoolIDs()[0]; got != "SP1.pool-ab" {
		t.Errorf("tie broke to %s, want the route with the deeper second pool", got)
	}
}

func TestFindPaths_MinLiquidityFilter(t *testing.T) {
	g := lineGraph()

	policy := DefaultPathPolicy()
	policy.MinLiquidity = 100 // drops the 15-token A-C shortcut

	paths := FindPaths(g, tokA, tokC, policy)
	if len(paths) != 1 {
		t.Fatalf("found %d paths, want 1 after liquidity filter", len(paths))
	}
	if paths[0].Hops() != 2 {
		t.Errorf("surviving path has %d hops, want 2", paths[0].Hops())
	}
}
