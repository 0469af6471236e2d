package domain

import (
	"math"
	"sort"

	"github.com/stxquote/price-engine/internal/token"
)

// hardHopCap bounds the search regardless of policy. Beyond this depth
// compounded fees and thin pools make any quote meaningless.
const hardHopCap = 9

// PathPolicy tunes the path search and reliability scoring.
type PathPolicy struct {
	MaxHops       int     // maximum pools a route may cross
	MinLiquidity  float64 // routes whose thinnest pool is below this are discarded
	LengthPenalty float64 // per-extra-hop reliability multiplier, in (0, 1]
	LiquidityHalf float64 // liquidity at which the depth score reaches 0.5
}

// DefaultPathPolicy returns the tuning used in production.
func DefaultPathPolicy() PathPolicy {
	return PathPolicy{
		MaxHops:       4,
		MinLiquidity:  0,
		LengthPenalty: 0.85,
		LiquidityHalf: 1000,
	}
}

func (p PathPolicy) normalized() PathPolicy {
	if p.MaxHops < 1 {
		p.MaxHops = 1
	}
	if p.MaxHops > hardHopCap {
		p.MaxHops = hardHopCap
	}
	if p.LengthPenalty <= 0 || p.LengthPenalty > 1 {
		p.LengthPenalty = 0.85
	}
	if p.LiquidityHalf <= 0 {
		p.LiquidityHalf = 1000
	}
	return p
}

// Path is a simple route from a token to a target through one or more
// pools.
type Path struct {
	Edges          []PoolEdge
	MinLiquidity   float64 // depth of the thinnest pool on the route
	TotalLiquidity float64 // combined depth of every pool on the route
	Reliability    float64 // confidence score in [0, 1)
}

// Hops returns the number of pools crossed.
func (p *Path) Hops() int { return len(p.Edges) }

// PoolIDs returns the route's pool contract ids in hop order.
func (p *Path) PoolIDs() []token.ID {
	out := make([]token.ID, len(p.Edges))
	for i := range p.Edges {
		out[i] = p.Edges[i].PoolID
	}
	return out
}

// reliability scores a route: depth saturates toward 1 as the thinnest
// pool grows, and each extra hop multiplies the score by the length
// penalty. Strictly monotonic in both dimensions, so a deeper route
// always beats a shallower one of equal length and a shorter route
// always beats a longer one of equal depth.
func (pol PathPolicy) reliability(minLiquidity float64, hops int) float64 {
	if minLiquidity <= 0 || hops < 1 {
		return 0
	}
	depth := minLiquidity / (minLiquidity + pol.LiquidityHalf)
	return depth * math.Pow(pol.LengthPenalty, float64(hops-1))
}

// FindPaths enumerates all simple routes from `from` to `to` within the
// policy's hop budget. Parallel pools yield distinct routes.
func FindPaths(g *Graph, from, to token.ID, policy PathPolicy) []Path {
	policy = policy.normalized()
	if !g.Has(from) || !g.Has(to) || from == to {
		return nil
	}

	var (
		paths   []Path
		route   []PoolEdge
		visited = map[token.ID]bool{from: true}
	)

	var walk func(at token.ID)
	walk = func(at token.ID) {
		if len(route) >= policy.MaxHops {
			return
		}
		for _, e := range g.Edges(at) {
			if e.To == to {
				route = append(route, e)
				paths = append(paths, buildPath(route, policy))
				route = route[:len(route)-1]
				continue
			}
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			route = append(route, e)
			walk(e.To)
			route = route[:len(route)-1]
			visited[e.To] = false
		}
	}
	walk(from)

	if policy.MinLiquidity > 0 {
		kept := paths[:0]
		for _, p := range paths {
			if p.MinLiquidity >= policy.MinLiquidity {
				kept = append(kept, p)
			}
		}
		paths = kept
	}
	return paths
}

func buildPath(route []PoolEdge, policy PathPolicy) Path {
	edges := make([]PoolEdge, len(route))
	copy(edges, route)

	minLiq := math.Inf(1)
	total := 0.0
	for i := range edges {
		l := edges[i].Liquidity()
		total += l
		if l < minLiq {
			minLiq = l
		}
	}
	return Path{
		Edges:          edges,
		MinLiquidity:   minLiq,
		TotalLiquidity: total,
		Reliability:    policy.reliability(minLiq, len(edges)),
	}
}

// RankPaths orders routes best first: highest reliability, then fewest
// hops, then highest combined liquidity, then lexical pool ids so that
// equal candidates resolve the same way on every run. The input slice is
// sorted in place and returned.
func RankPaths(paths []Path) []Path {
	sort.Slice(paths, func(i, j int) bool { return better(paths[i], paths[j]) })
	return paths
}

// BestPath picks the primary route per RankPaths ordering.
func BestPath(paths []Path) (Path, bool) {
	if len(paths) == 0 {
		return Path{}, false
	}
	best := paths[0]
	for _, p := range paths[1:] {
		if better(p, best) {
			best = p
		}
	}
	return best, true
}

func better(a, b Path) bool {
	if a.Reliability != b.Reliability {
		return a.Reliability > b.Reliability
	}
	if a.Hops() != b.Hops() {
		return a.Hops() < b.Hops()
	}
	if a.TotalLiquidity != b.TotalLiquidity {
		return a.TotalLiquidity > b.TotalLiquidity
	}
	aIDs, bIDs := a.PoolIDs(), b.PoolIDs()
	for i := range aIDs {
		if aIDs[i] != bIDs[i] {
			return aIDs[i] < bIDs[i]
		}
	}
	return false
}
