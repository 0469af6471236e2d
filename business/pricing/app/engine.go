package app

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	marketdomain "github.com/stxquote/price-engine/business/marketdata/domain"
	"github.com/stxquote/price-engine/business/pricing/domain"
	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/token"
)

// EngineConfig tunes the price discovery engine.
type EngineConfig struct {
	Anchor token.ID
	Policy domain.PathPolicy
}

// Engine turns market snapshots into price sets. It recomputes on every
// snapshot install, serves lookups from the in-memory set, and falls back
// to the persisted set when market data is unavailable.
type Engine struct {
	provider SnapshotProvider
	store    PriceStore
	config   EngineConfig
	logger   logger.LoggerInterface

	mu      sync.RWMutex
	current *domain.PriceSet

	tracer         trace.Tracer
	computeCounter metric.Int64Counter
	computeSeconds metric.Float64Histogram
	pricedGauge    metric.Int64Gauge
}

// NewEngine creates an Engine and subscribes it to snapshot updates.
func NewEngine(provider SnapshotProvider, store PriceStore, config EngineConfig, log logger.LoggerInterface) (*Engine, error) {
	e := &Engine{
		provider: provider,
		store:    store,
		config:   config,
		logger:   log,
		tracer:   otel.Tracer("pricing.engine"),
	}

	meter := otel.Meter("pricing.engine")
	var err error
	e.computeCounter, err = meter.Int64Counter("pricing_computations_total",
		metric.WithDescription("Price set computations by outcome"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return nil, err
	}
	e.computeSeconds, err = meter.Float64Histogram("pricing_computation_seconds",
		metric.WithDescription("Time to price a full snapshot"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	e.pricedGauge, err = meter.Int64Gauge("pricing_tokens_priced",
		metric.WithDescription("Tokens priced in the current set"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	provider.OnUpdate(func(snap *marketdomain.Snapshot) {
		ctx := context.Background()
		if _, err := e.Recompute(ctx, snap); err != nil {
			log.Error(ctx, "price recomputation failed", "error", err)
		}
	})

	return e, nil
}

// Recompute prices every token in the snapshot and installs the result.
func (e *Engine) Recompute(ctx context.Context, snap *marketdomain.Snapshot) (*domain.PriceSet, error) {
	ctx, span := e.tracer.Start(ctx, "pricing.recompute",
		trace.WithAttributes(attribute.Int64("block_height", int64(snap.BlockHeight))),
	)
	defer span.End()
	start := time.Now()

	set, err := e.compute(snap)
	if err != nil {
		e.computeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		span.RecordError(err)
		return nil, err
	}

	e.mu.Lock()
	e.current = set
	e.mu.Unlock()

	e.computeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	e.computeSeconds.Record(ctx, time.Since(start).Seconds())
	e.pricedGauge.Record(ctx, int64(len(set.Prices)))

	if e.store != nil {
		if err := e.store.Save(ctx, set); err != nil {
			e.logger.Warn(ctx, "price set not persisted", "error", err)
		}
	}

	e.logger.Info(ctx, "price set computed",
		"height", set.BlockHeight,
		"priced", len(set.Prices),
		"unreachable", len(set.Unreachable),
		"took", time.Since(start),
	)
	return set, nil
}

// compute is the pure pricing pass over one snapshot.
func (e *Engine) compute(snap *marketdomain.Snapshot) (*domain.PriceSet, error) {
	anchorUSD, ok := snap.AnchorPrices[e.config.Anchor]
	if !ok || anchorUSD.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithContext(string(e.config.Anchor)))
	}

	pools := make([]domain.Pool, 0, len(snap.Vaults))
	for i := range snap.Vaults {
		v := &snap.Vaults[i]
		if v.Type != marketdomain.VaultTypePool {
			continue
		}
		pools = append(pools, domain.Pool{
			ID:       v.ContractID,
			TokenA:   v.TokenA,
			TokenB:   v.TokenB,
			ReserveA: v.ReserveA,
			ReserveB: v.ReserveB,
			FeeBps:   v.FeeBps,
		})
	}
	graph := domain.NewGraph(pools)

	now := time.Now()
	set := &domain.PriceSet{
		BlockHeight: snap.BlockHeight,
		ComputedAt:  now,
		Prices:      make(map[token.ID]domain.TokenPrice),
		Unreachable: make(map[token.ID]struct{}),
	}

	// Anchors first: oracle price, full confidence.
	for id, usd := range snap.AnchorPrices {
		if usd.Sign() <= 0 {
			continue
		}
		set.Prices[id] = domain.TokenPrice{
			Token:       id,
			USD:         usd,
			AnchorRatio: usd.Div(anchorUSD),
			Confidence:  1,
			Liquidity:   graph.TotalLiquidity(id),
			Source:      domain.SourceAnchor,
			ComputedAt:  now,
		}
	}

	// Market prices: best liquidity path to the anchor, runners-up kept
	// as alternatives. Tokens() is sorted, so identical snapshots always
	// price in the same order.
	for _, id := range graph.Tokens() {
		if _, done := set.Prices[id]; done {
			continue
		}
		paths := domain.RankPaths(domain.FindPaths(graph, id, e.config.Anchor, e.config.Policy))
		if len(paths) == 0 {
			set.MarkUnreachable(id)
			continue
		}
		best := paths[0]
		ratio := best.Rate()
		set.Prices[id] = domain.TokenPrice{
			Token:        id,
			USD:          ratio.Mul(anchorUSD),
			AnchorRatio:  ratio,
			Confidence:   best.Reliability,
			Liquidity:    graph.TotalLiquidity(id),
			Source:       domain.SourceMarket,
			Route:        best.PoolIDs(),
			Alternatives: summarizeAlternatives(paths[1:]),
			Hops:         best.Hops(),
			ComputedAt:   now,
		}
	}

	e.priceLPTokens(snap, set, graph, anchorUSD, now)
	e.aliasSubnetTokens(snap, set, graph, now)

	// Tokens the snapshot lists but the graph never saw, usually because
	// every pool holding them was dropped for empty reserves. Known, but
	// no route exists.
	for i := range snap.Tokens {
		if id := snap.Tokens[i].ID; !graph.Has(id) {
			set.MarkUnreachable(id)
		}
	}

	return set, nil
}

// maxAlternatives bounds how many runner-up routes a price carries.
const maxAlternatives = 3

func summarizeAlternatives(paths []domain.Path) []domain.RouteSummary {
	if len(paths) == 0 {
		return nil
	}
	if len(paths) > maxAlternatives {
		paths = paths[:maxAlternatives]
	}
	out := make([]domain.RouteSummary, len(paths))
	for i := range paths {
		out[i] = domain.RouteSummary{
			Pools:       paths[i].PoolIDs(),
			Hops:        paths[i].Hops(),
			Reliability: paths[i].Reliability,
		}
	}
	return out
}

// priceLPTokens values LP tokens by their redeemable share. Both pool
// components must already be priced; the LP confidence is capped by the
// weaker component.
func (e *Engine) priceLPTokens(snap *marketdomain.Snapshot, set *domain.PriceSet, graph *domain.Graph, anchorUSD decimal.Decimal, now time.Time) {
	one := decimal.NewFromInt(1)
	for i := range snap.Vaults {
		v := &snap.Vaults[i]
		if v.LPToken == "" || v.LPSupply.Sign() <= 0 {
			continue
		}
		priceA, okA := set.Prices[v.TokenA]
		priceB, okB := set.Prices[v.TokenB]
		if !okA || !okB {
			set.MarkUnreachable(v.LPToken)
			continue
		}

		usd, err := domain.IntrinsicLPPrice(v.ReserveA, priceA.USD, v.ReserveB, priceB.USD, v.LPSupply)
		if err != nil {
			e.logger.Warn(context.Background(), "LP valuation failed",
				"vault", v.ContractID, "error", err)
			set.MarkUnreachable(v.LPToken)
			continue
		}
		if err := domain.VerifyRedemptionLinearity(one, v.ReserveA, priceA.USD, v.ReserveB, priceB.USD, v.LPSupply); err != nil {
			e.logger.Warn(context.Background(), "LP redemption sanity check failed",
				"vault", v.ContractID, "error", err)
			set.MarkUnreachable(v.LPToken)
			continue
		}

		conf := priceA.Confidence
		if priceB.Confidence < conf {
			conf = priceB.Confidence
		}
		set.Prices[v.LPToken] = domain.TokenPrice{
			Token:       v.LPToken,
			USD:         usd,
			AnchorRatio: usd.Div(anchorUSD),
			Confidence:  conf,
			Liquidity:   graph.TotalLiquidity(v.LPToken),
			Source:      domain.SourceIntrinsic,
			Route:       []token.ID{v.ContractID},
			ComputedAt:  now,
		}
	}
}

// aliasSubnetTokens gives wrapped tokens their base token's price.
func (e *Engine) aliasSubnetTokens(snap *marketdomain.Snapshot, set *domain.PriceSet, graph *domain.Graph, now time.Time) {
	for i := range snap.Vaults {
		v := &snap.Vaults[i]
		if v.Type != marketdomain.VaultTypeSubnet {
			continue
		}
		base, ok := set.Prices[v.TokenA]
		if !ok {
			set.MarkUnreachable(v.TokenB)
			continue
		}
		if _, done := set.Prices[v.TokenB]; done {
			continue // wrapped token also trades directly, keep the market price
		}
		set.Prices[v.TokenB] = domain.TokenPrice{
			Token:       v.TokenB,
			USD:         base.USD,
			AnchorRatio: base.AnchorRatio,
			Confidence:  base.Confidence,
			Liquidity:   graph.TotalLiquidity(v.TokenB),
			Source:      domain.SourceAlias,
			Route:       []token.ID{v.ContractID},
			ComputedAt:  now,
		}
	}
}

// currentSet returns the working price set, reaching for the market data
// provider and then the persisted fallback in that order.
func (e *Engine) currentSet(ctx context.Context) (*domain.PriceSet, error) {
	e.mu.RLock()
	set := e.current
	e.mu.RUnlock()

	if set != nil {
		// Mark stale when the provider says the backing snapshot aged out.
		if _, err := e.provider.Fresh(); apperror.GetCode(err) == apperror.CodeStaleSnapshot && !set.Stale {
			stale := *set
			stale.Stale = true
			return &stale, nil
		}
		return set, nil
	}

	// Cold start: compute from the provider if it has anything, stale or not.
	if snap, err := e.provider.Fresh(); snap != nil {
		set, cerr := e.compute(snap)
		if cerr == nil {
			set.Stale = apperror.GetCode(err) == apperror.CodeStaleSnapshot
			e.mu.Lock()
			e.current = set
			e.mu.Unlock()
			return set, nil
		}
	}

	// Last resort: the persisted set from a previous run.
	if e.store != nil {
		stored, err := e.store.Load(ctx)
		if err == nil {
			stored.Stale = true
			e.logger.Warn(ctx, "serving persisted price set, market data unavailable")
			return stored, nil
		}
	}
	return nil, apperror.New(apperror.CodeSnapshotUnavailable)
}

// Price returns the price of a single token.
func (e *Engine) Price(ctx context.Context, id token.ID) (domain.TokenPrice, error) {
	set, err := e.currentSet(ctx)
	if err != nil {
		return domain.TokenPrice{}, err
	}

	p, outcome := set.Lookup(id)
	switch outcome {
	case domain.LookupPriced:
		return p, nil
	case domain.LookupUnreachable:
		return domain.TokenPrice{}, apperror.Unprocessable(apperror.CodeNoLiquidityPath, string(id))
	default:
		return domain.TokenPrice{}, apperror.NotFound(apperror.CodeTokenNotFound, string(id))
	}
}

// Prices resolves a batch of ids. Missing or unreachable tokens come back
// in the error map; the slice holds only resolved prices.
func (e *Engine) Prices(ctx context.Context, ids []token.ID) ([]domain.TokenPrice, map[token.ID]error, error) {
	set, err := e.currentSet(ctx)
	if err != nil {
		return nil, nil, err
	}

	out := make([]domain.TokenPrice, 0, len(ids))
	failed := make(map[token.ID]error)
	for _, id := range ids {
		p, outcome := set.Lookup(id)
		switch outcome {
		case domain.LookupPriced:
			out = append(out, p)
		case domain.LookupUnreachable:
			failed[id] = apperror.Unprocessable(apperror.CodeNoLiquidityPath, string(id))
		default:
			failed[id] = apperror.NotFound(apperror.CodeTokenNotFound, string(id))
		}
	}
	return out, failed, nil
}

// All returns the full current price set.
func (e *Engine) All(ctx context.Context) (*domain.PriceSet, error) {
	return e.currentSet(ctx)
}

// RefreshAll forces a snapshot fetch and reprices it.
func (e *Engine) RefreshAll(ctx context.Context) (*domain.PriceSet, error) {
	snap, err := e.provider.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return e.Recompute(ctx, snap)
}
