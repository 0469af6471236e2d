// Package pricing implements the price discovery bounded context.
package pricing

import (
	"context"

	marketdataDI "github.com/stxquote/price-engine/business/marketdata/di"
	"github.com/stxquote/price-engine/business/pricing/app"
	pricingDI "github.com/stxquote/price-engine/business/pricing/di"
	"github.com/stxquote/price-engine/business/pricing/domain"
	"github.com/stxquote/price-engine/business/pricing/infra/redisstore"
	"github.com/stxquote/price-engine/internal/config"
	"github.com/stxquote/price-engine/internal/di"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/monolith"

	"github.com/redis/go-redis/v9"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register PriceStore (Redis) - private dependency
	di.RegisterToken(c, pricingDI.PriceStore, func(sr di.ServiceRegistry) app.PriceStore {
		cfg := sr.Get("config").(*config.Config)
		client := sr.Get("redis").(*redis.Client)
		return redisstore.New(client, cfg.Redis.TTL)
	})

	// Register Engine (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		policy := domain.PathPolicy{
			MaxHops:       cfg.Pricing.MaxHops,
			MinLiquidity:  cfg.Pricing.MinLiquidity,
			LengthPenalty: cfg.Pricing.LengthPenalty,
			LiquidityHalf: cfg.Pricing.LiquidityHalf,
		}

		engine, err := app.NewEngine(
			marketdataDI.GetSnapshotService(sr),
			pricingDI.GetPriceStore(sr),
			app.EngineConfig{
				Anchor: cfg.Pricing.AnchorTokenID(),
				Policy: policy,
			},
			log,
		)
		if err != nil {
			panic("failed to create pricing engine: " + err.Error())
		}
		return engine
	})

	return nil
}

// Startup resolves the engine so it is subscribed to snapshot updates
// before the first refresh lands.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	pricingDI.GetEngine(mono.Services())
	mono.Logger().Info(ctx, "pricing module started")
	return nil
}
