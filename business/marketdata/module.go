// Package marketdata implements the market data bounded context: vault
// discovery, anchor oracle quotes and snapshot lifecycle.
package marketdata

import (
	"context"

	"github.com/stxquote/price-engine/business/marketdata/app"
	marketdataDI "github.com/stxquote/price-engine/business/marketdata/di"
	"github.com/stxquote/price-engine/business/marketdata/domain"
	"github.com/stxquote/price-engine/business/marketdata/infra/stacksapi"
	"github.com/stxquote/price-engine/internal/config"
	"github.com/stxquote/price-engine/internal/di"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/monolith"
	"github.com/stxquote/price-engine/internal/token"
)

// Module implements the market data bounded context.
type Module struct{}

// RegisterServices registers all market data services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register VaultSource (Stacks indexer) - private dependency
	di.RegisterToken(c, marketdataDI.VaultSource, func(sr di.ServiceRegistry) app.VaultSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := stacksapi.NewClient(stacksapi.ClientConfig{
			BaseURL:      cfg.Stacks.APIURL,
			Timeout:      cfg.Stacks.RequestTimeout,
			RateLimitRPS: cfg.Stacks.RateLimitRPS,
		}, log)
		if err != nil {
			panic("failed to create stacks client: " + err.Error())
		}
		return client
	})

	// Register AnchorOracle - private dependency
	di.RegisterToken(c, marketdataDI.AnchorOracle, func(sr di.ServiceRegistry) app.AnchorOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := stacksapi.NewOracle(stacksapi.OracleConfig{
			URL:          cfg.Oracle.URL,
			Timeout:      cfg.Oracle.Timeout,
			StaleTimeout: cfg.Oracle.StaleTimeout,
		}, log)
		if err != nil {
			panic("failed to create anchor oracle: " + err.Error())
		}
		return oracle
	})

	// Register BlockFeed - private dependency
	di.RegisterToken(c, marketdataDI.BlockFeed, func(sr di.ServiceRegistry) app.BlockFeed {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return stacksapi.NewFeed(stacksapi.FeedConfig{
			URL:            cfg.Stacks.WebSocketURL,
			InitialBackoff: cfg.Stacks.InitialBackoff,
			MaxBackoff:     cfg.Stacks.MaxBackoff,
			MaxReconnects:  cfg.Stacks.MaxReconnects,
		}, log)
	})

	// Register SnapshotService (public - exposed to other modules)
	di.RegisterToken(c, marketdataDI.SnapshotService, func(sr di.ServiceRegistry) *app.SnapshotService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var feed app.BlockFeed
		if cfg.Stacks.WebSocketURL != "" {
			feed = marketdataDI.GetBlockFeed(sr)
		}

		svc, err := app.NewSnapshotService(
			marketdataDI.GetVaultSource(sr),
			marketdataDI.GetAnchorOracle(sr),
			feed,
			app.SnapshotServiceConfig{
				RefreshInterval: cfg.Pricing.RefreshInterval,
				MaxStale:        cfg.Pricing.MaxStale,
			},
			log,
		)
		if err != nil {
			panic("failed to create snapshot service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup launches the snapshot refresh loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := marketdataDI.GetSnapshotService(mono.Services())

	// Mirror snapshot token metadata into the shared registry so the API
	// can resolve symbols without reaching into this context.
	registry := mono.TokenRegistry()
	svc.OnUpdate(func(snap *domain.Snapshot) {
		for _, meta := range snap.Tokens {
			registry.Upsert(token.NewWithName(meta.ID, meta.Symbol, meta.Name, meta.Decimals))
		}
	})

	go func() {
		if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "snapshot loop terminated", "error", err)
		}
	}()

	log.Info(ctx, "market data module started")
	return nil
}
