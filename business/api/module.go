// Package api implements the HTTP query surface.
package api

import (
	"context"

	apiDI "github.com/stxquote/price-engine/business/api/di"
	"github.com/stxquote/price-engine/business/api/rest"
	pricingDI "github.com/stxquote/price-engine/business/pricing/di"
	"github.com/stxquote/price-engine/internal/config"
	"github.com/stxquote/price-engine/internal/di"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/monolith"
	"github.com/stxquote/price-engine/internal/token"
)

// Module implements the api bounded context.
type Module struct{}

// RegisterServices registers the REST server with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, apiDI.Server, func(sr di.ServiceRegistry) *rest.Server {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("tokenRegistry").(*token.Registry)

		return rest.NewServer(
			rest.ServerConfig{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			},
			pricingDI.GetEngine(sr),
			registry,
			log,
		)
	})
	return nil
}

// Startup launches the listener and wires graceful shutdown to the
// application context.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	server := apiDI.GetServer(mono.Services())

	go func() {
		if err := server.Start(); err != nil {
			mono.Logger().Error(ctx, "api server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			mono.Logger().Warn(context.Background(), "api server shutdown failed", "error", err)
		}
	}()

	mono.Logger().Info(ctx, "api module started", "addr", mono.Config().Server.Addr)
	return nil
}
