// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/stxquote/price-engine/business/pricing/app"
	"github.com/stxquote/price-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine = di.NewToken[*app.Engine]("pricing.Engine")
)

// Private dependency tokens - internal to the pricing module
var (
	PriceStore = di.NewToken[app.PriceStore]("pricing:priceStore")
)

// Helper functions for type-safe access
func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetPriceStore(c di.ServiceRegistry) app.PriceStore {
	return di.GetToken(c, PriceStore)
}
