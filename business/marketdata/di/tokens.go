// Package di contains dependency injection tokens for the market data context.
package di

import (
	"github.com/stxquote/price-engine/business/marketdata/app"
	"github.com/stxquote/price-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SnapshotService = di.NewToken[*app.SnapshotService]("marketdata.SnapshotService")
)

// Private dependency tokens - internal to the market data module
var (
	VaultSource  = di.NewToken[app.VaultSource]("marketdata:vaultSource")
	AnchorOracle = di.NewToken[app.AnchorOracle]("marketdata:anchorOracle")
	BlockFeed    = di.NewToken[app.BlockFeed]("marketdata:blockFeed")
)

// Helper functions for type-safe access
func GetSnapshotService(c di.ServiceRegistry) *app.SnapshotService {
	return di.GetToken(c, SnapshotService)
}

func GetVaultSource(c di.ServiceRegistry) app.VaultSource {
	return di.GetToken(c, VaultSource)
}

func GetAnchorOracle(c di.ServiceRegistry) app.AnchorOracle {
	return di.GetToken(c, AnchorOracle)
}

func GetBlockFeed(c di.ServiceRegistry) app.BlockFeed {
	return di.GetToken(c, BlockFeed)
}
